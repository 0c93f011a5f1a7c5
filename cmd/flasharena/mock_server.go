package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pashagolub/flasharena/pkg/logging"
	"github.com/pashagolub/flasharena/pkg/mockapi"
)

// MockServerCommand handles 'flasharena mock-server'
type MockServerCommand struct {
	Listen        string        `long:"listen" short:"l" description:"Address to listen on" default:"localhost:8000"`
	Empty         bool          `long:"empty" description:"Start without the demo roster and packs"`
	Latency       time.Duration `long:"latency" description:"Delay every response, e.g. 300ms"`
	LegacyResults bool          `long:"legacy-results" description:"Return arena results as a bare rankings list"`

	cli *cli
	// ready receives the bound address once the listener is open
	ready chan<- string
	// done stops the server like an interrupt does
	done <-chan struct{}
}

// Execute implements the Command interface for MockServerCommand
func (c *MockServerCommand) Execute(args []string) error {
	config, err := c.cli.loadConfiguration()
	if err != nil {
		return err
	}
	logger, err := logging.New(config.Log)
	if err != nil {
		return &CLIError{Code: ExitConfigError, Message: fmt.Sprintf("Failed to set up logging: %v", err)}
	}
	defer func() { _ = logger.Sync() }()

	opts := []mockapi.Option{mockapi.WithLogger(logger)}
	if c.LegacyResults {
		opts = append(opts, mockapi.WithLegacyResults())
	}
	mock := mockapi.NewServer(opts...)
	if !c.Empty {
		if err := mockapi.Seed(mock.Store()); err != nil {
			return &CLIError{Code: ExitConfigError, Message: fmt.Sprintf("Failed to seed demo data: %v", err)}
		}
	}
	if c.Latency > 0 {
		mock.SetLatency(c.Latency)
	}

	ln, err := net.Listen("tcp", c.Listen)
	if err != nil {
		return &CLIError{
			Code:        ExitConfigError,
			Message:     fmt.Sprintf("Failed to listen on %s: %v", c.Listen, err),
			Suggestions: []string{"Use --listen to pick another address"},
		}
	}

	srv := &http.Server{Handler: mock.Handler(), ReadHeaderTimeout: 10 * time.Second}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	addr := ln.Addr().String()
	logger.Info("mock backend listening", zap.String("base_url", "http://"+addr+"/api"), zap.Bool("seeded", !c.Empty))
	fmt.Fprintf(c.cli.stdout, "Serving http://%s/api, press Ctrl+C to stop\n", addr)
	if c.ready != nil {
		c.ready <- addr
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return &CLIError{Code: ExitAPIError, Message: fmt.Sprintf("Mock backend failed: %v", err)}
		}
		return nil
	case <-ctx.Done():
	case <-c.done:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down mock backend")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return &CLIError{Code: ExitAPIError, Message: fmt.Sprintf("Shutdown failed: %v", err)}
	}
	return nil
}
