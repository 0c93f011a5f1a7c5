// Package main provides the command-line interface for flasharena, a flashcard battle client.
// It implements subcommands for running arena battles in a terminal UI or in batch mode,
// managing students, packs and flashcards, showing the leaderboard and running a local mock backend.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/pashagolub/flasharena/pkg/api"
	"github.com/pashagolub/flasharena/pkg/data"
	"github.com/pashagolub/flasharena/pkg/logging"
	"github.com/pashagolub/flasharena/pkg/report"
)

// Version information - set by build process
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// GlobalOptions defines flags accepted by every command
type GlobalOptions struct {
	Config  string   `long:"config" short:"c" description:"Configuration file path" default:"flasharena.yaml"`
	EnvFile []string `long:"env-file" description:"Load environment variables from this file (repeatable, default .env)"`
	BaseURL string   `long:"base-url" description:"Backend API root, overrides api.base_url"`
	Format  string   `long:"format" short:"f" description:"Output format (table/csv/json), overrides export.format"`
	Verbose bool     `long:"verbose" short:"v" description:"Enable debug logging"`
	Version bool     `long:"version" description:"Show version information"`
}

// ErrorCode represents CLI exit codes
type ErrorCode int

const (
	ExitSuccess ErrorCode = iota
	ExitFileError
	ExitConfigError
	ExitAPIError
	ExitArenaError
	ExitValidationError
)

// CLIError represents a CLI error with exit code
type CLIError struct {
	Code        ErrorCode
	Message     string
	Details     map[string]any
	Suggestions []string
}

func (e *CLIError) Error() string {
	return e.Message
}

// formatErrorJSON formats error as JSON for structured output
func formatErrorJSON(err *CLIError) string {
	body := map[string]any{
		"code":    err.Code,
		"message": err.Message,
	}
	if err.Details != nil {
		body["details"] = err.Details
	}
	if err.Suggestions != nil {
		body["suggestions"] = err.Suggestions
	}

	jsonBytes, _ := json.MarshalIndent(map[string]any{"error": body}, "", "  ")
	return string(jsonBytes)
}

// cli carries the parsed global options and the process streams to the commands
type cli struct {
	opts   *GlobalOptions
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func main() {
	c := &cli{opts: &GlobalOptions{}, stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	if err := c.run(os.Args[1:]); err != nil {
		var cliErr *CLIError
		if errors.As(err, &cliErr) {
			fmt.Fprintln(os.Stderr, formatErrorJSON(cliErr))
			os.Exit(int(cliErr.Code))
		}
		log.Fatal(err)
	}
}

// newParser registers every command on a parser bound to c
func (c *cli) newParser() *flags.Parser {
	parser := flags.NewParser(c.opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Usage = "[OPTIONS] COMMAND [COMMAND-OPTIONS]"
	parser.SubcommandsOptional = true

	_, _ = parser.AddCommand("arena", "Run a flashcard battle",
		"Starts the interactive battle screens. With --batch the battle runs on plain\n"+
			"stdin/stdout: for every round type 1, 2 or 3 (both answered correctly).",
		&ArenaCommand{cli: c})
	_, _ = parser.AddCommand("students", "Manage students", "", newStudentsCommand(c))
	_, _ = parser.AddCommand("packs", "Manage flashcard packs", "", newPacksCommand(c))
	_, _ = parser.AddCommand("cards", "Manage flashcards", "", newCardsCommand(c))
	_, _ = parser.AddCommand("config", "Create or inspect the configuration file", "", newConfigCommand(c))
	_, _ = parser.AddCommand("journal", "Inspect battle journals written with 'arena --batch --journal'", "", newJournalCommand(c))
	_, _ = parser.AddCommand("leaderboard", "Show students ranked by rating", "", &LeaderboardCommand{cli: c})
	_, _ = parser.AddCommand("mock-server", "Serve an in-memory backend for local development", "", &MockServerCommand{cli: c})
	return parser
}

func (c *cli) run(args []string) error {
	parser := c.newParser()

	_, err := parser.ParseArgs(args)
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) {
			switch flagsErr.Type {
			case flags.ErrHelp:
				fmt.Fprintln(c.stdout, flagsErr.Message)
				return nil
			case flags.ErrCommandRequired:
				parser.WriteHelp(c.stderr)
				return &CLIError{
					Code:    ExitConfigError,
					Message: flagsErr.Message,
					Suggestions: []string{
						"Use 'flasharena --help' to see all available commands",
					},
				}
			default:
				return &CLIError{
					Code:    ExitConfigError,
					Message: fmt.Sprintf("Invalid arguments: %v", err),
					Suggestions: []string{
						"Use 'flasharena COMMAND --help' to see the options of a command",
					},
				}
			}
		}
		return err
	}

	if parser.Active == nil {
		if c.opts.Version {
			return c.showVersion()
		}
		parser.WriteHelp(c.stderr)
		return &CLIError{
			Code:    ExitConfigError,
			Message: "No command specified",
			Suggestions: []string{
				"Use 'flasharena arena' to start a battle",
				"Use 'flasharena --help' to see all available commands",
			},
		}
	}
	return nil
}

// Helper functions

func (c *cli) showVersion() error {
	fmt.Fprintf(c.stdout, "flasharena version %s\n", Version)
	fmt.Fprintf(c.stdout, "Build date: %s\n", BuildDate)
	fmt.Fprintf(c.stdout, "Git commit: %s\n", GitCommit)
	return nil
}

// loadConfiguration resolves the configuration file, .env files, the
// environment and the global flags, in that order
func (c *cli) loadConfiguration() (*data.Config, error) {
	path := data.ResolvePath(c.opts.Config)
	config, err := data.LoadWithEnvironment(path, c.opts.EnvFile...)
	if err != nil {
		return nil, &CLIError{
			Code:    ExitConfigError,
			Message: fmt.Sprintf("Failed to load configuration: %v", err),
			Details: map[string]any{"config": path},
			Suggestions: []string{
				"Check configuration file syntax",
				"Use --config flag to specify different config file",
			},
		}
	}

	if c.opts.BaseURL != "" {
		config.API.BaseURL = strings.TrimRight(c.opts.BaseURL, "/")
	}
	if c.opts.Format != "" {
		config.Export.Format = strings.ToLower(c.opts.Format)
	}
	if c.opts.Verbose {
		config.Log.Level = "debug"
	}
	if err := config.Validate(); err != nil {
		return nil, &CLIError{
			Code:    ExitConfigError,
			Message: fmt.Sprintf("Invalid configuration: %v", err),
		}
	}
	return config, nil
}

// session bundles what most commands need: configuration, logger and client
type session struct {
	config *data.Config
	log    *zap.Logger
	client *api.Client
}

func (c *cli) open() (*session, error) {
	config, err := c.loadConfiguration()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(config.Log)
	if err != nil {
		return nil, &CLIError{Code: ExitConfigError, Message: fmt.Sprintf("Failed to set up logging: %v", err)}
	}
	return &session{
		config: config,
		log:    logger,
		client: api.New(config.API, logger),
	}, nil
}

func (s *session) close() {
	_ = s.log.Sync()
}

// withSession opens a session, builds the printer and runs fn with a
// context cancelled on interrupt
func (c *cli) withSession(fn func(ctx context.Context, s *session, p *report.Printer) error) error {
	s, err := c.open()
	if err != nil {
		return err
	}
	defer s.close()

	p, err := c.printer(s.config)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return fn(ctx, s, p)
}

// printer returns a report printer honouring the configured format
func (c *cli) printer(config *data.Config) (*report.Printer, error) {
	format, err := report.ParseFormat(config.Export.Format)
	if err != nil {
		return nil, &CLIError{Code: ExitConfigError, Message: err.Error()}
	}
	var opts []report.PrinterOption
	if f, ok := c.stdout.(*os.File); !ok || f != os.Stdout {
		opts = append(opts, report.WithPlain())
	}
	return report.NewPrinter(c.stdout, format, opts...), nil
}

// apiError turns a failed backend call into a CLI error
func apiError(what string, err error, baseURL string) *CLIError {
	cliErr := &CLIError{
		Code:    ExitAPIError,
		Message: fmt.Sprintf("%s: %s", what, api.Message(err)),
	}
	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		cliErr.Details = map[string]any{
			"operation": netErr.Op,
			"path":      netErr.Path,
		}
		if netErr.StatusCode != 0 {
			cliErr.Details["status"] = netErr.StatusCode
		}
	}

	switch {
	case errors.Is(err, api.ErrTimeout), errors.Is(err, api.ErrUnavailable):
		cliErr.Suggestions = []string{
			"Check that the backend is running at " + baseURL,
			"Use --base-url or FLASHARENA_API_BASE_URL to point at another backend",
			"Run 'flasharena mock-server' for a local backend",
		}
	case errors.Is(err, api.ErrNotFound):
		cliErr.Suggestions = []string{"Check the id; list commands print every id"}
	}
	return cliErr
}

// validationError reports input rejected before any request was made
func validationError(err error) *CLIError {
	return &CLIError{Code: ExitValidationError, Message: err.Error()}
}
