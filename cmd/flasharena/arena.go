package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/pashagolub/flasharena/pkg/api"
	"github.com/pashagolub/flasharena/pkg/arena"
	"github.com/pashagolub/flasharena/pkg/data"
	"github.com/pashagolub/flasharena/pkg/journal"
	"github.com/pashagolub/flasharena/pkg/logging"
	"github.com/pashagolub/flasharena/pkg/report"
	"github.com/pashagolub/flasharena/pkg/tui"
)

// ArenaCommand handles 'flasharena arena'
type ArenaCommand struct {
	Batch        bool     `long:"batch" description:"Run without the terminal UI, reading round winners from stdin"`
	Pack         string   `long:"pack" short:"p" description:"Pack id or name (batch mode)"`
	Players      []string `long:"player" description:"Student id or name, repeat for every player (batch mode)"`
	Rounds       int      `long:"rounds" short:"r" description:"Number of rounds (default arena.default_rounds)"`
	RoundResults bool     `long:"round-results" description:"Show a summary after every round"`
	Journal      string   `long:"journal" description:"Directory for a tamper-evident battle journal (batch mode)"`

	cli *cli
}

// Execute implements the Command interface for ArenaCommand
func (c *ArenaCommand) Execute(args []string) error {
	config, err := c.cli.loadConfiguration()
	if err != nil {
		return err
	}
	if c.RoundResults {
		config.Arena.ShowRoundResults = true
	}

	if c.Batch {
		return c.cli.withSession(func(ctx context.Context, s *session, p *report.Printer) error {
			s.config.Arena.ShowRoundResults = config.Arena.ShowRoundResults
			return c.runBatch(ctx, s, p)
		})
	}
	return c.runInteractive(config)
}

func (c *ArenaCommand) runInteractive(config *data.Config) error {
	logger, err := logging.ForTUI(config.Log)
	if err != nil {
		return &CLIError{Code: ExitConfigError, Message: fmt.Sprintf("Failed to set up logging: %v", err)}
	}
	defer func() { _ = logger.Sync() }()

	app, err := tui.NewApp(*config, api.New(config.API, logger), logger)
	if err != nil {
		return &CLIError{Code: ExitArenaError, Message: fmt.Sprintf("Failed to create the terminal UI: %v", err)}
	}
	defer app.Stop()

	if err := app.Run(); err != nil {
		return &CLIError{
			Code:    ExitArenaError,
			Message: fmt.Sprintf("Terminal UI failed: %v", err),
			Suggestions: []string{
				"Use --batch to play without the terminal UI",
			},
		}
	}
	return nil
}

// runBatch plays a whole battle on plain text streams
func (c *ArenaCommand) runBatch(ctx context.Context, s *session, p *report.Printer) error {
	setup := arena.Setup{Rounds: c.Rounds}
	if setup.Rounds == 0 {
		setup.Rounds = s.config.Arena.DefaultRounds
	}

	var err error
	if setup.PackID, err = resolvePack(ctx, s.client, c.Pack); err != nil {
		return arenaError("Could not load packs", err, s.config.API.BaseURL)
	}
	if setup.PlayerIDs, err = resolvePlayers(ctx, s.client, c.Players); err != nil {
		return arenaError("Could not load students", err, s.config.API.BaseURL)
	}

	flow := arena.NewFlow(arena.NewManager(s.client, s.log), s.client,
		arena.WithRoundResults(s.config.Arena.ShowRoundResults),
		arena.WithFlowLogger(s.log))
	if err := flow.Start(ctx, setup); err != nil {
		return arenaError("Could not start the battle", err, s.config.API.BaseURL)
	}

	rec, err := c.openJournal(flow.State(), setup.PackID, s.log)
	if err != nil {
		return err
	}
	defer rec.close()

	err = c.play(ctx, s, p, flow, rec)
	var cliErr *CLIError
	if errors.As(err, &cliErr) && cliErr.Code == ExitArenaError {
		rec.abandoned(flow.State(), cliErr.Message)
	}
	return err
}

// play drives the flow until the final standings are printed
func (c *ArenaCommand) play(ctx context.Context, s *session, p *report.Printer, flow *arena.Flow, rec *recorder) error {
	out := c.cli.stdout
	in := bufio.NewScanner(c.cli.stdin)
	for {
		st := flow.State()
		switch st.Step {
		case arena.StepVersus:
			printVersus(out, st)
			if err := flow.VersusReady(); err != nil {
				return arenaError("Battle out of step", err, s.config.API.BaseURL)
			}

		case arena.StepBattle:
			if st.Err == nil {
				printCard(out, st)
			}
			winners, err := readWinners(in, out, st)
			if err != nil {
				return err
			}
			if st.Card != nil {
				fmt.Fprintf(out, "Answer: %s\n", st.Card.PlainAnswer())
			}
			if err := flow.SelectWinner(ctx, winners); err != nil {
				if errors.Is(err, context.Canceled) {
					return &CLIError{Code: ExitArenaError, Message: "Battle interrupted"}
				}
				fmt.Fprintf(out, "Could not record the winner: %s\nPick the winner again to retry.\n", tui.ErrorText(err))
				continue
			}
			rec.round(flow.State())

		case arena.StepRoundResult:
			printRound(out, st)
			if err := flow.ContinueFromRoundResult(); err != nil {
				return arenaError("Battle out of step", err, s.config.API.BaseURL)
			}

		case arena.StepFinalResult:
			fmt.Fprintln(out)
			if st.Results == nil {
				return &CLIError{Code: ExitArenaError, Message: "The battle finished without results"}
			}
			rec.finished(*st.Results)
			return p.Standings(*st.Results)

		default:
			return &CLIError{Code: ExitArenaError, Message: fmt.Sprintf("Unexpected battle step %s", st.Step)}
		}
	}
}

// recorder writes the battle journal when one was requested. Journal
// failures are logged and never end the battle.
type recorder struct {
	j   *journal.Journal
	log *zap.Logger
}

func (c *ArenaCommand) openJournal(st arena.FlowState, packID string, log *zap.Logger) (*recorder, error) {
	rec := &recorder{log: log}
	if c.Journal == "" || st.Session == nil {
		return rec, nil
	}
	j, err := journal.Open(c.Journal, st.Session.ID)
	if err != nil {
		return nil, &CLIError{
			Code:    ExitFileError,
			Message: fmt.Sprintf("Failed to open battle journal: %v", err),
			Details: map[string]any{"directory": c.Journal},
		}
	}
	rec.j = j
	rec.check(j.BattleStarted(*st.Session, packID))
	fmt.Fprintf(c.cli.stdout, "Journal: %s\n", j.Path())
	return rec, nil
}

func (r *recorder) round(st arena.FlowState) {
	if r.j == nil || st.LastRound == nil {
		return
	}
	r.check(r.j.RoundScored(st.LastRound.Match, st.LastRound.Session))
}

func (r *recorder) finished(results data.ArenaResults) {
	if r.j != nil {
		r.check(r.j.BattleFinished(results))
	}
}

func (r *recorder) abandoned(st arena.FlowState, reason string) {
	if r.j == nil {
		return
	}
	done := 0
	if st.Session != nil {
		done = st.Session.RoundsCompleted
	}
	r.check(r.j.Abandoned(done, reason))
}

func (r *recorder) check(err error) {
	if err != nil {
		r.log.Warn("battle journal write failed", zap.Error(err))
	}
}

func (r *recorder) close() {
	if r.j != nil {
		r.check(r.j.Close())
	}
}

// arenaError maps battle failures onto exit codes
func arenaError(what string, err error, baseURL string) *CLIError {
	var verr *arena.ValidationError
	var netErr *api.NetworkError
	switch {
	case errors.As(err, &verr), errors.Is(err, errUnknownReference):
		return validationError(err)
	case errors.As(err, &netErr):
		return apiError(what, err, baseURL)
	}
	return &CLIError{Code: ExitArenaError, Message: fmt.Sprintf("%s: %s", what, tui.ErrorText(err))}
}

var errUnknownReference = errors.New("no such id or name")

// resolvePack finds a pack by id or, ignoring case, by name. An empty
// reference stays empty so setup validation reports it.
func resolvePack(ctx context.Context, client *api.Client, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil
	}
	packs, err := client.ListPacks(ctx)
	if err != nil {
		return "", err
	}
	for _, pk := range packs {
		if pk.ID == ref || strings.EqualFold(pk.Name, ref) {
			return pk.ID, nil
		}
	}
	return "", fmt.Errorf("pack %q: %w", ref, errUnknownReference)
}

// resolvePlayers maps every reference to a student id, keeping the order given
func resolvePlayers(ctx context.Context, client *api.Client, refs []string) ([]string, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	students, err := client.ListStudents(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		found := ""
		for _, st := range students {
			if st.ID == ref || strings.EqualFold(st.Name, ref) {
				found = st.ID
				break
			}
		}
		if found == "" {
			return nil, fmt.Errorf("student %q: %w", ref, errUnknownReference)
		}
		ids = append(ids, found)
	}
	return ids, nil
}

func name(session *data.ArenaSession, id string) string {
	if session != nil {
		if p, ok := session.Participant(id); ok && p.Name != "" {
			return p.Name
		}
	}
	return id
}

func printVersus(w io.Writer, st arena.FlowState) {
	if st.Match == nil || st.Session == nil {
		return
	}
	fmt.Fprintf(w, "\nRound %d of %d: %s (%.0f) vs %s (%.0f)\n",
		st.Session.RoundsCompleted+1, st.Session.NumRounds,
		name(st.Session, st.Match.Player1ID), st.Match.Player1EloBefore,
		name(st.Session, st.Match.Player2ID), st.Match.Player2EloBefore)
}

func printCard(w io.Writer, st arena.FlowState) {
	if st.Card == nil {
		fmt.Fprintln(w, "No flashcard drawn")
		return
	}
	fmt.Fprintf(w, "Question (%s): %s\n", st.Card.Difficulty, st.Card.PlainQuestion())
}

// readWinners prompts until a valid choice is entered
func readWinners(in *bufio.Scanner, w io.Writer, st arena.FlowState) ([]string, error) {
	if st.Match == nil {
		return nil, &CLIError{Code: ExitArenaError, Message: "No match to play"}
	}
	m := st.Match
	for {
		fmt.Fprintf(w, "Who answered correctly? [1] %s  [2] %s  [3] both  [q] quit: ",
			name(st.Session, m.Player1ID), name(st.Session, m.Player2ID))
		if !in.Scan() {
			return nil, &CLIError{
				Code:    ExitArenaError,
				Message: "Input ended before the battle finished",
				Details: map[string]any{"rounds_completed": st.Session.RoundsCompleted},
			}
		}
		switch strings.ToLower(strings.TrimSpace(in.Text())) {
		case "1":
			return []string{m.Player1ID}, nil
		case "2":
			return []string{m.Player2ID}, nil
		case "3":
			return []string{m.Player1ID, m.Player2ID}, nil
		case "q", "quit":
			return nil, &CLIError{Code: ExitArenaError, Message: "Battle abandoned"}
		}
		fmt.Fprintln(w, "Please type 1, 2 or 3.")
	}
}

func printRound(w io.Writer, st arena.FlowState) {
	last := st.LastRound
	if last == nil {
		return
	}
	m := last.Match
	for _, side := range []struct {
		id     string
		before float64
		after  *float64
	}{
		{m.Player1ID, m.Player1EloBefore, m.Player1EloAfter},
		{m.Player2ID, m.Player2EloBefore, m.Player2EloAfter},
	} {
		verdict := "missed"
		if m.IsWinner(side.id) {
			verdict = "correct"
		}
		if side.after == nil {
			fmt.Fprintf(w, "  %s: %s, %.0f\n", name(&last.Session, side.id), verdict, side.before)
			continue
		}
		fmt.Fprintf(w, "  %s: %s, %.0f -> %.0f (%+.0f)\n", name(&last.Session, side.id), verdict, side.before, *side.after, *side.after-side.before)
	}
}
