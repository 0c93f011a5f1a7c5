package main

import (
	"errors"
	"fmt"

	"github.com/pashagolub/flasharena/pkg/journal"
	"github.com/pashagolub/flasharena/pkg/report"
)

// JournalCommand groups 'flasharena journal' subcommands
type JournalCommand struct {
	Show   JournalShowCommand   `command:"show" description:"List the events of a battle journal"`
	Verify JournalVerifyCommand `command:"verify" description:"Check the hash chain of a battle journal"`
}

func newJournalCommand(c *cli) *JournalCommand {
	cmd := &JournalCommand{}
	cmd.Show.cli = c
	cmd.Verify.cli = c
	return cmd
}

type fileArg struct {
	File string `positional-arg-name:"FILE" description:"Journal file (battle_<id>.jsonl)"`
}

// JournalShowCommand handles 'flasharena journal show'
type JournalShowCommand struct {
	Events  []string `long:"event" description:"Only events of this type (repeatable)" choice:"battle_started" choice:"round_scored" choice:"battle_finished" choice:"battle_abandoned"`
	Student string   `long:"student" description:"Only events involving this student id"`
	Limit   int      `long:"limit" short:"n" description:"Show at most this many events"`
	Offset  int      `long:"offset" description:"Skip this many matching events"`
	Args    fileArg  `positional-args:"yes" required:"yes"`
	cli     *cli
}

// Execute implements the Command interface for JournalShowCommand
func (c *JournalShowCommand) Execute(args []string) error {
	if c.Limit < 0 || c.Offset < 0 {
		return &CLIError{Code: ExitValidationError, Message: "--limit and --offset cannot be negative"}
	}
	p, err := c.cli.offlinePrinter()
	if err != nil {
		return err
	}

	opts := journal.QueryOptions{StudentID: c.Student, Limit: c.Limit, Offset: c.Offset}
	for _, ev := range c.Events {
		opts.EventTypes = append(opts.EventTypes, journal.EventType(ev))
	}
	result, err := journal.Query(c.Args.File, opts)
	if err != nil {
		return journalError(c.Args.File, err)
	}
	if err := p.Journal(result.Entries); err != nil {
		return err
	}
	if result.HasMore {
		fmt.Fprintf(c.cli.stdout, "%d of %d events shown\n", len(result.Entries), result.TotalCount)
	}
	return nil
}

// JournalVerifyCommand handles 'flasharena journal verify'
type JournalVerifyCommand struct {
	Args fileArg `positional-args:"yes" required:"yes"`
	cli  *cli
}

// Execute implements the Command interface for JournalVerifyCommand
func (c *JournalVerifyCommand) Execute(args []string) error {
	result, err := journal.Query(c.Args.File, journal.QueryOptions{})
	if err != nil {
		return journalError(c.Args.File, err)
	}
	stats := journal.Summarize(result.Entries)
	state := "unfinished"
	if stats.Finished {
		state = "finished"
	}
	fmt.Fprintf(c.cli.stdout, "Journal OK: %d entries, %s battle\n", stats.TotalEntries, state)
	return nil
}

// offlinePrinter builds a printer for commands that never reach the backend
func (c *cli) offlinePrinter() (*report.Printer, error) {
	config, err := c.loadConfiguration()
	if err != nil {
		return nil, err
	}
	return c.printer(config)
}

func journalError(path string, err error) error {
	switch {
	case errors.Is(err, journal.ErrCorrupted):
		return &CLIError{
			Code:        ExitValidationError,
			Message:     "Battle journal failed verification",
			Details:     map[string]any{"file": path, "reason": err.Error()},
			Suggestions: []string{"The file was edited or truncated after the battle"},
		}
	case errors.Is(err, journal.ErrJournalAbsent):
		return &CLIError{
			Code:    ExitFileError,
			Message: fmt.Sprintf("Journal %s not found", path),
		}
	default:
		return &CLIError{Code: ExitFileError, Message: err.Error()}
	}
}
