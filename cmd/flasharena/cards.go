package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/pashagolub/flasharena/pkg/data"
	"github.com/pashagolub/flasharena/pkg/report"
)

// CardsCommand groups 'flasharena cards' subcommands
type CardsCommand struct {
	List     CardsListCommand     `command:"list" description:"List flashcards"`
	Show     CardsShowCommand     `command:"show" description:"Show one flashcard"`
	Add      CardsAddCommand      `command:"add" description:"Create a flashcard"`
	Update   CardsUpdateCommand   `command:"update" description:"Edit a flashcard"`
	Remove   CardsRemoveCommand   `command:"remove" description:"Delete a flashcard"`
	Import   CardsImportCommand   `command:"import" description:"Import flashcards from a CSV file"`
	Template CardsTemplateCommand `command:"template" description:"Download the CSV import template"`
}

func newCardsCommand(c *cli) *CardsCommand {
	cmd := &CardsCommand{}
	cmd.List.cli = c
	cmd.Show.cli = c
	cmd.Add.cli = c
	cmd.Update.cli = c
	cmd.Remove.cli = c
	cmd.Import.cli = c
	cmd.Template.cli = c
	return cmd
}

// CardsListCommand handles 'flasharena cards list'
type CardsListCommand struct {
	Pack string `long:"pack" short:"p" description:"Only cards of this pack id"`
	cli  *cli
}

// Execute implements the Command interface for CardsListCommand
func (c *CardsListCommand) Execute(args []string) error {
	return c.cli.withSession(func(ctx context.Context, s *session, p *report.Printer) error {
		var (
			cards []data.Flashcard
			err   error
		)
		if c.Pack != "" {
			cards, err = s.client.PackFlashcards(ctx, c.Pack)
		} else {
			cards, err = s.client.ListFlashcards(ctx)
		}
		if err != nil {
			return apiError("Could not load flashcards", err, s.config.API.BaseURL)
		}
		return p.Cards(cards)
	})
}

// CardsShowCommand handles 'flasharena cards show'
type CardsShowCommand struct {
	Args idArg `positional-args:"yes" required:"yes"`
	cli  *cli
}

// Execute implements the Command interface for CardsShowCommand
func (c *CardsShowCommand) Execute(args []string) error {
	return c.cli.withSession(func(ctx context.Context, s *session, p *report.Printer) error {
		card, err := s.client.GetFlashcard(ctx, c.Args.ID)
		if err != nil {
			return apiError("Could not load flashcard", err, s.config.API.BaseURL)
		}
		return p.Cards([]data.Flashcard{card})
	})
}

// CardsAddCommand handles 'flasharena cards add'
type CardsAddCommand struct {
	Pack       string `long:"pack" short:"p" description:"Pack id" required:"yes"`
	Question   string `long:"question" short:"q" description:"Question text" required:"yes"`
	Answer     string `long:"answer" short:"a" description:"Answer text" required:"yes"`
	Difficulty string `long:"difficulty" short:"d" description:"easy, medium or hard" default:"medium"`
	cli        *cli
}

// Execute implements the Command interface for CardsAddCommand
func (c *CardsAddCommand) Execute(args []string) error {
	in := data.FlashcardInput{
		PackID:     c.Pack,
		Question:   c.Question,
		Answer:     c.Answer,
		Difficulty: data.Difficulty(c.Difficulty),
	}
	if err := in.Validate(); err != nil {
		return validationError(err)
	}
	return c.cli.withSession(func(ctx context.Context, s *session, p *report.Printer) error {
		card, err := s.client.CreateFlashcard(ctx, in)
		if err != nil {
			return apiError("Could not create flashcard", err, s.config.API.BaseURL)
		}
		return p.Cards([]data.Flashcard{card})
	})
}

// CardsUpdateCommand handles 'flasharena cards update'
type CardsUpdateCommand struct {
	Pack       string `long:"pack" short:"p" description:"Move the card to this pack"`
	Question   string `long:"question" short:"q" description:"New question text"`
	Answer     string `long:"answer" short:"a" description:"New answer text"`
	Difficulty string `long:"difficulty" short:"d" description:"easy, medium or hard"`
	Args       idArg  `positional-args:"yes" required:"yes"`
	cli        *cli
}

// Execute implements the Command interface for CardsUpdateCommand
func (c *CardsUpdateCommand) Execute(args []string) error {
	if c.Pack == "" && c.Question == "" && c.Answer == "" && c.Difficulty == "" {
		return &CLIError{
			Code:        ExitValidationError,
			Message:     "Nothing to update",
			Suggestions: []string{"Pass at least one of --pack, --question, --answer, --difficulty"},
		}
	}
	return c.cli.withSession(func(ctx context.Context, s *session, p *report.Printer) error {
		current, err := s.client.GetFlashcard(ctx, c.Args.ID)
		if err != nil {
			return apiError("Could not load flashcard", err, s.config.API.BaseURL)
		}
		in := data.FlashcardInput{
			PackID:     current.PackID,
			Question:   current.Question,
			Answer:     current.Answer,
			Difficulty: current.Difficulty,
		}
		if c.Pack != "" {
			in.PackID = c.Pack
		}
		if c.Question != "" {
			in.Question = c.Question
		}
		if c.Answer != "" {
			in.Answer = c.Answer
		}
		if c.Difficulty != "" {
			in.Difficulty = data.Difficulty(c.Difficulty)
		}
		if err := in.Validate(); err != nil {
			return validationError(err)
		}
		card, err := s.client.UpdateFlashcard(ctx, c.Args.ID, in)
		if err != nil {
			return apiError("Could not update flashcard", err, s.config.API.BaseURL)
		}
		return p.Cards([]data.Flashcard{card})
	})
}

// CardsRemoveCommand handles 'flasharena cards remove'
type CardsRemoveCommand struct {
	Args idArg `positional-args:"yes" required:"yes"`
	cli  *cli
}

// Execute implements the Command interface for CardsRemoveCommand
func (c *CardsRemoveCommand) Execute(args []string) error {
	return c.cli.withSession(func(ctx context.Context, s *session, _ *report.Printer) error {
		if err := s.client.DeleteFlashcard(ctx, c.Args.ID); err != nil {
			return apiError("Could not delete flashcard", err, s.config.API.BaseURL)
		}
		fmt.Fprintf(c.cli.stdout, "Flashcard %s deleted\n", c.Args.ID)
		return nil
	})
}

// CardsImportCommand handles 'flasharena cards import'
type CardsImportCommand struct {
	DryRun bool   `long:"dry-run" description:"Check the file locally without uploading it"`
	Pack   string `long:"pack" short:"p" description:"Pack id for rows without pack_id (dry run)"`
	Args   struct {
		File string `positional-arg-name:"FILE" description:"CSV file with question, answer, difficulty and pack_id columns"`
	} `positional-args:"yes" required:"yes"`
	cli *cli
}

// Execute implements the Command interface for CardsImportCommand
func (c *CardsImportCommand) Execute(args []string) error {
	f, err := os.Open(c.Args.File)
	if err != nil {
		return &CLIError{
			Code:    ExitFileError,
			Message: fmt.Sprintf("Failed to open %s: %v", c.Args.File, err),
		}
	}
	defer f.Close()

	if c.DryRun {
		p, err := c.cli.offlinePrinter()
		if err != nil {
			return err
		}
		result, err := data.ParseFlashcardCSV(f, c.Pack)
		if err != nil {
			if errors.Is(err, data.ErrCSVParsing) {
				return validationError(err)
			}
			return &CLIError{Code: ExitFileError, Message: err.Error()}
		}
		return p.ImportResult(result.ImportResult())
	}

	return c.cli.withSession(func(ctx context.Context, s *session, p *report.Printer) error {
		result, err := s.client.BulkImport(ctx, filepath.Base(c.Args.File), f)
		if err != nil {
			return apiError("Import failed", err, s.config.API.BaseURL)
		}
		s.log.Info("flashcards imported",
			zap.String("file", c.Args.File),
			zap.Int("successful", result.Successful),
			zap.Int("failed", result.Failed))
		return p.ImportResult(result)
	})
}

// CardsTemplateCommand handles 'flasharena cards template'
type CardsTemplateCommand struct {
	Output string `long:"output" short:"o" description:"Output file, '-' for stdout (default: flashcard_template.csv in export.directory)"`
	cli    *cli
}

// Execute implements the Command interface for CardsTemplateCommand
func (c *CardsTemplateCommand) Execute(args []string) error {
	return c.cli.withSession(func(ctx context.Context, s *session, _ *report.Printer) error {
		file, err := s.client.ImportTemplate(ctx)
		if err != nil {
			return apiError("Could not download the template", err, s.config.API.BaseURL)
		}
		path := c.Output
		if path == "" {
			name := file.Filename
			if name == "" {
				name = data.TemplateFilename
			}
			path = filepath.Join(s.config.Export.Directory, filepath.Base(name))
		}
		return c.cli.save(path, file)
	})
}
