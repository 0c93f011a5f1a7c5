package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/pashagolub/flasharena/pkg/data"
	"github.com/pashagolub/flasharena/pkg/report"
)

// PacksCommand groups 'flasharena packs' subcommands
type PacksCommand struct {
	List   PacksListCommand   `command:"list" description:"List all packs"`
	Add    PacksAddCommand    `command:"add" description:"Create a pack"`
	Update PacksUpdateCommand `command:"update" description:"Rename or describe a pack"`
	Remove PacksRemoveCommand `command:"remove" description:"Delete a pack and its flashcards"`
	Export PacksExportCommand `command:"export" description:"Download the flashcards of a pack as CSV"`
}

func newPacksCommand(c *cli) *PacksCommand {
	cmd := &PacksCommand{}
	cmd.List.cli = c
	cmd.Add.cli = c
	cmd.Update.cli = c
	cmd.Remove.cli = c
	cmd.Export.cli = c
	return cmd
}

// PacksListCommand handles 'flasharena packs list'
type PacksListCommand struct {
	cli *cli
}

// Execute implements the Command interface for PacksListCommand
func (c *PacksListCommand) Execute(args []string) error {
	return c.cli.withSession(func(ctx context.Context, s *session, p *report.Printer) error {
		packs, err := s.client.ListPacks(ctx)
		if err != nil {
			return apiError("Could not load packs", err, s.config.API.BaseURL)
		}
		return p.Packs(packs)
	})
}

// PacksAddCommand handles 'flasharena packs add'
type PacksAddCommand struct {
	Name        string `long:"name" short:"n" description:"Pack name" required:"yes"`
	Description string `long:"description" short:"d" description:"Pack description"`
	cli         *cli
}

// Execute implements the Command interface for PacksAddCommand
func (c *PacksAddCommand) Execute(args []string) error {
	in := data.PackInput{Name: c.Name, Description: c.Description}
	if err := in.Validate(); err != nil {
		return validationError(err)
	}
	return c.cli.withSession(func(ctx context.Context, s *session, p *report.Printer) error {
		pack, err := s.client.CreatePack(ctx, in)
		if err != nil {
			return apiError("Could not create pack", err, s.config.API.BaseURL)
		}
		return p.Packs([]data.FlashcardPack{pack})
	})
}

// PacksUpdateCommand handles 'flasharena packs update'
type PacksUpdateCommand struct {
	Name        string `long:"name" short:"n" description:"New pack name"`
	Description string `long:"description" short:"d" description:"New pack description"`
	Args        idArg  `positional-args:"yes" required:"yes"`
	cli         *cli
}

// Execute implements the Command interface for PacksUpdateCommand
func (c *PacksUpdateCommand) Execute(args []string) error {
	if c.Name == "" && c.Description == "" {
		return &CLIError{
			Code:        ExitValidationError,
			Message:     "Nothing to update",
			Suggestions: []string{"Pass --name and/or --description"},
		}
	}
	return c.cli.withSession(func(ctx context.Context, s *session, p *report.Printer) error {
		current, err := s.client.GetPack(ctx, c.Args.ID)
		if err != nil {
			return apiError("Could not load pack", err, s.config.API.BaseURL)
		}
		in := data.PackInput{Name: current.Name, Description: current.Description}
		if c.Name != "" {
			in.Name = c.Name
		}
		if c.Description != "" {
			in.Description = c.Description
		}
		if err := in.Validate(); err != nil {
			return validationError(err)
		}
		pack, err := s.client.UpdatePack(ctx, c.Args.ID, in)
		if err != nil {
			return apiError("Could not update pack", err, s.config.API.BaseURL)
		}
		return p.Packs([]data.FlashcardPack{pack})
	})
}

// PacksRemoveCommand handles 'flasharena packs remove'
type PacksRemoveCommand struct {
	Args idArg `positional-args:"yes" required:"yes"`
	cli  *cli
}

// Execute implements the Command interface for PacksRemoveCommand
func (c *PacksRemoveCommand) Execute(args []string) error {
	return c.cli.withSession(func(ctx context.Context, s *session, _ *report.Printer) error {
		if err := s.client.DeletePack(ctx, c.Args.ID); err != nil {
			return apiError("Could not delete pack", err, s.config.API.BaseURL)
		}
		fmt.Fprintf(c.cli.stdout, "Pack %s deleted\n", c.Args.ID)
		return nil
	})
}

// PacksExportCommand handles 'flasharena packs export'
type PacksExportCommand struct {
	Output string `long:"output" short:"o" description:"Output file, '-' for stdout (default: <pack-name>.csv in export.directory)"`
	Args   idArg  `positional-args:"yes" required:"yes"`
	cli    *cli
}

// Execute implements the Command interface for PacksExportCommand
func (c *PacksExportCommand) Execute(args []string) error {
	return c.cli.withSession(func(ctx context.Context, s *session, _ *report.Printer) error {
		pack, err := s.client.GetPack(ctx, c.Args.ID)
		if err != nil {
			return apiError("Could not load pack", err, s.config.API.BaseURL)
		}
		file, err := s.client.ExportPack(ctx, c.Args.ID)
		if err != nil {
			return apiError("Could not export pack", err, s.config.API.BaseURL)
		}

		path := c.Output
		if path == "" {
			path = filepath.Join(s.config.Export.Directory, report.Filename(pack.Name, "csv"))
		}
		return c.cli.save(path, file)
	})
}

// save writes a downloaded document to path, or to stdout for "-"
func (c *cli) save(path string, file data.FileContent) error {
	if path == "-" {
		_, err := io.WriteString(c.stdout, file.Content)
		return err
	}
	err := report.WriteFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, file.Content)
		return err
	})
	if err != nil {
		return &CLIError{
			Code:    ExitFileError,
			Message: fmt.Sprintf("Failed to write %s: %v", path, err),
			Suggestions: []string{
				"Check directory permissions",
				"Use --output to choose another location",
			},
		}
	}
	fmt.Fprintf(c.stdout, "Saved %s\n", path)
	return nil
}
