package main

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/pashagolub/flasharena/pkg/data"
)

// ConfigCommand groups 'flasharena config' subcommands
type ConfigCommand struct {
	Init  ConfigInitCommand  `command:"init" description:"Write a configuration file with default settings"`
	Show  ConfigShowCommand  `command:"show" description:"Print the effective configuration"`
	Paths ConfigPathsCommand `command:"paths" description:"List where the configuration file is looked up"`
}

func newConfigCommand(c *cli) *ConfigCommand {
	cmd := &ConfigCommand{}
	cmd.Init.cli = c
	cmd.Show.cli = c
	cmd.Paths.cli = c
	return cmd
}

// ConfigInitCommand handles 'flasharena config init'
type ConfigInitCommand struct {
	Force bool `long:"force" description:"Overwrite an existing file"`
	cli   *cli
}

// Execute implements the Command interface for ConfigInitCommand
func (c *ConfigInitCommand) Execute(args []string) error {
	path := c.cli.opts.Config
	if err := data.CreateDefaultConfig(path, c.Force); err != nil {
		return &CLIError{
			Code:        ExitFileError,
			Message:     err.Error(),
			Suggestions: []string{"Use --force to overwrite", "Use --config to choose another location"},
		}
	}
	fmt.Fprintf(c.cli.stdout, "Saved %s\n", path)
	return nil
}

// ConfigShowCommand handles 'flasharena config show'
type ConfigShowCommand struct {
	cli *cli
}

// Execute implements the Command interface for ConfigShowCommand
func (c *ConfigShowCommand) Execute(args []string) error {
	config, err := c.cli.loadConfiguration()
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(c.cli.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(config); err != nil {
		return err
	}
	return enc.Close()
}

// ConfigPathsCommand handles 'flasharena config paths'
type ConfigPathsCommand struct {
	cli *cli
}

// Execute implements the Command interface for ConfigPathsCommand
func (c *ConfigPathsCommand) Execute(args []string) error {
	resolved := data.ResolvePath(c.cli.opts.Config)
	for _, p := range data.SearchPaths(c.cli.opts.Config) {
		mark := " "
		if p == resolved {
			mark = "*"
		}
		fmt.Fprintf(c.cli.stdout, "%s %s\n", mark, p)
	}
	return nil
}
