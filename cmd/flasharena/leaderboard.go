package main

import (
	"context"

	"github.com/pashagolub/flasharena/pkg/report"
	"github.com/pashagolub/flasharena/pkg/standings"
)

// LeaderboardCommand handles 'flasharena leaderboard'
type LeaderboardCommand struct {
	Top int `long:"top" short:"n" description:"Show only the first N students"`
	cli *cli
}

// Execute implements the Command interface for LeaderboardCommand
func (c *LeaderboardCommand) Execute(args []string) error {
	if c.Top < 0 {
		return &CLIError{Code: ExitValidationError, Message: "--top must not be negative"}
	}
	return c.cli.withSession(func(ctx context.Context, s *session, p *report.Printer) error {
		students, err := s.client.ListStudents(ctx)
		if err != nil {
			return apiError("Could not load the leaderboard", err, s.config.API.BaseURL)
		}
		ranked := standings.RankStudents(students)
		if c.Top > 0 && c.Top < len(ranked) {
			ranked = ranked[:c.Top]
		}
		return p.Leaderboard(ranked)
	})
}
