package command

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/memkv/internal/cli/connection"
)

func adminCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:    "admin",
			Aliases: []string{"system", "sys"},
			Usage:   "Query the HTTP admin listener",
			Subcommands: []*cli.Command{
				{
					Name:   "health",
					Usage:  "Check liveness",
					Action: adminHealth,
				},
				{
					Name:   "ready",
					Usage:  "Check readiness, exiting non-zero when not ready",
					Action: adminReady,
				},
				{
					Name:   "stats",
					Usage:  "Show store statistics",
					Action: adminStats,
				},
			},
		},
	}
}

func withAdmin(c *cli.Context, fn func(context.Context, *Session, *connection.AdminClient) error) error {
	s, err := SessionFrom(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Context, s.Timeout)
	defer cancel()
	return fn(ctx, s, connection.NewAdminClient(s.Admin, s.Timeout))
}

func adminHealth(c *cli.Context) error {
	return withAdmin(c, func(ctx context.Context, s *Session, admin *connection.AdminClient) error {
		st, err := admin.Health(ctx)
		if err != nil {
			return err
		}
		return s.print(st)
	})
}

func adminReady(c *cli.Context) error {
	return withAdmin(c, func(ctx context.Context, s *Session, admin *connection.AdminClient) error {
		st, err := admin.Ready(ctx)
		if st != nil && st.Status != "" {
			if perr := s.print(st); perr != nil {
				return perr
			}
		}
		return err
	})
}

func adminStats(c *cli.Context) error {
	return withAdmin(c, func(ctx context.Context, s *Session, admin *connection.AdminClient) error {
		stats, err := admin.Stats(ctx)
		if err != nil {
			return err
		}
		return s.print(stats)
	})
}
