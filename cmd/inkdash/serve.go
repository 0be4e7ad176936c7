package main

import (
	"context"

	"github.com/spf13/cobra"

	"inkdash/internal/dashboard"
	appLog "inkdash/internal/log"
	"inkdash/internal/schedule"
	"inkdash/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Render on a cron schedule and serve the latest dashboard over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		appLog.Info("inkdash starting", "version", version, "listen", cfg.Listen, "schedule", cfg.Schedule)

		p, err := dashboard.FromConfig(ctx, cfg)
		if err != nil {
			return err
		}

		// A failed first render keeps the previous image; the schedule retries.
		if _, err := p.Run(ctx); err != nil {
			appLog.Error("initial render failed", err)
		}

		sched, err := schedule.New(ctx, cfg.Schedule, cfg.Location(), func(ctx context.Context) error {
			_, err := p.Run(ctx)
			return err
		})
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()

		if err := web.NewServer(cfg, p).ListenAndServe(ctx); err != nil {
			appLog.Error("HTTP server failed", err, "listen", cfg.Listen)
			return err
		}
		appLog.Info("inkdash exiting")
		return nil
	},
}
