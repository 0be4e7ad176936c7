package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"inkdash/internal/config"
	appLog "inkdash/internal/log"
)

const version = "0.1.0"

var (
	configPath string
	logLevel   string
	outputPath string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:          "inkdash",
	Short:        "Render upcoming calendar events as a greyscale e-ink dashboard",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config %s: %w", configPath, err)
		}
		if cmd.Flags().Changed("output") {
			loaded.Output = outputPath
		}
		level := loaded.LogLevel
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}
		appLog.SetLevel(appLog.ParseLevel(level))

		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded

		appLog.Debug("effective config",
			"config_path", configPath,
			"timezone", cfg.Timezone,
			"source", cfg.Source.Kind,
			"output", cfg.Output,
			"max_events", cfg.MaxEvents,
			"canvas", fmt.Sprintf("%dx%d", cfg.Canvas.Width, cfg.Canvas.Height),
		)
		return nil
	},
	Args: cobra.NoArgs,
	RunE: runRender,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./inkdash.yaml", "path to config file (.yaml or .toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&outputPath, "output", "", "output image path (overrides config)")
	rootCmd.Flags().BoolVar(&dumpFrame, "dump", false, "also write the packed 4bpp frame next to the image")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
