package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"inkdash/internal/convert"
	"inkdash/internal/dashboard"
	appLog "inkdash/internal/log"
)

var dumpFrame bool

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Fetch upcoming events, render once and write the image",
	Args:  cobra.NoArgs,
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().BoolVar(&dumpFrame, "dump", false, "also write the packed 4bpp frame next to the image")
}

func runRender(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	p, err := dashboard.FromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	res, err := p.Run(ctx)
	if err != nil {
		appLog.Error("render failed", err, "output", cfg.Output)
		return err
	}

	if dumpFrame {
		path := dumpPath(res.Path)
		data := convert.Pack4(res.Frame)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write frame dump: %w", err)
		}
		appLog.Info("frame dumped", "path", path, "bytes", len(data))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d events, %d drawn, %d omitted\n",
		res.Path, len(res.Events), res.Summary.Rows, res.Summary.Omitted)
	return nil
}

// dumpPath swaps the image extension for .bin.
func dumpPath(imagePath string) string {
	return strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + ".bin"
}
