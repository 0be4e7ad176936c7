package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"inkdash/internal/model"
	"inkdash/internal/source"
)

var eventsJSON bool

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Fetch and print upcoming events in the display timezone",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		src, err := source.New(ctx, cfg.Source)
		if err != nil {
			return err
		}
		events, err := src.FetchUpcoming(ctx, cfg.MaxEvents, cfg.Location())
		if err != nil {
			return err
		}

		if eventsJSON {
			return printEventsJSON(cmd.OutOrStdout(), events)
		}
		printEventsTable(cmd.OutOrStdout(), events)
		return nil
	},
}

func init() {
	eventsCmd.Flags().BoolVar(&eventsJSON, "json", false, "output as JSON")
}

func printEventsJSON(w io.Writer, events []model.Event) error {
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printEventsTable(w io.Writer, events []model.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No upcoming events")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "START\tTITLE")
	for _, ev := range events {
		fmt.Fprintf(tw, "%s\t%s\n", ev.Start.Format("Mon 2006-01-02 15:04 MST"), ev.Title)
	}
	tw.Flush()
}
