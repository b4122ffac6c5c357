package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"frameloop/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and catalog health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			health, err := client.Health(cmd.Context())
			if err != nil {
				return err
			}
			state, err := client.State(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "daemon:      running (pid %d)\n", health.PID)
			fmt.Fprintf(out, "database:    %s\n", health.Store.DBPath)
			fmt.Fprintf(out, "records:     %d\n", health.Store.TotalRecords)
			fmt.Fprintf(out, "in flight:   %d\n", health.InFlight)
			if active := state.Active; active != "" {
				fmt.Fprintf(out, "showing:     %s\n", active)
			} else {
				fmt.Fprintf(out, "showing:     (nothing)\n")
			}
			if !state.LastUpdated.IsZero() {
				fmt.Fprintf(out, "last change: %s\n", state.LastUpdated.Local().Format(time.RFC1123))
			}

			if len(state.Stats) > 0 {
				parts := make([]string, 0, len(state.Stats))
				for _, status := range []string{"pending", "processing", "ready", "failed"} {
					if count := state.Stats[status]; count > 0 {
						parts = append(parts, fmt.Sprintf("%d %s", count, status))
					}
				}
				if len(parts) > 0 {
					fmt.Fprintf(out, "media:       %s\n", strings.Join(parts, ", "))
				}
			}
			return nil
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog media in loop order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			state, err := client.State(cmd.Context())
			if err != nil {
				return err
			}

			views := make(map[string]api.MediaView, len(state.Media))
			for _, view := range state.Media {
				views[view.Slug] = view
			}

			rows := make([][]string, 0, len(state.Media))
			appendRow := func(view api.MediaView, position string) {
				if statusFilter != "" && view.Status != statusFilter {
					return
				}
				marker := ""
				if view.Slug == state.Active {
					marker = "▶"
				}
				detail := view.SourceName
				if view.Status == "failed" && view.ErrorMessage != "" {
					detail = view.ErrorMessage
				}
				rows = append(rows, []string{marker, view.Slug, view.Kind, view.Status, position, detail})
			}

			seen := make(map[string]bool, len(state.Loop))
			for i, slug := range state.Loop {
				if view, ok := views[slug]; ok {
					seen[slug] = true
					appendRow(view, fmt.Sprint(i+1))
				}
			}
			// Records that fell out of the loop still show up at the end.
			for _, view := range state.Media {
				if !seen[view.Slug] {
					appendRow(view, "-")
				}
			}

			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "catalog is empty")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"", "Slug", "Kind", "Status", "Pos", "Detail"}, rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&statusFilter, "status", "", "Only show media with this status")
	return cmd
}
