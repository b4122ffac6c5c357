package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>",
		Short: "Register a media file and queue its conversion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			view, err := client.Add(cmd.Context(), path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s, %s)\n", view.Slug, view.Kind, view.Status)
			return nil
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <slug>",
		Short: "Remove media from the catalog and loop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <slug>",
		Short: "Queue a failed conversion for another attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.Retry(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "retry queued for %s\n", args[0])
			return nil
		},
	}
}

func newActivateCommand(ctx *commandContext) *cobra.Command {
	var clear bool
	cmd := &cobra.Command{
		Use:     "activate [slug]",
		Aliases: []string{"set-active"},
		Short:   "Point the display at a loop entry",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var slug string
			if len(args) == 1 {
				slug = args[0]
			}
			if !clear && slug == "" {
				return fmt.Errorf("provide a slug or --clear")
			}
			if err := client.SetActive(cmd.Context(), slug); err != nil {
				return err
			}
			if slug == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "display cleared")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "now showing %s\n", slug)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "Clear the active selection")
	return cmd
}

func newAdvanceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "advance",
		Short: "Move the display to the next loop entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			active, err := client.Advance(cmd.Context())
			if err != nil {
				return err
			}
			if active == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "loop is empty")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "now showing %s\n", active)
			}
			return nil
		},
	}
}

func newReorderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <slug> [slug...]",
		Short: "Replace the loop order",
		Long:  "Replace the loop order. The arguments must list every current loop entry exactly once.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.Reorder(cmd.Context(), args); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loop order: %s\n", strings.Join(args, " "))
			return nil
		},
	}
}
