package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"placematch/internal/snapshot"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the resolved places snapshot",
	}
	cacheCmd.AddCommand(newCacheShowCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func newCacheShowCommand(ctx *commandContext) *cobra.Command {
	var jsonMode bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the snapshot header and its places",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snap, err := openSnapshotStore(cmd.Context(), cfg, ctx.log())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			current, err := snap.Inspect(cmd.Context())
			if errors.Is(err, snapshot.ErrNotExist) {
				fmt.Fprintf(out, "No snapshot at %s\n", snap.Location())
				return nil
			}
			if err != nil {
				return fmt.Errorf("read snapshot %s: %w", snap.Location(), err)
			}
			if jsonMode {
				return writeJSON(cmd, current)
			}

			state := "enabled"
			if !cfg.Snapshot.Enabled {
				state = "disabled"
			}
			version := fmt.Sprintf("%d", current.Version)
			if current.Version != cfg.Snapshot.Version {
				version += fmt.Sprintf(" (expected %d; will be discarded)", cfg.Snapshot.Version)
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, [][]string{
				{"Location", snap.Location()},
				{"Snapshots", state},
				{"Version", version},
				{"Saved", current.SavedAt.Local().Format(time.RFC3339)},
				{"Age", formatElapsed(time.Since(current.SavedAt))},
				{"ETag", valueOrDash(current.ETag)},
				{"Places", fmt.Sprintf("%d", len(current.Entities))},
			}, nil))

			if len(current.Entities) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(current.Entities))
			for _, r := range current.Entities {
				rows = append(rows, []string{r.ID, r.Name, valueOrDash(r.Address), valueOrDash(r.ExternalID), valueOrDash(r.Source)})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Name", "Address", "External ID", "Source"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Print the snapshot as JSON")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snap, err := openSnapshotStore(cmd.Context(), cfg, ctx.log())
			if err != nil {
				return err
			}
			if err := snap.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear snapshot %s: %w", snap.Location(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared snapshot at %s\n", snap.Location())
			return nil
		},
	}
}
