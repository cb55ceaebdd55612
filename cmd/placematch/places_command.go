package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"placematch/internal/place"
	"placematch/internal/store"
)

func newPlacesCommand(ctx *commandContext) *cobra.Command {
	placesCmd := &cobra.Command{
		Use:   "places",
		Short: "Manage the local place store",
	}
	placesCmd.AddCommand(newPlacesImportCommand(ctx))
	placesCmd.AddCommand(newPlacesListCommand(ctx))
	placesCmd.AddCommand(newPlacesShowCommand(ctx))
	return placesCmd
}

func newPlacesImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import places from a JSON array",
		Long: `Import places from a JSON array of records. Records without an id get
a new UUID; records with a known id are updated in place and keep their
match outcome.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read places file: %w", err)
			}
			var records []place.Record
			if err := json.Unmarshal(data, &records); err != nil {
				return fmt.Errorf("parse places file %s: %w", args[0], err)
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			count, err := st.Import(cmd.Context(), records)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d places into %s\n", count, st.Path())
			return nil
		},
	}
}

func newPlacesListCommand(ctx *commandContext) *cobra.Command {
	var (
		filter   store.Filter
		jsonMode bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored places",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			records, err := st.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if jsonMode {
				if records == nil {
					records = []place.Record{}
				}
				return writeJSON(cmd, records)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No places found")
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, r := range records {
				rows = append(rows, []string{
					r.ID,
					r.Name,
					valueOrDash(r.State),
					formatCoordinate(r.Coordinate),
					valueOrDash(r.ExternalID),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Name", "State", "Coordinate", "External ID"}, rows, nil))
			fmt.Fprintf(out, "%d places\n", len(records))
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.State, "state", "", "Only list places in this state")
	cmd.Flags().StringVar(&filter.Status, "status", "", "Only list places with this match status")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "Maximum number of places (0 = all)")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "Number of places to skip")
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Print places as JSON")
	return cmd
}

func newPlacesShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored place and its last match outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			id := strings.TrimSpace(args[0])
			rec, err := st.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			outcome, err := st.MatchOutcome(cmd.Context(), id)
			if err != nil {
				return err
			}

			rows := [][]string{
				{"ID", rec.ID},
				{"Name", rec.Name},
				{"Address", valueOrDash(rec.Address)},
				{"State", valueOrDash(rec.State)},
				{"Coordinate", formatCoordinate(rec.Coordinate)},
				{"Phone", valueOrDash(rec.Phone)},
				{"External ID", valueOrDash(rec.ExternalID)},
			}
			if outcome == nil {
				rows = append(rows, []string{"Match", "never matched"})
			} else {
				rows = append(rows,
					[]string{"Match", string(outcome.Status)},
					[]string{"Candidate", valueOrDash(strings.TrimSpace(outcome.CandidateName + " " + outcome.CandidateAddress))},
					[]string{"Score", formatOptionalInt(outcome.Score)},
					[]string{"Distance", distanceLabel(outcome.DistanceMeters)},
					[]string{"Reasons", valueOrDash(outcome.Reasons)},
					[]string{"Maps", valueOrDash(outcome.MapsURL)},
				)
				if outcome.Error != "" {
					rows = append(rows, []string{"Error", outcome.Error})
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
}

func distanceLabel(meters *int) string {
	if meters == nil {
		return "-"
	}
	return strconv.Itoa(*meters) + " m"
}
