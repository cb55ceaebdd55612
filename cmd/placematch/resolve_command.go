package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"placematch/internal/geo"
	"placematch/internal/place"
	"placematch/internal/resolver"
	"placematch/internal/store"
)

const defaultRegionRadius = 5000.0

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var (
		near     string
		radius   float64
		jsonMode bool
	)

	cmd := &cobra.Command{
		Use:   "resolve [query]",
		Short: "Resolve curated place definitions against the place index",
		Long: `Resolve the places listed in resolver.definitions_path.

With a query, only definitions whose name or address contains it are
resolved. With --near, only definitions around that coordinate are resolved.
Results already known to the store are filtered out.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}
			svc, err := ctx.newResolverService(runCtx)
			if err != nil {
				return err
			}
			defer svc.Wait()

			if svc.Warm(runCtx) {
				ctx.log().Info("snapshot stale or missing; refreshing definitions in the background")
			}

			existing, err := existingRecords(runCtx, ctx, svc.Definitions())
			if err != nil {
				return err
			}

			var records []place.Record
			switch {
			case len(args) == 1:
				records, err = svc.Search(runCtx, args[0], existing)
			case strings.TrimSpace(near) != "":
				center, perr := parseCoordinate(near)
				if perr != nil {
					return perr
				}
				records, err = svc.InRegion(runCtx, geo.RegionAround(center, radius), existing)
			default:
				records, err = svc.ResolveAll(runCtx, svc.Definitions(), existing)
			}
			if err != nil {
				return err
			}

			if jsonMode {
				if records == nil {
					records = []place.Record{}
				}
				return writeJSON(cmd, records)
			}
			printResolved(cmd, records, svc.Stats())
			return nil
		},
	}

	cmd.Flags().StringVar(&near, "near", "", "Only resolve definitions near lat,lon")
	cmd.Flags().Float64Var(&radius, "radius", defaultRegionRadius, "Radius in meters used with --near")
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Print resolved places as JSON")
	return cmd
}

// existingRecords lists stored places other than the definitions themselves.
func existingRecords(ctx context.Context, c *commandContext, defs []resolver.Definition) ([]place.Record, error) {
	st, err := c.openStore()
	if err != nil {
		return nil, err
	}
	records, err := st.List(ctx, store.Filter{})
	if err != nil {
		return nil, fmt.Errorf("list stored places: %w", err)
	}
	skip := make(map[string]struct{}, len(defs))
	for _, def := range defs {
		skip[def.ID] = struct{}{}
	}
	out := records[:0]
	for _, r := range records {
		if _, ok := skip[r.ID]; ok {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func printResolved(cmd *cobra.Command, records []place.Record, stats resolver.Stats) {
	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No places resolved")
	} else {
		rows := make([][]string, 0, len(records))
		for _, r := range records {
			rows = append(rows, []string{
				r.ID,
				r.Name,
				valueOrDash(r.Address),
				formatCoordinate(r.Coordinate),
				valueOrDash(r.Status),
				formatOptionalFloat(r.Rating, 1),
				valueOrDash(r.ExternalID),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"ID", "Name", "Address", "Coordinate", "Status", "Rating", "External ID"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
		))
	}
	fmt.Fprintf(out, "Resolved %d places (cache hits %d, lookups %d, shared %d)\n",
		len(records), stats.Hits, stats.Executions, stats.Shared)
}
