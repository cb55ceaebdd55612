package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"placematch/internal/batch"
	"placematch/internal/config"
	"placematch/internal/matcher"
	"placematch/internal/place"
	"placematch/internal/report"
	"placematch/internal/store"
)

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var (
		idsFile  string
		apply    bool
		jsonMode bool
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match stored places against the place index",
		Long: `Match stored places against the configured place index and write
matched, review, and unmatched CSV reports.

Runs are dry by default. Pass --apply to store each outcome on its record.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyMatchFlags(cmd.Flags(), cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			filter := store.Filter{
				State:    cfg.Batch.State,
				Status:   cfg.Batch.Status,
				Offset:   cfg.Batch.Offset,
				Limit:    cfg.Batch.Limit,
				PageSize: cfg.Batch.PageSize,
			}
			if strings.TrimSpace(idsFile) != "" {
				ids, err := batch.ReadIDs(idsFile)
				if err != nil {
					return err
				}
				if len(ids) == 0 {
					return fmt.Errorf("ids file %s lists no ids", idsFile)
				}
				filter.IDs = ids
			}

			logger := ctx.log()
			provider, err := newProvider(cfg)
			if err != nil {
				return err
			}
			m, err := matcher.New(provider, matcherOptions(cfg, logger))
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}

			runner, err := batch.New(st, m, st, batch.Options{
				Filter: filter,
				Reports: report.Paths{
					Matched:   cfg.Batch.MatchedReport,
					Review:    cfg.Batch.ReviewReport,
					Unmatched: cfg.Batch.UnmatchedReport,
				},
				Apply:  apply,
				Delay:  cfg.BatchDelay(),
				Logger: logger,
			})
			if err != nil {
				return err
			}

			summary, runErr := runner.Run(cmd.Context())
			if summary.Processed == 0 && runErr != nil && !summary.Canceled {
				return runErr
			}
			if jsonMode {
				if err := writeJSON(cmd, summaryJSON(summary, apply)); err != nil {
					return err
				}
			} else {
				printMatchSummary(cmd, summary, apply)
			}
			return runErr
		},
	}

	flags := cmd.Flags()
	flags.Int("limit", 0, "Maximum number of places to process (0 = all)")
	flags.Int("offset", 0, "Number of places to skip")
	flags.Int("page-size", 0, "Rows fetched per store query")
	flags.Int("radius", 0, "Nearby search radius in meters")
	flags.Int("fallback-radius", 0, "Second nearby radius in meters")
	flags.Int("delay", 0, "Delay between places in milliseconds")
	flags.Int("max-candidates", 0, "Candidates kept per search tier")
	flags.Int("min-score", 0, "Minimum score for a match")
	flags.Int("ambiguity-gap", 0, "Required lead over the runner-up")
	flags.Int("far-distance", 0, "Distance in meters above which matches go to review")
	flags.String("state", "", "Only process places in this state (all = every state)")
	flags.String("status", "", "Only process places with this match status (all, matched, review, unmatched, error)")
	flags.String("out", "", "Matched report path")
	flags.String("review", "", "Review report path")
	flags.String("unmatched", "", "Unmatched report path")
	flags.StringVar(&idsFile, "ids-file", "", "File listing place ids to process, one per line")
	flags.BoolVar(&apply, "apply", false, "Store match outcomes on the place records")
	flags.BoolVar(&jsonMode, "json", false, "Print the run summary as JSON")
	return cmd
}

// applyMatchFlags copies explicitly set flags over the loaded configuration.
func applyMatchFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	ints := []struct {
		name   string
		target *int
	}{
		{"limit", &cfg.Batch.Limit},
		{"offset", &cfg.Batch.Offset},
		{"page-size", &cfg.Batch.PageSize},
		{"radius", &cfg.Matching.RadiusMeters},
		{"fallback-radius", &cfg.Matching.FallbackRadiusMeters},
		{"delay", &cfg.Batch.DelayMS},
		{"max-candidates", &cfg.Matching.MaxCandidates},
		{"min-score", &cfg.Matching.MinScore},
		{"ambiguity-gap", &cfg.Matching.AmbiguityGap},
		{"far-distance", &cfg.Matching.FarDistanceMeters},
	}
	var errs []error
	for _, o := range ints {
		if !flags.Changed(o.name) {
			continue
		}
		v, err := flags.GetInt(o.name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if v < 0 {
			errs = append(errs, fmt.Errorf("--%s must be non-negative", o.name))
			continue
		}
		*o.target = v
	}

	strs := []struct {
		name   string
		target *string
		path   bool
	}{
		{"state", &cfg.Batch.State, false},
		{"status", &cfg.Batch.Status, false},
		{"out", &cfg.Batch.MatchedReport, true},
		{"review", &cfg.Batch.ReviewReport, true},
		{"unmatched", &cfg.Batch.UnmatchedReport, true},
	}
	for _, o := range strs {
		if !flags.Changed(o.name) {
			continue
		}
		v, err := flags.GetString(o.name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		v = strings.TrimSpace(v)
		if o.path {
			if v == "" {
				errs = append(errs, fmt.Errorf("--%s requires a path", o.name))
				continue
			}
			expanded, err := config.ExpandPath(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("--%s: %w", o.name, err))
				continue
			}
			v = expanded
		}
		*o.target = v
	}
	if strings.EqualFold(cfg.Batch.State, "all") {
		cfg.Batch.State = ""
	}
	cfg.Batch.State = strings.ToUpper(cfg.Batch.State)
	cfg.Batch.Status = strings.ToLower(cfg.Batch.Status)
	if cfg.Batch.Status == "" {
		cfg.Batch.Status = "all"
	}
	return errors.Join(errs...)
}

type matchSummaryJSON struct {
	RunID       string         `json:"run_id"`
	Apply       bool           `json:"apply"`
	Processed   int            `json:"processed"`
	Matched     int            `json:"matched"`
	Review      int            `json:"review"`
	Unmatched   int            `json:"unmatched"`
	Errors      int            `json:"errors"`
	Applied     int            `json:"applied"`
	ApplyErrors int            `json:"apply_errors"`
	Canceled    bool           `json:"canceled"`
	Collisions  []string       `json:"collisions,omitempty"`
	Reports     map[string]any `json:"reports"`
	ElapsedMS   int64          `json:"elapsed_ms"`
}

func summaryJSON(s batch.Summary, apply bool) matchSummaryJSON {
	out := matchSummaryJSON{
		RunID:       s.RunID,
		Apply:       apply,
		Processed:   s.Processed,
		Matched:     s.Matched,
		Review:      s.Review,
		Unmatched:   s.Unmatched,
		Errors:      s.Errors,
		Applied:     s.Applied,
		ApplyErrors: s.ApplyErrors,
		Canceled:    s.Canceled,
		Reports: map[string]any{
			"matched":   s.Reports.Matched,
			"review":    s.Reports.Review,
			"unmatched": s.Reports.Unmatched,
		},
		ElapsedMS: s.Elapsed.Milliseconds(),
	}
	for _, c := range s.Collisions {
		out.Collisions = append(out.Collisions, c.String())
	}
	return out
}

func printMatchSummary(cmd *cobra.Command, s batch.Summary, apply bool) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	heading := "Done."
	if s.Canceled {
		heading = "Stopped early."
	}
	fmt.Fprintf(out, "%s Run %s in %s\n", heading, s.RunID, formatElapsed(s.Elapsed))
	fmt.Fprintln(out, renderCountLine("Processed", s.Processed, "", colorize))
	fmt.Fprintln(out, renderCountLine("Matched", s.Matched, place.StatusMatched, colorize))
	fmt.Fprintln(out, renderCountLine("Review", s.Review, place.StatusReview, colorize))
	fmt.Fprintln(out, renderCountLine("Unmatched", s.Unmatched, place.StatusUnmatched, colorize))
	fmt.Fprintln(out, renderCountLine("Errors", s.Errors, place.StatusError, colorize))

	if apply {
		fmt.Fprintf(out, "Applied %d outcomes", s.Applied)
		if s.ApplyErrors > 0 {
			fmt.Fprintf(out, " (%d failed to store)", s.ApplyErrors)
		}
		fmt.Fprintln(out)
	} else {
		fmt.Fprintln(out, "Dry run: no records changed (use --apply to store outcomes)")
	}

	fmt.Fprintln(out, renderTable(
		[]string{"Report", "Path"},
		[][]string{
			{"matched", s.Reports.Matched},
			{"review", s.Reports.Review},
			{"unmatched", s.Reports.Unmatched},
		},
		nil,
	))

	if len(s.Collisions) == 0 {
		return
	}
	fmt.Fprintf(out, "Potential duplicates (external id matched by several places): %d\n", len(s.Collisions))
	rows := make([][]string, 0, len(s.Collisions))
	for _, c := range s.Collisions {
		rows = append(rows, []string{c.ExternalID, strings.Join(c.PlaceIDs, ", ")})
	}
	fmt.Fprintln(out, renderTable([]string{"External ID", "Places"}, rows, nil))
}
