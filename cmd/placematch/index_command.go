package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"placematch/internal/config"
	"placematch/internal/store"
)

func newIndexCommand(ctx *commandContext) *cobra.Command {
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Maintain the Elasticsearch place index",
	}
	indexCmd.AddCommand(newIndexSyncCommand(ctx))
	return indexCmd
}

func newIndexSyncCommand(ctx *commandContext) *cobra.Command {
	var state string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Create the index if needed and load stored places into it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Provider.ElasticURL == "" {
				return fmt.Errorf("%w: provider.elastic_url is not set", config.ErrInvalid)
			}
			client, err := newElasticClient(cfg)
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			records, err := st.List(cmd.Context(), store.Filter{State: state, PageSize: cfg.Batch.PageSize})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			created, err := client.EnsureIndex(cmd.Context())
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(out, "Created index %s\n", cfg.Provider.ElasticIndex)
			}
			indexed, err := client.IndexRecords(cmd.Context(), records)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Indexed %d of %d places (places without coordinates are skipped)\n", indexed, len(records))
			return nil
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "Only index places in this state")
	return cmd
}
