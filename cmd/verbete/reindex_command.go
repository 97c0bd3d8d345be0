package main

import (
	"errors"
	"fmt"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/verbetes/verbete-server/internal/service"
)

func newReindexCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from the published articles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer ctx.shutdown()

			catalog, err := do.Invoke[*service.CatalogService](ctx.container())
			if err != nil {
				return err
			}
			if _, enabled, _ := catalog.IndexedCount(); !enabled {
				return errors.New("search is disabled; set SEARCH_ENABLED=true to build the index")
			}

			n, err := catalog.Reindex(cmd.Context(), false)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d articles\n", n)
			return nil
		},
	}
}
