package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/verbetes/verbete-server/internal/service"
)

func newFixContentCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "fix-content",
		Short: "Re-normalize the HTML of every submission and article",
		Long: "Runs the content normalizer over every stored body and rewrites the ones that change.\n" +
			"Only one run may hold the data directory at a time.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer ctx.shutdown()

			// The fixer holds the data directory lock for the run, shared
			// with the HTTP endpoint.
			fixer, err := do.Invoke[*service.ContentFixer](ctx.container())
			if err != nil {
				return err
			}

			result, err := fixer.FixAll(cmd.Context())
			if errors.Is(err, service.ErrFixRunning) {
				return errors.New("another fix-content run is already in progress")
			}
			if result != nil {
				if jsonOutput {
					if werr := writeJSON(cmd, result); werr != nil {
						return werr
					}
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), renderFixResult(result))
				}
			}
			if err != nil {
				return err
			}
			if result.Failed > 0 {
				return fmt.Errorf("%d of %d items failed", result.Failed, result.Total)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run summary as JSON")
	return cmd
}

func renderFixResult(r *service.FixResult) string {
	summary := renderTable(
		[]string{"Run", "Total", "Updated", "Skipped", "Failed", "Duration"},
		[][]string{{
			r.RunID,
			strconv.Itoa(r.Total),
			strconv.Itoa(r.Updated),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Failed),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
		}},
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	)
	if len(r.Errors) == 0 {
		return summary
	}

	rows := make([][]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		rows = append(rows, []string{string(e.Kind), strconv.FormatInt(e.ID, 10), e.Error})
	}
	return summary + "\n" + renderTable([]string{"Kind", "ID", "Error"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft})
}
