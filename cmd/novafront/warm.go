package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"novafront/internal/app"
	"novafront/models"
	"novafront/services/preload"
)

func newWarmCommand(ctx *commandContext) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Fetch the home rows and preload their critical images",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ctx.ensureSettings()
			if err != nil {
				return err
			}
			a, err := app.New(settings, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			runCtx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			rows := a.Catalog.HomeRows(runCtx)
			var featured []models.Title
			for _, row := range rows {
				if row.Error != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "row %s: %s\n", row.ID, row.Error)
					continue
				}
				if featured == nil && len(row.Items) > 0 {
					featured = models.Titles(row.Items)
				}
			}
			if len(featured) == 0 {
				return fmt.Errorf("no home rows loaded")
			}

			batch := a.Strategy.Homepage(featured)
			results := preload.WaitAll(runCtx, batch.All())
			fmt.Fprintln(cmd.OutOrStdout(), renderResults(results))

			stats := a.Queue.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "preloaded=%d queued=%d loading=%d\n", stats.Preloaded, stats.Queued, stats.Loading)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "Give up waiting after this long")
	return cmd
}

func renderResults(results []preload.Result) string {
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		status := "loaded"
		size := ""
		dims := ""
		switch {
		case res.Err != nil:
			status = res.Err.Error()
		case res.Cached:
			status = "cached"
		}
		if res.Resource != nil {
			size = strconv.FormatInt(res.Resource.Size, 10)
			if res.Resource.Width > 0 {
				dims = fmt.Sprintf("%dx%d", res.Resource.Width, res.Resource.Height)
			}
		}
		rows = append(rows, []string{res.URL, status, dims, size})
	}
	return renderTable(
		[]string{"URL", "Status", "Dimensions", "Bytes"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
	)
}
