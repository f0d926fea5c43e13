package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/webpulse/gapctl/internal/google/searchconsole"
)

func searchCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "search",
		Short: "Query Search Console performance data",
		Long: "Query Google Search Console search analytics, verified sites,\n" +
			"and submitted sitemaps.",
	}

	root.AddCommand(
		searchQueryCmd(),
		searchSitesCmd(),
		searchSitemapsCmd(),
		searchTopQueriesCmd(),
		searchTopPagesCmd(),
	)

	return root
}

func searchQueryCmd() *cobra.Command {
	var (
		site       string
		startDate  string
		endDate    string
		dimensions []string
		rowLimit   int
		startRow   int
		filters    string
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a search analytics query",
		Example: `  # Clicks and impressions by query and page
  gapctl search query --start 2026-01-01 --end 2026-01-31 \
    --dimensions query,page --row-limit 100`,
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			raw, err := app.search.Query(context.Background(), searchconsole.QueryRequest{
				SiteURL:    site,
				StartDate:  startDate,
				EndDate:    endDate,
				Dimensions: dimensions,
				RowLimit:   rowLimit,
				StartRow:   startRow,
				Filters:    filterOrNil(filters),
			})
			if err != nil {
				return err
			}
			return outputRaw(raw)
		},
	}
	cmd.Flags().StringVar(&site, "site", "", "site URL (defaults to config)")
	cmd.Flags().StringVar(&startDate, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&dimensions, "dimensions", nil, "dimensions (query, page, country, device, date)")
	cmd.Flags().IntVar(&rowLimit, "row-limit", 0, "maximum rows to return")
	cmd.Flags().IntVar(&startRow, "start-row", 0, "row offset for paging")
	cmd.Flags().StringVar(&filters, "filters", "", "dimensionFilterGroups as raw JSON")
	cobra.CheckErr(cmd.MarkFlagRequired("start"))
	cobra.CheckErr(cmd.MarkFlagRequired("end"))

	return cmd
}

func searchSitesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "List sites the authenticated user can access",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			raw, err := app.search.ListSites(context.Background())
			if err != nil {
				return err
			}
			return outputRaw(raw)
		},
	}
}

func searchSitemapsCmd() *cobra.Command {
	var site string

	cmd := &cobra.Command{
		Use:   "sitemaps",
		Short: "List sitemaps submitted for a site",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			raw, err := app.search.ListSitemaps(context.Background(), site)
			if err != nil {
				return err
			}
			return outputRaw(raw)
		},
	}
	cmd.Flags().StringVar(&site, "site", "", "site URL (defaults to config)")

	return cmd
}

func searchTopQueriesCmd() *cobra.Command {
	var (
		site      string
		startDate string
		endDate   string
		limit     int
	)

	cmd := &cobra.Command{
		Use:     "top-queries",
		Short:   "Show the top search queries by clicks",
		Example: `  gapctl search top-queries --start 2026-01-01 --end 2026-01-31 --limit 25`,
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			raw, err := app.search.TopQueries(context.Background(), site, startDate, endDate, limit)
			if err != nil {
				return err
			}
			return outputRaw(raw)
		},
	}
	cmd.Flags().StringVar(&site, "site", "", "site URL (defaults to config)")
	cmd.Flags().StringVar(&startDate, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows to return")
	cobra.CheckErr(cmd.MarkFlagRequired("start"))
	cobra.CheckErr(cmd.MarkFlagRequired("end"))

	return cmd
}

func searchTopPagesCmd() *cobra.Command {
	var (
		site      string
		startDate string
		endDate   string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "top-pages",
		Short: "Show the top pages by clicks",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			raw, err := app.search.TopPages(context.Background(), site, startDate, endDate, limit)
			if err != nil {
				return err
			}
			return outputRaw(raw)
		},
	}
	cmd.Flags().StringVar(&site, "site", "", "site URL (defaults to config)")
	cmd.Flags().StringVar(&startDate, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows to return")
	cobra.CheckErr(cmd.MarkFlagRequired("start"))
	cobra.CheckErr(cmd.MarkFlagRequired("end"))

	return cmd
}
