package cmd

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/webpulse/gapctl/internal/google/analytics"
)

func analyticsCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "analytics",
		Short: "Query Google Analytics reports and account structure",
		Long: "Query Google Analytics Data API reports, realtime activity,\n" +
			"metric/dimension metadata, and the Admin API account tree.",
	}

	root.AddCommand(
		analyticsReportCmd(),
		analyticsRealtimeCmd(),
		analyticsMetadataCmd(),
		analyticsAccountsCmd(),
		analyticsPropertiesCmd(),
		analyticsSummariesCmd(),
	)

	return root
}

func analyticsReportCmd() *cobra.Command {
	var (
		property   string
		metrics    []string
		dimensions []string
		startDate  string
		endDate    string
		limit      int
		filter     string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run a Data API report",
		Example: `  # Sessions by country for January
  gapctl analytics report --metrics sessions --dimensions country \
    --start 2026-01-01 --end 2026-01-31

  # Relative date ranges work too
  gapctl analytics report --metrics activeUsers --start 7daysAgo --end today`,
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			raw, err := app.analytics.RunReport(context.Background(), analytics.ReportRequest{
				PropertyID:      property,
				Metrics:         metrics,
				Dimensions:      dimensions,
				StartDate:       startDate,
				EndDate:         endDate,
				Limit:           limit,
				DimensionFilter: filterOrNil(filter),
			})
			if err != nil {
				return err
			}
			return outputRaw(raw)
		},
	}
	cmd.Flags().StringVar(&property, "property", "", "property id (defaults to config)")
	cmd.Flags().StringSliceVar(&metrics, "metrics", nil, "metric names")
	cmd.Flags().StringSliceVar(&dimensions, "dimensions", nil, "dimension names")
	cmd.Flags().StringVar(&startDate, "start", "", "start date (YYYY-MM-DD or relative)")
	cmd.Flags().StringVar(&endDate, "end", "", "end date (YYYY-MM-DD or relative)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows to return")
	cmd.Flags().StringVar(&filter, "filter", "", "dimensionFilter expression as raw JSON")
	cobra.CheckErr(cmd.MarkFlagRequired("metrics"))
	cobra.CheckErr(cmd.MarkFlagRequired("start"))
	cobra.CheckErr(cmd.MarkFlagRequired("end"))

	return cmd
}

func analyticsRealtimeCmd() *cobra.Command {
	var (
		property   string
		metrics    []string
		dimensions []string
		limit      int
	)

	cmd := &cobra.Command{
		Use:     "realtime",
		Short:   "Run a Data API realtime report",
		Example: `  gapctl analytics realtime --metrics activeUsers --dimensions country`,
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			raw, err := app.analytics.RunRealtimeReport(context.Background(), analytics.RealtimeRequest{
				PropertyID: property,
				Metrics:    metrics,
				Dimensions: dimensions,
				Limit:      limit,
			})
			if err != nil {
				return err
			}
			return outputRaw(raw)
		},
	}
	cmd.Flags().StringVar(&property, "property", "", "property id (defaults to config)")
	cmd.Flags().StringSliceVar(&metrics, "metrics", nil, "metric names")
	cmd.Flags().StringSliceVar(&dimensions, "dimensions", nil, "dimension names")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows to return")
	cobra.CheckErr(cmd.MarkFlagRequired("metrics"))

	return cmd
}

func analyticsMetadataCmd() *cobra.Command {
	var property string

	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Show the metric/dimension schema for a property",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			raw, err := app.analytics.Metadata(context.Background(), property)
			if err != nil {
				return err
			}
			return outputRaw(raw)
		},
	}
	cmd.Flags().StringVar(&property, "property", "", "property id (defaults to config)")

	return cmd
}

func analyticsAccountsCmd() *cobra.Command {
	var pageToken string

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List Admin API accounts",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			page, err := app.analytics.ListAccounts(context.Background(), pageToken)
			if err != nil {
				return err
			}
			return outputJSON(page)
		},
	}
	cmd.Flags().StringVar(&pageToken, "page-token", "", "continuation cursor from a previous page")

	return cmd
}

func analyticsPropertiesCmd() *cobra.Command {
	var pageToken string

	cmd := &cobra.Command{
		Use:     "properties <account>",
		Short:   "List properties under an account",
		Example: `  gapctl analytics properties accounts/5210991`,
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			page, err := app.analytics.ListProperties(context.Background(), args[0], pageToken)
			if err != nil {
				return err
			}
			return outputJSON(page)
		},
	}
	cmd.Flags().StringVar(&pageToken, "page-token", "", "continuation cursor from a previous page")

	return cmd
}

func analyticsSummariesCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "summaries",
		Short: "Show the full account/property tree",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			summaries, err := app.analytics.AccountSummaries(context.Background(), limit)
			if err != nil {
				return err
			}
			return outputJSON(map[string]any{"accountSummaries": summaries})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum summaries to return (0 = all)")

	return cmd
}

func filterOrNil(filter string) json.RawMessage {
	if filter == "" {
		return nil
	}
	return json.RawMessage(filter)
}
