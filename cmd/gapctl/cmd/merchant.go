package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func merchantCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "merchant",
		Short: "Inspect Merchant Center product feed health",
		Long: "Inspect Google Merchant Center products, per-product approval\n" +
			"statuses, and feed-level aggregations.",
	}

	root.AddCommand(
		merchantProductsCmd(),
		merchantProductCmd(),
		merchantStatusesCmd(),
		merchantSummaryCmd(),
		merchantDisapprovedCmd(),
		merchantAccountCmd(),
	)

	return root
}

func merchantProductsCmd() *cobra.Command {
	var (
		merchantID string
		pageToken  string
	)

	cmd := &cobra.Command{
		Use:   "products",
		Short: "List products in the feed",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			page, err := app.merchant.ListProducts(context.Background(), merchantID, pageToken)
			if err != nil {
				return err
			}
			return outputJSON(page)
		},
	}
	cmd.Flags().StringVar(&merchantID, "merchant", "", "merchant id (defaults to config)")
	cmd.Flags().StringVar(&pageToken, "page-token", "", "continuation cursor from a previous page")

	return cmd
}

func merchantProductCmd() *cobra.Command {
	var merchantID string

	cmd := &cobra.Command{
		Use:     "product <id>",
		Short:   "Show one product",
		Example: `  gapctl merchant product online:en:US:sku-001`,
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			raw, err := app.merchant.GetProduct(context.Background(), merchantID, args[0])
			if err != nil {
				return err
			}
			return outputRaw(raw)
		},
	}
	cmd.Flags().StringVar(&merchantID, "merchant", "", "merchant id (defaults to config)")

	return cmd
}

func merchantStatusesCmd() *cobra.Command {
	var (
		merchantID string
		pageToken  string
	)

	cmd := &cobra.Command{
		Use:   "statuses",
		Short: "List per-product approval statuses",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			page, err := app.merchant.ListProductStatuses(context.Background(), merchantID, pageToken)
			if err != nil {
				return err
			}

			if jsonOutput() {
				return outputJSON(page)
			}
			if err := printStatusesTable(page.Statuses); err != nil {
				return err
			}
			if page.NextPageToken != "" {
				fmt.Printf("\nNext page: --page-token %s\n", page.NextPageToken)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&merchantID, "merchant", "", "merchant id (defaults to config)")
	cmd.Flags().StringVar(&pageToken, "page-token", "", "continuation cursor from a previous page")

	return cmd
}

func merchantSummaryCmd() *cobra.Command {
	var merchantID string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Aggregate feed health across every product",
		Long: "Walk every product status page and aggregate approval counts\n" +
			"and item-level issue totals for the whole feed.",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			summary, err := app.merchant.FeedSummary(context.Background(), merchantID)
			if err != nil {
				return err
			}

			if jsonOutput() {
				return outputJSON(summary)
			}
			return printFeedSummaryTable(summary)
		},
	}
	cmd.Flags().StringVar(&merchantID, "merchant", "", "merchant id (defaults to config)")

	return cmd
}

func merchantDisapprovedCmd() *cobra.Command {
	var (
		merchantID string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "disapproved",
		Short: "List disapproved products",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			statuses, err := app.merchant.DisapprovedProducts(context.Background(), merchantID, limit)
			if err != nil {
				return err
			}

			if jsonOutput() {
				return outputJSON(statuses)
			}
			if len(statuses) == 0 {
				fmt.Println("No disapproved products.")
				return nil
			}
			return printStatusesTable(statuses)
		},
	}
	cmd.Flags().StringVar(&merchantID, "merchant", "", "merchant id (defaults to config)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum products to return (0 = all)")

	return cmd
}

func merchantAccountCmd() *cobra.Command {
	var merchantID string

	cmd := &cobra.Command{
		Use:   "account",
		Short: "Show the merchant account record",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			raw, err := app.merchant.AccountInfo(context.Background(), merchantID)
			if err != nil {
				return err
			}
			return outputRaw(raw)
		},
	}
	cmd.Flags().StringVar(&merchantID, "merchant", "", "merchant id (defaults to config)")

	return cmd
}
