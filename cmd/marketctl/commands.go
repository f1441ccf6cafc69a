package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/aristath/marketboard/internal/clientdata"
	"github.com/aristath/marketboard/internal/clients/coingecko"
	"github.com/aristath/marketboard/internal/di"
	"github.com/aristath/marketboard/internal/domain"
	"github.com/aristath/marketboard/internal/modules/charts"
	"github.com/spf13/cobra"
)

func newSnapshotCmd(c *cli) *cobra.Command {
	var (
		filter string
		search string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Load a tab and print the filtered asset list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context, container *di.Container) error {
				if err := c.loadTab(ctx, container); err != nil {
					return err
				}

				controller := container.Dashboard
				controller.SetFilter(domain.ParseFilterMode(filter))
				controller.SetSearch(search)

				view := controller.View()
				if limit > 0 && len(view.Assets) > limit {
					view.Assets = view.Assets[:limit]
				}

				if c.format == "json" {
					return c.writeJSON(view)
				}

				tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "#\tID\tSYMBOL\tPRICE\t24H\tSCORE")
				for i, a := range view.Assets {
					score := "-"
					if a.RecommendationScore != nil {
						score = strconv.Itoa(*a.RecommendationScore)
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
						i+1, a.ID, upper(a.Symbol), formatPrice(a.CurrentPrice), formatChange(a.ChangePercent24h), score)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "all", "Filter mode: all, top-gainers, top-losers, most-expensive, least-expensive, highest-mcap, recommended")
	cmd.Flags().StringVarP(&search, "query", "q", "", "Case-insensitive name/symbol search")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows to print (0 = all)")
	return cmd
}

func newScoreCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "score <id>",
		Short: "Print the recommendation score breakdown for an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context, container *di.Container) error {
				if err := c.loadTab(ctx, container); err != nil {
					return err
				}

				report, err := container.Dashboard.ScoreBreakdown(args[0])
				if err != nil {
					return err
				}

				if c.format == "json" {
					return c.writeJSON(report)
				}

				comp := report.Components
				tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
				fmt.Fprintf(tw, "asset\t%s\n", report.ID)
				fmt.Fprintf(tw, "momentum 24h\t%d\n", comp.Momentum24h)
				fmt.Fprintf(tw, "momentum 7d\t%d\n", comp.Momentum7d)
				fmt.Fprintf(tw, "momentum 30d\t%d\n", comp.Momentum30d)
				fmt.Fprintf(tw, "volume\t%d\n", comp.Volume)
				fmt.Fprintf(tw, "market position\t%d\n", comp.MarketPosition)
				fmt.Fprintf(tw, "ath distance\t%d\n", comp.ATHDistance)
				fmt.Fprintf(tw, "low price\t%d\n", comp.LowPrice)
				fmt.Fprintf(tw, "raw\t%d\n", report.Raw)
				fmt.Fprintf(tw, "score\t%d\n", report.Score)
				return tw.Flush()
			})
		},
	}
}

func newHistoryCmd(c *cli) *cobra.Command {
	var (
		days  string
		group string
	)

	cmd := &cobra.Command{
		Use:   "history <id>",
		Short: "Print the price history summary for an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rng, err := coingecko.ParseHistoryRange(days)
			if err != nil {
				return err
			}
			var grouping charts.Grouping
			if group != "" {
				if grouping, err = charts.ParseGrouping(group); err != nil {
					return err
				}
			}

			return c.run(func(ctx context.Context, container *di.Container) error {
				if err := c.loadTab(ctx, container); err != nil {
					return err
				}

				points, err := container.Dashboard.History(ctx, args[0], rng)
				if err != nil {
					return err
				}
				summary := charts.Summarize(points)

				var aggregated []charts.ChartDataPoint
				if grouping != "" {
					aggregated = charts.Aggregate(points, grouping)
				}

				if c.format == "json" {
					return c.writeJSON(map[string]interface{}{
						"id":         args[0],
						"range":      rng.String(),
						"summary":    summary,
						"aggregated": aggregated,
					})
				}

				tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
				fmt.Fprintf(tw, "asset\t%s\n", args[0])
				fmt.Fprintf(tw, "range\t%s\n", rng)
				fmt.Fprintf(tw, "points\t%d\n", summary.Count)
				fmt.Fprintf(tw, "first\t%s\n", formatPrice(summary.First))
				fmt.Fprintf(tw, "last\t%s\n", formatPrice(summary.Last))
				fmt.Fprintf(tw, "min\t%s\n", formatPrice(summary.Min))
				fmt.Fprintf(tw, "max\t%s\n", formatPrice(summary.Max))
				fmt.Fprintf(tw, "change\t%s\n", formatChange(&summary.ChangePercent))
				for _, p := range aggregated {
					fmt.Fprintf(tw, "%s\t%s\n", p.Time, formatPrice(p.Value))
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&days, "days", "30", "Range in days, or max")
	cmd.Flags().StringVar(&group, "group", "", "Aggregate by day, week or month")
	return cmd
}

func newCacheCmd(c *cli) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the shared cache store",
	}

	clearCmd := &cobra.Command{
		Use:   "clear <crypto|stocks|steam|prefix>",
		Short: "Remove every cache entry under a prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := prefixFor(args[0])
			return c.run(func(ctx context.Context, container *di.Container) error {
				removed := container.CacheRepo.Clear(ctx, prefix)
				if c.format == "json" {
					return c.writeJSON(map[string]interface{}{"prefix": prefix, "removed": removed})
				}
				fmt.Fprintf(c.out, "removed %d entries under %q\n", removed, prefix)
				return nil
			})
		},
	}

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired entries from every namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context, container *di.Container) error {
				removed, err := container.CacheRepo.DeleteExpired(ctx)
				if err != nil {
					return err
				}
				if c.format == "json" {
					return c.writeJSON(removed)
				}
				tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "NAMESPACE\tREMOVED")
				namespaces := make([]string, 0, len(removed))
				for ns := range removed {
					namespaces = append(namespaces, ns)
				}
				sort.Strings(namespaces)
				for _, ns := range namespaces {
					fmt.Fprintf(tw, "%s\t%d\n", ns, removed[ns])
				}
				return tw.Flush()
			})
		},
	}

	cacheCmd.AddCommand(clearCmd, cleanupCmd)
	return cacheCmd
}

func prefixFor(name string) string {
	switch name {
	case "crypto":
		return clientdata.PrefixCrypto
	case "stock", "stocks":
		return clientdata.PrefixStocks
	case "steam":
		return clientdata.PrefixSteam
	default:
		return name
	}
}
