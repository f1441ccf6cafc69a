package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aristath/marketboard/internal/config"
	"github.com/aristath/marketboard/internal/di"
	"github.com/aristath/marketboard/internal/domain"
	"github.com/aristath/marketboard/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cli holds flag values shared by all subcommands.
type cli struct {
	out        io.Writer
	loadConfig func() (*config.Config, error)

	format   string
	tab      string
	timeout  time.Duration
	logLevel string
}

// newRootCmd builds the command tree. loadConfig is called once per command run.
func newRootCmd(out io.Writer, loadConfig func() (*config.Config, error)) *cobra.Command {
	c := &cli{out: out, loadConfig: loadConfig}

	rootCmd := &cobra.Command{
		Use:   "marketctl",
		Short: "Crypto, stock and Steam market dashboard from the terminal",
		Long: `marketctl loads the same market views the dashboard server serves:
ranked crypto coins from the upstream market API and the generated stock
and Steam marketplace listings.

Examples:
  marketctl snapshot --filter top-gainers
  marketctl snapshot --tab stocks --format json
  marketctl score bitcoin
  marketctl history ethereum --days 90 --group week
  marketctl cache clear crypto`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.format, "format", "table", "Output format: table, json")
	flags.StringVar(&c.tab, "tab", "crypto", "Asset tab: crypto, stocks, steam")
	flags.DurationVar(&c.timeout, "timeout", 2*time.Minute, "Overall command timeout")
	flags.StringVar(&c.logLevel, "log-level", "warn", "Log level written to stderr")

	rootCmd.AddCommand(
		newSnapshotCmd(c),
		newScoreCmd(c),
		newHistoryCmd(c),
		newCacheCmd(c),
	)
	return rootCmd
}

// run wires dependencies, invokes fn and tears everything down.
func (c *cli) run(fn func(ctx context.Context, container *di.Container) error) error {
	switch c.format {
	case "table", "json":
	default:
		return fmt.Errorf("unsupported format %q", c.format)
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := c.logger()
	container, _, err := di.Wire(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to wire dependencies: %w", err)
	}
	defer container.Close()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	return fn(ctx, container)
}

func (c *cli) logger() zerolog.Logger {
	return logger.New(logger.Config{
		Level:   c.logLevel,
		Pretty:  true,
		Service: "marketctl",
		Output:  os.Stderr,
	})
}

// loadTab makes the requested tab active and loads it.
func (c *cli) loadTab(ctx context.Context, container *di.Container) error {
	tab, err := domain.ParseAssetType(c.tab)
	if err != nil {
		return err
	}

	controller := container.Dashboard
	if tab == controller.State().Filter.ActiveTab {
		err = controller.Load(ctx)
	} else {
		err = controller.SetTab(ctx, tab)
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", tab, err)
	}
	return nil
}

func (c *cli) writeJSON(v interface{}) error {
	encoder := json.NewEncoder(c.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func formatPrice(price float64) string {
	switch {
	case price >= 1:
		return fmt.Sprintf("$%.2f", price)
	case price > 0:
		return fmt.Sprintf("$%.6f", price)
	default:
		return "$0.00"
	}
}

func formatChange(change *float64) string {
	if change == nil {
		return "-"
	}
	return fmt.Sprintf("%+.2f%%", *change)
}

func upper(s string) string {
	return strings.ToUpper(s)
}
