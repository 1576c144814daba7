package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/halyard-advisory/halyard/pkg/config"
	"github.com/halyard-advisory/halyard/pkg/db"
	"github.com/halyard-advisory/halyard/pkg/feeds"
	gormstore "github.com/halyard-advisory/halyard/pkg/server/store/gorm"
)

// feedsCmd represents the feeds command
var feedsCmd = &cobra.Command{
	Use:   "feeds",
	Short: "Manage news feed ingestion",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'feeds' requires a subcommand (refresh, list)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

var feedsRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch every configured feed once",
	Long: `Fetch every configured news feed once and store the new items.

A failing feed is reported and does not stop the others. Items older than
the retention window are pruned afterwards.

Example:
  halyardctl feeds refresh
  halyardctl feeds refresh --timeout 2m`,
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout, _ := cmd.Flags().GetDuration("timeout")
		return refreshFeeds(timeout)
	},
}

var feedsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		sources, err := cfg.Feeds()
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			fmt.Println("No news feeds configured")
			return nil
		}
		for _, src := range sources {
			fmt.Printf("%-20s %s\n", src.Name, src.URL)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(feedsCmd)
	feedsCmd.AddCommand(feedsRefreshCmd)
	feedsCmd.AddCommand(feedsListCmd)
	feedsRefreshCmd.Flags().Duration("timeout", 5*time.Minute, "Overall refresh timeout")
}

func refreshFeeds(timeout time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	sources, err := cfg.Feeds()
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Println("No news feeds configured")
		return nil
	}

	database, err := db.Connect(db.Config{LogLevel: cfg.LogLevel})
	if err != nil {
		return err
	}
	log := newLogger(cfg.LogLevel, cfg.IsProduction())

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	aggregator := feeds.NewAggregator(sources, feeds.NewHTTPFetcher(nil), gormstore.NewNewsStore(database), log)
	report := aggregator.Refresh(ctx)

	names := make([]string, 0, len(report))
	for name := range report {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := 0
	for _, name := range names {
		result := report[name]
		if result.Error != "" {
			failed++
			fmt.Printf("%-20s error: %s\n", name, result.Error)
			continue
		}
		fmt.Printf("%-20s %d item(s)\n", name, result.Items)
	}

	if failed == len(names) {
		out, _ := json.Marshal(report)
		return fmt.Errorf("every feed failed: %s", out)
	}
	return nil
}
