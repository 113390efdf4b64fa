package commands

import (
	"fmt"
	"log/slog"

	"github.com/maltedev/scholar-scraper/internal/app"
	"github.com/maltedev/scholar-scraper/internal/config"
	"github.com/maltedev/scholar-scraper/internal/logger"
	"github.com/spf13/cobra"
)

type scrapeFlags struct {
	url      string
	output   string
	headless bool
}

var scrapeOpts scrapeFlags

func init() {
	scrapeCmd.Flags().StringVar(&scrapeOpts.url, "url", "", "Profile URL to scrape (defaults to SCRAPER_DEFAULT_URL).")
	scrapeCmd.Flags().StringVar(&scrapeOpts.output, "output", "", "CSV file to write (defaults to OUTPUT_PATH).")
	scrapeCmd.Flags().BoolVar(&scrapeOpts.headless, "headless", true, "Run the browser without a window.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--url <profile url>] [--output <path/to/file.csv>] [--headless]",
	Short: "Scrapes a profile once and writes the publications to a CSV file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, scrapeOpts)
		if err != nil {
			return err
		}

		log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
		slog.SetDefault(log)

		a, err := app.New(cmd.Context(), cfg, log)
		if err != nil {
			return fmt.Errorf("failed to initialize: %w", err)
		}
		defer a.Close()

		result, snap, err := a.Runner.Run(cmd.Context(), scrapeOpts.url)
		if err != nil {
			return fmt.Errorf("scrape failed: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "wrote %d publications to %s\n", snap.Count, snap.Path)
		if result.Expansion.Partial {
			fmt.Fprintf(out, "list expansion stopped early (%s)\n", result.Expansion.PartialReason)
		}
		return nil
	},
}

// loadConfig applies flags that were set explicitly on top of the environment.
func loadConfig(cmd *cobra.Command, opts scrapeFlags) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if opts.output != "" {
		cfg.Output.Path = opts.output
	}
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = opts.headless
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
