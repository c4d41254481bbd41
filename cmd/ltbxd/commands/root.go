package commands

import (
	"context"
	"log/slog"
	"ltbxd-scraper/lib/util/serviceutil"
	"time"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ltbxd",
	Short: "ltbxd is a CLI for scraping watchlists, lists and film searches from letterboxd.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), globalFlags)
		if err != nil {
			return err
		}
		current = a
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// current is the app built for the running command.
var current *app

var globalFlags flags

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globalFlags.config, "config", "config.json5", "The config file to read, a sibling <name>.local.json5 overrides it.")
	pf.BoolVarP(&globalFlags.verbose, "verbose", "v", false, "Log debug output.")
	pf.StringVar(&globalFlags.backend, "backend", "", "Overrides the configured page fetcher (browser or direct).")
	pf.StringVar(&globalFlags.db, "db", "", "The sqlite database to export results to, overrides the configured one.")
	pf.StringVarP(&globalFlags.format, "format", "f", FORMAT_TABLE, "The output format, table or json.")
	pf.BoolVar(&globalFlags.acceptTerms, "accept-terms", false, "Acknowledge the terms of use for this run.")
	pf.BoolVar(&globalFlags.stats, "stats", true, "Print usage statistics after each query.")
}

func closeCurrent() {
	if current == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	current.Close(ctx)
	current = nil
}

func ExecuteContext(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	closeCurrent()
	if err != nil {
		serviceutil.Fatal("command failed", err)
	}
	slog.Debug("done")
}
