package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var historyLimit *int

func init() {
	historyLimit = historyCmd.Flags().Int("limit", 20, "The number of queries to show.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--db <path/to/results.db>]",
	Short: "Prints the queries exported to the database, newest first.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if current.store == nil {
			return fmt.Errorf("no export database configured, pass --db or set \"database\" in the config")
		}
		queries, err := current.store.Queries(cmd.Context(), *historyLimit)
		if err != nil {
			return err
		}
		if current.flags.format == FORMAT_JSON {
			return writeJSON(os.Stdout, queries)
		}
		renderQueries(os.Stdout, queries)
		return nil
	},
}
