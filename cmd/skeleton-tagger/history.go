package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/ironsheep/skeleton-tagger-mcp/internal/report"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List summary rows appended by earlier runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		history, err := openHistory()
		if err != nil {
			return err
		}
		if history == nil {
			return errors.New("no history database configured: use --db or SKELETON_TAGGER_DB")
		}
		defer history.Close()

		rows, err := history.Rows(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if historyJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}

		table := report.NewTextTable(out)
		for _, row := range rows {
			if err := table.AppendRow(cmd.Context(), row); err != nil {
				return err
			}
		}
		return table.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum rows to list, 0 for all")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
}
