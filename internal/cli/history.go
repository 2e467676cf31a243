package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/fillercut/internal/history"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previous runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.Paths.HistoryDB)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Started", "Status", "Input", "Kept", "Cuts", "Error"},
				historyRows(runs),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of runs to show (0 for all)")
	return cmd
}

func historyRows(runs []history.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		kept := ""
		if r.Status == history.StatusCompleted {
			kept = fmt.Sprintf("%s / %s", fmtSec(r.KeptSec), fmtSec(r.SourceSec))
		}
		errText := r.Error
		if r.ErrorKind != "" {
			errText = r.ErrorKind + ": " + firstLine(errText)
		}
		rows = append(rows, []string{
			r.StartedAt.Local().Format(time.DateTime),
			r.Status,
			filepath.Base(r.Input),
			kept,
			fmt.Sprintf("%d", r.Cuts),
			errText,
		})
	}
	return rows
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
