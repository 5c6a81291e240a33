package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/formatkeeper/internal/core/db"
	"github.com/solatis/formatkeeper/internal/report"
	"github.com/solatis/formatkeeper/internal/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded check runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Print the report of a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.Flags().IntP("limit", "n", db.DefaultListLimit, "maximum runs to list")
	historyShowCmd.Flags().StringP("format", "f", "text", "report format (text, json, html)")
}

func openHistory() (*db.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := requireDB(cfg); err != nil {
		return nil, err
	}
	return db.OpenStore(cfg.DB.URL, logger)
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit < 1 {
		return fmt.Errorf("--limit must be positive, got %d", limit)
	}
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no recorded runs")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			string(r.ID),
			r.StartedAt.Local().Format(time.DateTime),
			r.Document,
			strconv.Itoa(r.DiagnosticCount),
			time.Duration(r.DurationNS).Round(time.Millisecond).String(),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"RUN ID", "STARTED", "DOCUMENT", "DIAGNOSTICS", "DURATION"}, rows))
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	id, err := types.ParseRunID(args[0])
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	renderer, err := report.NewRenderer(report.Format(format), report.Options{
		Color: report.ColorEnabled(os.Stdout),
		Width: report.TerminalWidth(os.Stdout),
	})
	if err != nil {
		return err
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}
	return renderer.Render(cmd.OutOrStdout(), []*types.CheckRun{run})
}
