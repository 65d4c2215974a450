package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"covimpact/internal/history"
	"covimpact/internal/output"
)

var (
	historyLimitFlag int
	historyTopFlag   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect persisted analysis runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run's ranked entries",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	historyListCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "Number of runs to list")
	historyShowCmd.Flags().IntVarP(&historyTopFlag, "top", "n", 0, "Show only the top N entries (0 = all)")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory() (*history.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return history.Open(cfg.Root, newLogger(cfg))
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(historyLimitFlag)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded; use 'covimpact analyze --save'")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tWHEN\tLANGUAGE\tFUNCTIONS\tEDGES\tMODEL")
	for _, r := range runs {
		modelVersion := r.ModelVersion
		if r.NeutralFallback {
			modelVersion = "neutral fallback"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.CreatedAt.Format(time.RFC3339), r.Language, r.Functions, r.Edges, modelVersion)
	}
	return tw.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Entries(args[0], historyTopFlag)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("run %s not found or empty", args[0])
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tPRIORITY\tIMPACT\tCOMPLEXITY\tCONFIDENCE\tFUNCTION")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			e.Rank,
			output.FormatFloat(e.Priority),
			output.FormatFloat(e.Impact),
			output.FormatFloat(e.Complexity),
			output.FormatFloat(e.Confidence),
			e.FunctionID)
	}
	return tw.Flush()
}
