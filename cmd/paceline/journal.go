package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/paceline/paceline/pkg/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the run journal",
	Long: `List journaled runs, or dump one run's record trajectory.

Examples:
  # List every run in the journal
  paceline journal --db races.db

  # Dump one run's trajectory
  paceline journal --db races.db --run 5f2b7c1e-...`,
	RunE: runJournal,
}

func init() {
	journalCmd.Flags().String("db", "", "Journal database path (required)")
	journalCmd.Flags().String("run", "", "Dump one run's record trajectory")
	_ = journalCmd.MarkFlagRequired("db")

	rootCmd.AddCommand(journalCmd)
}

func runJournal(cmd *cobra.Command, args []string) error {
	dbPath, _ := cmd.Flags().GetString("db")
	runID, _ := cmd.Flags().GetString("run")

	store, err := journal.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if runID != "" {
		return dumpRun(store, runID)
	}
	return listRuns(store)
}

func listRuns(store *journal.Store) error {
	runs, err := store.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs journaled.")
		return nil
	}

	fmt.Printf("%-36s  %-12s  %-20s  %-5s  %-6s  %s\n",
		"RUN", "TASK", "INSTANCE", "STOP", "STATUS", "BEST")
	for _, run := range runs {
		best := "-"
		if run.HasBest {
			best = strconv.FormatFloat(run.BestValue, 'f', 4, 64)
		}
		fmt.Printf("%-36s  %-12s  %-20s  %-5t  %-6d  %s\n",
			run.ID, run.TaskID, run.Stub, run.StopMode, run.ExitStatus, best)
	}
	return nil
}

func dumpRun(store *journal.Store, runID string) error {
	run, err := store.GetRun(runID)
	if err != nil {
		return err
	}
	entries, err := store.Entries(runID)
	if err != nil {
		return err
	}

	fmt.Printf("Run:      %s\n", run.ID)
	if run.TaskID != "" {
		fmt.Printf("Task:     %s\n", run.TaskID)
	}
	fmt.Printf("Instance: %s\n", run.Stub)
	fmt.Printf("Started:  %s\n", run.StartedAt.Format(time.RFC3339))
	if !run.FinishedAt.IsZero() {
		fmt.Printf("Finished: %s (status %d)\n", run.FinishedAt.Format(time.RFC3339), run.ExitStatus)
	}
	if run.HasBest {
		fmt.Printf("Best:     %.4f\n", run.BestValue)
	}
	fmt.Println()

	if len(entries) == 0 {
		fmt.Println("No trajectory entries.")
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("%4d  %s  %-18s", e.Seq, e.Time.Format("15:04:05.000"), e.Type)
		if e.Value != 0 {
			line += fmt.Sprintf("  %.4f", e.Value)
		}
		if e.Message != "" {
			line += "  " + e.Message
		}
		fmt.Println(line)
	}
	return nil
}
