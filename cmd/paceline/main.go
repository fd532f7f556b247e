package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paceline/paceline/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// exitStatus is what the process exits with after a clean Execute; the
// run command sets it to the solver's mirrored status
var exitStatus int

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(exitStatus)
}

var rootCmd = &cobra.Command{
	Use:   "paceline",
	Short: "Paceline - coordination worker for parallel solver races",
	Long: `Paceline runs one solver process against a problem instance and keeps
it in lockstep with the other workers racing on the same instance:
incumbent values are shared through a coordination agent, and in stop
mode the first finisher asks everyone else to stand down.

Without an agent configured it degrades to a plain solver launcher.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		jsonOut, _ := cmd.Flags().GetBool("log-json")
		log.Init(log.Config{
			Level:      log.Level(level),
			JSONOutput: jsonOut,
		})
	},
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Paceline version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Log JSON instead of console output")
}
