package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/paceline/paceline/pkg/events"
	"github.com/paceline/paceline/pkg/journal"
	"github.com/paceline/paceline/pkg/log"
	"github.com/paceline/paceline/pkg/metrics"
	"github.com/paceline/paceline/pkg/protocol"
	"github.com/paceline/paceline/pkg/solver"
	"github.com/paceline/paceline/pkg/types"
	"github.com/paceline/paceline/pkg/worker"
)

// Environment variables locating the coordination agent. The worker joins
// a coordinated race only when the port is set and non-zero.
const (
	envAgentPort    = "PACELINE_AGENT_PORT"
	envAgentAddress = "PACELINE_AGENT_ADDRESS"
	envAgentTaskID  = "PACELINE_AGENT_TASK_ID"
)

var runCmd = &cobra.Command{
	Use:   "run [SOLVER STUB STOP_MODE PARAMS_FILE INITIAL_BOUND]",
	Short: "Run one leg of a solver race",
	Long: `Run a solver against a problem instance, sharing incumbent values
with the other workers racing on it.

The agent's coordinates come from the environment (PACELINE_AGENT_PORT,
PACELINE_AGENT_ADDRESS, PACELINE_AGENT_TASK_ID); without them the solver
runs standalone. The run is described either by five positional
arguments or by a race manifest.

Examples:
  # Positional form: solver, instance stub, stop mode, params file, bound
  paceline run /opt/solvers/minlp foo.nl 1 params.txt 1e22

  # Manifest form
  paceline run -f race.yaml`,
	Args: cobra.RangeArgs(0, 5),
	RunE: runRace,
}

func init() {
	runCmd.Flags().StringP("manifest", "f", "", "Race manifest YAML instead of positional arguments")
	runCmd.Flags().String("work-dir", "", "Directory for solution files (default: current directory)")
	runCmd.Flags().String("journal", "", "Journal database recording the run")
	runCmd.Flags().String("metrics-addr", "", "Ops endpoint address, e.g. :9090 (disabled when empty)")

	rootCmd.AddCommand(runCmd)
}

func runRace(cmd *cobra.Command, args []string) error {
	spec, err := resolveSpec(cmd, args)
	if err != nil {
		return err
	}
	agent, err := agentFromEnv()
	if err != nil {
		return err
	}

	journalPath, _ := cmd.Flags().GetString("journal")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	var store *journal.Store
	if journalPath != "" {
		store, err = journal.Open(journalPath)
		if err != nil {
			return err
		}
		defer store.Close()
		metrics.RegisterComponent("journal", true, "")

		follower := journal.NewFollower(store, broker)
		follower.Start()
		defer follower.Stop()
	}

	if metricsAddr != "" {
		metrics.SetVersion(Version)

		collector := metrics.NewCollector(broker)
		collector.Start()
		defer collector.Stop()

		srv := metrics.NewServer()
		go func() {
			if err := srv.Start(metricsAddr); err != nil {
				log.Logger.Error().Err(err).Msg("Ops endpoint failed")
			}
		}()
		defer srv.Stop()
	}

	session, err := protocol.Connect(protocol.Config{Agent: agent, Stub: spec.Stub})
	if err != nil {
		return fmt.Errorf("failed to reach agent: %w", err)
	}
	defer session.Close()

	w, err := worker.NewWorker(worker.Config{
		Spec:       spec,
		Session:    session,
		Supervisor: solver.NewExecSupervisor(),
		Broker:     broker,
	})
	if err != nil {
		return err
	}

	if metricsAddr != "" {
		metrics.SetRun(w.RunID(), agent.TaskID, spec.Stub, spec.StopMode)
	}

	started := time.Now()
	if store != nil {
		saveRun(store, w.RunID(), agent, spec, started, nil)
	}

	// A signal ends the race early; the worker still reaps the solver
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Logger.Info().Str("signal", sig.String()).Msg("Signal received, ending race")
		w.Stop()
	}()

	result, runErr := w.Run()

	if store != nil {
		saveRun(store, w.RunID(), agent, spec, started, &result)
	}
	if runErr != nil {
		return runErr
	}

	exitStatus = result.ExitStatus
	return nil
}

// resolveSpec builds the run specification from either the manifest flag
// or the five positional arguments
func resolveSpec(cmd *cobra.Command, args []string) (types.RunSpec, error) {
	manifestPath, _ := cmd.Flags().GetString("manifest")

	var spec types.RunSpec
	switch {
	case manifestPath != "":
		if len(args) > 0 {
			return spec, fmt.Errorf("--manifest and positional arguments are mutually exclusive")
		}
		m, err := types.LoadManifest(manifestPath)
		if err != nil {
			return spec, err
		}
		spec = m.Spec

	case len(args) == 5:
		stopMode, err := strconv.ParseBool(args[2])
		if err != nil {
			return spec, fmt.Errorf("invalid stop mode %q: %w", args[2], err)
		}
		bound, err := strconv.ParseFloat(args[4], 64)
		if err != nil {
			return spec, fmt.Errorf("invalid initial bound %q: %w", args[4], err)
		}
		spec = types.RunSpec{
			Solver:       args[0],
			Stub:         args[1],
			StopMode:     stopMode,
			ParamsFile:   args[3],
			InitialBound: bound,
		}

	default:
		return spec, fmt.Errorf("expected 5 positional arguments or --manifest")
	}

	if workDir, _ := cmd.Flags().GetString("work-dir"); workDir != "" {
		spec.WorkDir = workDir
	}
	return spec, nil
}

// agentFromEnv reads the coordination agent's location. No port means no
// agent, which is a valid standalone configuration, not an error.
func agentFromEnv() (types.AgentInfo, error) {
	agent := types.AgentInfo{
		Address: os.Getenv(envAgentAddress),
		TaskID:  os.Getenv(envAgentTaskID),
	}
	if agent.Address == "" {
		agent.Address = "localhost"
	}
	if raw := os.Getenv(envAgentPort); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return agent, fmt.Errorf("invalid %s %q: %w", envAgentPort, raw, err)
		}
		agent.Port = port
	}
	return agent, nil
}

// saveRun journals the run's identity, and once finished its outcome
func saveRun(store *journal.Store, runID string, agent types.AgentInfo, spec types.RunSpec, started time.Time, result *types.RunResult) {
	info := &types.RunInfo{
		ID:        runID,
		TaskID:    agent.TaskID,
		Stub:      spec.Stub,
		StopMode:  spec.StopMode,
		StartedAt: started,
	}
	if result != nil {
		info.FinishedAt = time.Now()
		info.ExitStatus = result.ExitStatus
		info.BestValue = result.BestValue
		info.HasBest = result.HasBest
	}
	if err := store.SaveRun(info); err != nil {
		metrics.UpdateComponent("journal", false, err.Error())
		log.Logger.Warn().Err(err).Msg("Failed to journal run")
	}
}
