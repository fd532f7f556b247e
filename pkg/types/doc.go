/*
Package types defines the core data structures used throughout paceline.

This package contains the fundamental types that represent paceline's domain
model: run specifications, agent coordinates, run lifecycle phases, and run
outcomes. These types are shared by the worker core, the journal, the ops
endpoint, and the CLI, so none of those packages need to import each other.

# Core Types

Run Description:
  - RunSpec: solver path, instance stub, stop-mode flag, params file,
    initial incumbent bound, work directory
  - RaceManifest: the YAML file form of a RunSpec (apiVersion/kind/
    metadata/spec), loaded via LoadManifest
  - AgentInfo: agent address, port, and task identifier; a zero port means
    the run is standalone with no coordination at all

Run Lifecycle:
  - RunPhase: pending, bootstrapping, racing, stopping, finished
  - RunInfo: persisted identity and outcome of one run (journal record)
  - RunResult: in-memory summary returned when a run ends

Sentinels:
  - NoBound (1e22): incumbent bounds at or above this value mean "no bound"
    and are never passed to a solver

# Usage

Describing a run:

	spec := types.RunSpec{
		Solver:       "/opt/solvers/minlp",
		Stub:         "foo.nl",
		StopMode:     true,
		ParamsFile:   "params.txt",
		InitialBound: types.NoBound,
	}

	agent := types.AgentInfo{
		Address: "localhost",
		Port:    35071,
		TaskID:  "task-42",
	}
	if agent.Standalone() {
		// no receiver loop, session operations become no-ops
	}

Loading a manifest:

	m, err := types.LoadManifest("race.yaml")
	if err != nil {
		return err
	}
	spec := m.Spec

A manifest file:

	apiVersion: paceline.dev/v1
	kind: Race
	metadata:
	  name: minlp-foo
	spec:
	  solver: /opt/solvers/minlp
	  instance: foo.nl
	  stopMode: true
	  paramsFile: params.txt
	  initialBound: 100.0

# Design Notes

All types are plain data with JSON and YAML tags where they cross a process
or storage boundary. Behavior lives in the packages that own it; the only
methods here are trivial derivations such as AgentInfo.Standalone.

An InitialBound of zero in a manifest is normalized to NoBound at load time:
races are minimization problems and a literal zero bound would reject every
positive objective, which is never what an omitted field means.

# See Also

  - pkg/worker: consumes RunSpec and AgentInfo, produces RunResult
  - pkg/journal: persists RunInfo
  - cmd/paceline: builds RunSpec from positional arguments or a manifest
*/
package types
