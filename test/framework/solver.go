package framework

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteSolver materializes a fake solver shell script in dir and returns
// its path. The script body speaks the supervisor's pipe protocol: event
// lines on stdout, bound pushes on stdin, SIGINT as the stop signal.
func WriteSolver(t TestingT, dir, body string) string {
	t.Helper()

	path := filepath.Join(dir, "solver.sh")
	script := "#!/bin/sh\n" + body
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("Failed to write solver script: %v", err)
	}
	return path
}

// QuickWinScript is a solver that immediately reports an incumbent and
// the final result, both at the given objective value, and exits cleanly
func QuickWinScript(value string) string {
	return fmt.Sprintf("echo \"incumbent %s\"\necho \"result %s 0\"\n", value, value)
}

// StubbornScript is a solver that reports one incumbent and then races
// forever, exiting with the given status only after receiving the given
// number of interrupts
func StubbornScript(value string, interrupts, status int) string {
	return fmt.Sprintf(`hits=0
trap 'hits=$((hits+1)); if [ "$hits" -ge %d ]; then exit %d; fi' INT
echo "incumbent %s"
while :; do sleep 0.05; done
`, interrupts, status, value)
}
