package worker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// solutionExt is the extension of the canonical solution output file
	solutionExt = ".sol"

	// solutionFileMode is the permission for written solution files
	solutionFileMode = 0644
)

// canonicalSolutionPath names the instance's solution output file: the
// stub's basename with its extension swapped for .sol, inside the work
// directory (foo.nl -> <workDir>/foo.sol)
func canonicalSolutionPath(workDir, stub string) string {
	base := filepath.Base(stub)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + solutionExt
	return filepath.Join(workDir, name)
}

// outsolPath names a solution file the solver materialized for an
// incumbent-solution event
func outsolPath(workDir string, seq int) string {
	return filepath.Join(workDir, fmt.Sprintf("outsol-%d"+solutionExt, seq))
}

// insolPath names a solution file the receiver loop materializes for the
// solver to pick up
func insolPath(workDir string, seq int) string {
	return filepath.Join(workDir, fmt.Sprintf("insol-%d"+solutionExt, seq))
}

// writeSolutionFile persists solution bytes, overwriting any previous
// content
func writeSolutionFile(path string, blob []byte) error {
	if err := os.WriteFile(path, blob, solutionFileMode); err != nil {
		return fmt.Errorf("failed to write solution file: %w", err)
	}
	return nil
}

// firstSolutionLine reads back the first line of a solution file, the
// solver's human-readable summary of the answer
func firstSolutionLine(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read solution file: %w", err)
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return line, nil
}
