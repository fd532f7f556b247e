package framework

import (
	"fmt"
	"os"
	"time"
)

// pollInterval is how often the waiters re-check their condition
const pollInterval = 10 * time.Millisecond

// WaitFor polls a condition until it holds or the timeout passes
func WaitFor(cond func() bool, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("condition not met within %s", timeout)
		}
		time.Sleep(pollInterval)
	}
}

// WaitForFile polls until the file exists and is non-empty, then returns
// its contents. Useful for artifacts a solver script materializes.
func WaitForFile(path string, timeout time.Duration) ([]byte, error) {
	var data []byte
	err := WaitFor(func() bool {
		var readErr error
		data, readErr = os.ReadFile(path)
		return readErr == nil && len(data) > 0
	}, timeout)
	if err != nil {
		return nil, fmt.Errorf("file %s not written within %s", path, timeout)
	}
	return data, nil
}
