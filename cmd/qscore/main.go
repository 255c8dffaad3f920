package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess    = 0 // Run completed and passed
	ExitTestFailed = 1 // Thresholds missed, or rows dropped under --strict
	ExitError      = 2 // Configuration, load or model error
)

// TestFailureError indicates that the command ran to completion but the
// result did not meet the bar: an eval missed a threshold, or a strict score
// dropped reply rows.
type TestFailureError struct {
	Message string
}

func (e *TestFailureError) Error() string {
	return e.Message
}

func main() {
	os.Exit(exitCode(execute()))
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprintln(os.Stderr, err)

	var testFailureErr *TestFailureError
	if errors.As(err, &testFailureErr) {
		return ExitTestFailed
	}
	return ExitError
}
