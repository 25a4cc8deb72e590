package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	a := newApp()
	if err := newRootCmd(a).Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "gridtutor: %v\n", err)
		os.Exit(1)
	}
}

// exitError ends the process with a specific code without printing.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }
