// Command graceful-demo exercises the shutdown coordinator end to end.
//
//	graceful-demo run --scenario reject --after 1s
//	graceful-demo serve --probe-port 8081
//	graceful-demo supervise --scenario hang --after 1s --timeout 2s
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	root := newRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// exitError carries a non-zero exit code out of a command.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

func exitStatus(code int) error {
	if code == 0 {
		return nil
	}
	return &exitError{code: code}
}
