// Command csvquality runs the dashboard's CSV quality check from the
// command line.
//
//	csvquality analyze sales.csv --mode "Sales Analysis" --format yaml
//
// Exit status is 0 when the check ran, 2 when required columns are
// missing and 1 on any other error.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// exitError ends the command with a specific status and no message.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
