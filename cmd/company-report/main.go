// company-report runs the collector and analyst agents for one company and
// prints the resulting intelligence report.
//
// Usage:
//
//	company-report [company] [--format text|json]
//	company-report history <company> [--limit n]
//	company-report show <run-id>
//	company-report search <text>
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// errReportFailed marks a run whose error was already printed with the report.
var errReportFailed = errors.New("report failed")

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout)
	cmd.SetArgs(args)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errReportFailed) {
			fmt.Fprintln(stderr, err)
		}
		return 1
	}
	return 0
}
