package main

import (
	"fmt"
)

// runCount prints the number of unrecognized lines of each file. Structure
// is not checked, so malformed documents still get a count.
func (a *app) runCount(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: gedex count <file>...", errUsage)
	}
	for _, path := range args {
		n, err := a.parser.CountUnparsedFile(path)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			fmt.Fprintln(a.stdout, n)
			continue
		}
		fmt.Fprintf(a.stdout, "%s: %d\n", path, n)
	}
	return nil
}
