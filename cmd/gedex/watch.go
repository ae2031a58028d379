package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dusk-indust/gedex/internal/watch"
)

// runWatch prints a summary of each document now and again whenever it
// changes, until interrupted.
func (a *app) runWatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: gedex watch <path>...", errUsage)
	}

	w, err := watch.New(args, watch.Options{Logger: a.logger})
	if err != nil {
		return err
	}
	defer w.Close()

	reparse := func(_ context.Context, path string) {
		res, err := a.parser.ParseFile(path)
		if err != nil {
			fmt.Fprintf(a.stdout, "%s: %v\n", path, err)
			return
		}
		a.printSummary(path, res)
	}

	for _, path := range args {
		if isDir(path) {
			continue
		}
		reparse(ctx, path)
	}
	a.logger.Info("watching for changes", "paths", args)
	return w.Run(ctx, reparse)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
