package main

import (
	"flag"
	"fmt"

	"github.com/dusk-indust/gedex/internal/export"
)

func (a *app) runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	withTags := fs.Bool("tags", false, "include each record's full tag tree")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: gedex export [--tags] <file>", errUsage)
	}
	path := fs.Arg(0)

	res, err := a.parser.ParseFile(path)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	return export.WriteJSON(a.stdout, export.ExportDocument(path, res, *withTags))
}
