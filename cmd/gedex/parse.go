package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/dusk-indust/gedex/internal/batch"
	"github.com/dusk-indust/gedex/internal/export"
	"github.com/dusk-indust/gedex/internal/gedcom"
	"github.com/dusk-indust/gedex/internal/graph"
)

// runParse parses every file concurrently and prints one summary per file.
// With --db, a single document's graph is persisted to the Kuzu directory.
func (a *app) runParse(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: gedex parse <file>...", errUsage)
	}
	if a.cfg.DBPath != "" && len(args) != 1 {
		return fmt.Errorf("%w: --db takes exactly one document", errUsage)
	}

	var onProgress func(batch.ProgressEvent)
	if a.flags.Verbose && len(args) > 1 {
		onProgress = func(ev batch.ProgressEvent) {
			fmt.Fprintln(a.stderr, batch.FormatProgress(ev))
		}
	}

	results, err := batch.ParseFiles(ctx, a.parser, args, batch.Options{
		Workers:    a.cfg.Workers,
		OnProgress: onProgress,
		Logger:     a.logger,
	})
	if err != nil {
		return err
	}

	var failed []string
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(a.stdout, "%s: %v\n", r.Path, r.Err)
			failed = append(failed, r.Path)
			continue
		}
		a.printSummary(r.Path, r.Result)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d documents failed: %s", len(failed), len(results), strings.Join(failed, ", "))
	}

	if a.cfg.DBPath != "" {
		return a.persist(ctx, results[0].Result)
	}
	return nil
}

// printSummary writes the record counts and diagnostics of one result.
func (a *app) printSummary(path string, res *gedcom.Result) {
	doc := export.ExportDocument(path, res, false)
	s := doc.Summary

	kinds := make([]string, 0, len(s.ByKind))
	for k := range s.ByKind {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s=%d", k, s.ByKind[k]))
	}

	fmt.Fprintf(a.stdout, "%s: %d lines, %d records (%s), %d unparsed, %d dangling\n",
		path, s.Lines, s.Records, strings.Join(parts, " "), s.Unparsed, s.Dangling)
	for _, d := range doc.Dangling {
		switch d.Reason {
		case gedcom.ReasonUnresolved:
			fmt.Fprintf(a.stdout, "  line %d: %s %s %s: %s not found\n", d.Line, d.Source, d.Role, d.Target, d.Missing)
		case gedcom.ReasonMalformed:
			fmt.Fprintf(a.stdout, "  line %d: %s %s: malformed reference %q\n", d.Line, d.Source, d.Role, d.Content)
		default:
			fmt.Fprintf(a.stdout, "  line %d: %s %s %s: %s\n", d.Line, d.Source, d.Role, d.Target, d.Reason)
		}
	}
}

// persist writes res into the Kuzu database at the configured path,
// replacing any graph stored there before.
func (a *app) persist(ctx context.Context, res *gedcom.Result) (err error) {
	if info, statErr := os.Stat(a.cfg.DBPath); statErr == nil {
		if info.IsDir() {
			return fmt.Errorf("refusing to replace directory %s with a graph database", a.cfg.DBPath)
		}
		for _, p := range []string{a.cfg.DBPath, a.cfg.DBPath + ".wal"} {
			if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("remove old graph: %w", err)
			}
		}
	}

	store, err := openStore(a.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open graph: %w", err)
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()

	trees, err := graph.Build(ctx, store, res.Registry)
	if err != nil {
		return fmt.Errorf("build graph: %w", err)
	}
	a.logger.Info("graph persisted", "path", a.cfg.DBPath, "records", res.Registry.Len(), "trees", len(trees))
	return nil
}
