package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dusk-indust/gedex/internal/config"
	"github.com/dusk-indust/gedex/internal/gedcom"
)

// CLI flags parsed from command line.
type cliFlags struct {
	ConfigDir string
	DBPath    string
	Addr      string
	Workers   int
	Strict    bool
	Verbose   bool
	Version   bool
}

// version is set by goreleaser at build time.
var version = "dev"

const usage = `usage: gedex [flags] <command> [args]

commands:
  count <file>...     count lines matching neither line grammar
  parse <file>...     parse documents and print a summary of each
  export [--tags] <file>
                      print a parse result as JSON
  diagram <file>      print the family trees as a Mermaid diagram
  find <pattern>      search the graph persisted with --db
  watch <path>...     re-parse documents when they change
  serve-mcp           run the MCP tool server (stdio, or HTTP with --addr)
  init [dir]          write a starter gedex.yml and .mcp.json entry

flags:
`

// errUsage marks errors caused by bad invocation.
var errUsage = errors.New("usage")

// app carries what every subcommand needs.
type app struct {
	flags  cliFlags
	cfg    *config.ProjectConfig
	logger *slog.Logger
	parser *gedcom.Parser
	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var flags cliFlags

	fs := flag.NewFlagSet("gedex", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&flags.ConfigDir, "config-dir", ".", "directory containing gedex.yml")
	fs.StringVar(&flags.DBPath, "db", "", "persist the relationship graph to this Kuzu directory")
	fs.StringVar(&flags.Addr, "addr", "", "HTTP listen address for serve-mcp (default: stdio)")
	fs.IntVar(&flags.Workers, "workers", 0, "concurrent parses for multi-file commands")
	fs.BoolVar(&flags.Strict, "strict", false, "treat unrecognized lines as fatal")
	fs.BoolVar(&flags.Verbose, "verbose", false, "enable debug logging")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.Version {
		fmt.Fprintln(stdout, version)
		return nil
	}

	cfg, err := config.Load(flags.ConfigDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(fs, &flags, cfg)

	logger := cfg.NewLogger(stderr, flags.Verbose)
	a := &app{
		flags:  flags,
		cfg:    cfg,
		logger: logger,
		parser: gedcom.NewParser(cfg.ParserOptions(logger)...),
		stdout: stdout,
		stderr: stderr,
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("%w: no command given", errUsage)
	}
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	switch cmd {
	case "count":
		return a.runCount(rest)
	case "parse":
		return a.runParse(ctx, rest)
	case "export":
		return a.runExport(rest)
	case "diagram":
		return a.runDiagram(ctx, rest)
	case "find":
		return a.runFind(ctx, rest)
	case "watch":
		return a.runWatch(ctx, rest)
	case "serve-mcp":
		return a.runServeMCP(ctx)
	case "init":
		return a.runInit(rest)
	default:
		fs.Usage()
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

// applyFlags lets explicitly set flags override the config file.
func applyFlags(fs *flag.FlagSet, flags *cliFlags, cfg *config.ProjectConfig) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "strict":
			cfg.Strict = flags.Strict
		case "db":
			cfg.DBPath = flags.DBPath
		case "addr":
			cfg.MCPAddr = flags.Addr
		case "workers":
			if flags.Workers > 0 {
				cfg.Workers = flags.Workers
			}
		}
	})
}
