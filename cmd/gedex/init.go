package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dusk-indust/gedex/internal/config"
)

// mcpConfig represents the structure of a .mcp.json file.
type mcpConfig struct {
	MCPServers map[string]json.RawMessage `json:"mcpServers"`
}

// gedexMCPEntry is the MCP server configuration for the gedex binary.
var gedexMCPEntry = json.RawMessage(`{
  "type": "stdio",
  "command": "gedex",
  "args": ["serve-mcp"]
}`)

// runInit writes a starter gedex.yml and registers the tool server in the
// directory's .mcp.json.
func (a *app) runInit(args []string) error {
	fset := flag.NewFlagSet("init", flag.ContinueOnError)
	fset.SetOutput(a.stderr)
	force := fset.Bool("force", false, "overwrite existing files and entries")
	if err := fset.Parse(args); err != nil {
		return err
	}
	dir := "."
	if fset.NArg() > 0 {
		dir = fset.Arg(0)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return err
	}

	cfgPath := filepath.Join(abs, "gedex.yml")
	_, statErr := os.Stat(cfgPath)
	switch {
	case statErr == nil && !*force:
		fmt.Fprintln(a.stdout, "  skipped ./gedex.yml (exists, use --force to overwrite)")
	case statErr == nil || errors.Is(statErr, fs.ErrNotExist):
		if err := config.Save(abs, config.Default()); err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, "  created ./gedex.yml")
	default:
		return statErr
	}

	if err := a.mergeMCPConfig(filepath.Join(abs, ".mcp.json"), *force); err != nil {
		return err
	}

	fmt.Fprintln(a.stdout, "\nSetup complete. Run 'gedex serve-mcp' to start the tool server.")
	return nil
}

// mergeMCPConfig creates or merges the gedex entry into .mcp.json.
func (a *app) mergeMCPConfig(mcpPath string, force bool) error {
	var cfg mcpConfig

	data, err := os.ReadFile(mcpPath)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", mcpPath, err)
		}
	}

	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]json.RawMessage)
	}

	if _, exists := cfg.MCPServers["gedex"]; exists && !force {
		fmt.Fprintln(a.stdout, "  skipped .mcp.json gedex entry (exists, use --force to overwrite)")
		return nil
	}

	cfg.MCPServers["gedex"] = gedexMCPEntry

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling .mcp.json: %w", err)
	}

	if err := os.WriteFile(mcpPath, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", mcpPath, err)
	}

	action := "created"
	if data != nil {
		action = "updated"
	}
	fmt.Fprintf(a.stdout, "  %s .mcp.json with gedex MCP server\n", action)
	return nil
}
