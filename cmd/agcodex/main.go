package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"agcodex/internal/agent"
	"agcodex/internal/config"
	"agcodex/internal/index"
	"agcodex/internal/logging"
	"agcodex/internal/mode"
	"agcodex/internal/orchestrator"
	"agcodex/internal/parser"
	"agcodex/internal/query"
	"agcodex/internal/tools"
	"agcodex/internal/tools/codedom"
	toolscore "agcodex/internal/tools/core"
	"agcodex/internal/tools/reason"
	"agcodex/internal/tools/shell"
)

var (
	// Global flags
	workspace string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "agcodex",
	Short: "AGCodex - subagent orchestration core",
	Long: `AGCodex is the headless core of an agentic coding assistant.

It parses @agent-name invocation plans out of a message, schedules the
referenced agents under operating-mode policy, and merges their results.
Agents consume a layered code-intelligence index (symbol, full-text,
AST, grep) built over a cached tree-sitter parser pool.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "workspace root directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging under .agcodex/logs")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(modeCmd)
	rootCmd.AddCommand(indexCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app wires the core together for one CLI invocation.
type app struct {
	cfg      *config.Config
	modes    *mode.Manager
	parsers  *parser.Engine
	queries  *query.Library
	index    *index.Engine
	toolbox  *tools.Toolbox
	registry *tools.Registry
	agents   *agent.Registry
	orch     *orchestrator.Orchestrator
}

func newApp() (*app, error) {
	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, err
	}

	logCfg := logging.Config{
		DebugMode:  cfg.Logging.DebugMode || verbose,
		Level:      cfg.Logging.Level,
		Categories: cfg.Logging.Categories,
	}
	if err := logging.Initialize(workspace, logCfg); err != nil {
		return nil, err
	}

	initial, err := mode.Parse(cfg.Mode.Default)
	if err != nil {
		return nil, err
	}
	modes := mode.NewManager(initial,
		mode.WithCycleKey(cfg.Mode.CycleKey),
		mode.WithReviewWriteLimit(cfg.Mode.ReviewWriteLimit))

	parsers, err := parser.NewEngine(cfg.Index.ParserPoolCap, cfg.Index.ParseCacheSize)
	if err != nil {
		return nil, err
	}
	queries := query.NewLibrary()
	idx := index.NewEngine(parsers, queries)

	tb := &tools.Toolbox{
		Modes:     modes,
		Parser:    parsers,
		Queries:   queries,
		Index:     idx,
		Workspace: workspace,
	}

	registry, err := buildToolRegistry(tb)
	if err != nil {
		return nil, err
	}

	agents, err := agent.NewRegistry(workspace, "")
	if err != nil {
		return nil, err
	}

	orch, err := orchestrator.New(cfg, agents, newLocalRunner(tb, registry), tb)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		modes:    modes,
		parsers:  parsers,
		queries:  queries,
		index:    idx,
		toolbox:  tb,
		registry: registry,
		agents:   agents,
		orch:     orch,
	}, nil
}

// buildToolRegistry registers the full tool set against one toolbox. The
// runner rebuilds it when an invocation carries its own toolbox, so tool
// gating always runs against the toolbox it was handed.
func buildToolRegistry(tb *tools.Toolbox) (*tools.Registry, error) {
	registry := tools.NewRegistry()
	if err := toolscore.RegisterAll(registry, tb); err != nil {
		return nil, err
	}
	if err := codedom.RegisterAll(registry, tb); err != nil {
		return nil, err
	}
	if err := reason.RegisterAll(registry); err != nil {
		return nil, err
	}
	if err := shell.RegisterAll(registry, tb); err != nil {
		return nil, err
	}
	return registry, nil
}

func (a *app) Close() {
	a.queries.Close()
	a.parsers.Close()
	logging.Shutdown()
}
