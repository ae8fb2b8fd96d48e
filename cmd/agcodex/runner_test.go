package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"agcodex/internal/agent"
	"agcodex/internal/index"
	"agcodex/internal/mode"
	"agcodex/internal/orchestrator"
	"agcodex/internal/parser"
	"agcodex/internal/query"
	"agcodex/internal/tools"
)

func testToolbox(t *testing.T, m mode.Mode, workspace string) *tools.Toolbox {
	t.Helper()
	pe, err := parser.NewEngine(2, 16)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(pe.Close)
	lib := query.NewLibrary()
	t.Cleanup(lib.Close)
	return &tools.Toolbox{
		Modes:     mode.NewManager(m),
		Parser:    pe,
		Queries:   lib,
		Index:     index.NewEngine(pe, lib),
		Workspace: workspace,
	}
}

func seedFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("package p\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLocalRunnerUsesPassedToolbox(t *testing.T) {
	ambientWS := t.TempDir()
	seedFiles(t, ambientWS, "one.go")
	ambient := testToolbox(t, mode.ModeBuild, ambientWS)

	registry, err := buildToolRegistry(ambient)
	if err != nil {
		t.Fatalf("buildToolRegistry: %v", err)
	}
	r := newLocalRunner(ambient, registry)

	overrideWS := t.TempDir()
	seedFiles(t, overrideWS, "a.go", "b.go", "c.go")
	override := testToolbox(t, mode.ModeReview, overrideWS)

	desc := &agent.Descriptor{Name: "survey", Prompt: "p"}
	ac := orchestrator.NewAgentContext("survey", mode.ModeReview, map[string]string{}, orchestrator.NewSharedContext())

	res, err := r.Execute(context.Background(), desc, ac, override)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := res.Metrics["workspace_files"]; got != 3 {
		t.Errorf("survey ran against the wrong toolbox: workspace_files = %v, want 3", got)
	}

	// The ambient toolbox still drives execution when it is the one passed.
	ac = orchestrator.NewAgentContext("survey", mode.ModeBuild, map[string]string{}, orchestrator.NewSharedContext())
	res, err = r.Execute(context.Background(), desc, ac, ambient)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := res.Metrics["workspace_files"]; got != 1 {
		t.Errorf("ambient run saw workspace_files = %v, want 1", got)
	}
}
