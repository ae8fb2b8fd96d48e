package logging

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestDisabledIsNoop(t *testing.T) {
	if err := Initialize("", Config{DebugMode: false}); err != nil {
		t.Fatalf("Initialize with debug off should not fail: %v", err)
	}
	defer Shutdown()

	// Must not panic or create files.
	Boot("hello %s", "world")
	ToolsDebug("ignored")

	if logsDir != "" {
		t.Error("logsDir should stay empty in production mode")
	}
}

func TestInitializeCreatesLogsDir(t *testing.T) {
	ws := t.TempDir()
	if err := Initialize(ws, Config{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer Shutdown()

	dir := filepath.Join(ws, ".agcodex", "logs")
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("logs dir not created: %v", err)
	}

	Orchestrator("plan started")
	Shutdown()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 {
		t.Error("expected a log file for the orchestrator category")
	}
}

func TestCategoryFilter(t *testing.T) {
	ws := t.TempDir()
	err := Initialize(ws, Config{
		DebugMode:  true,
		Categories: map[string]bool{"tools": false},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer Shutdown()

	if enabled(CategoryTools) {
		t.Error("tools category should be disabled")
	}
	if !enabled(CategoryOrchestrator) {
		t.Error("unlisted categories default to enabled")
	}
	if got := Get(CategoryTools); got != nop {
		t.Error("disabled category should get the no-op logger")
	}
}

func TestGetRacesWithInitialize(t *testing.T) {
	ws := t.TempDir()
	if err := Initialize(ws, Config{DebugMode: true}); err != nil {
		t.Fatal(err)
	}
	defer Shutdown()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				Get(CategoryTools).Debugf("n=%d", j)
			}
		}()
	}
	for i := 0; i < 10; i++ {
		cfg := Config{DebugMode: true, Categories: map[string]bool{"tools": i%2 == 0}}
		if err := Initialize(ws, cfg); err != nil {
			t.Fatal(err)
		}
	}
	wg.Wait()
}

func TestTimer(t *testing.T) {
	if err := Initialize("", Config{}); err != nil {
		t.Fatal(err)
	}
	timer := StartTimer(CategoryIndex, "symbol lookup")
	if d := timer.Stop(); d < 0 {
		t.Error("duration should be non-negative")
	}
}
