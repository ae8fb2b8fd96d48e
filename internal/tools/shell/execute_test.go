package shell

import (
	"context"
	"runtime"
	"strings"
	"testing"

	"agcodex/internal/mode"
	"agcodex/internal/tools"
)

func newToolbox(t *testing.T, m mode.Mode) *tools.Toolbox {
	t.Helper()
	return &tools.Toolbox{
		Modes:     mode.NewManager(m),
		Workspace: t.TempDir(),
	}
}

func TestRunCommandBuildMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("sh not available")
	}
	tb := newToolbox(t, mode.ModeBuild)

	out, err := RunCommandTool(tb).Execute(context.Background(), map[string]any{
		"command": "echo hello",
	})
	if err != nil {
		t.Fatalf("run_command: %v", err)
	}
	if !out.Success || !strings.Contains(out.Result.(string), "hello") {
		t.Fatalf("out = %+v", out)
	}
}

func TestRunCommandGatedOutsideBuild(t *testing.T) {
	for _, m := range []mode.Mode{mode.ModePlan, mode.ModeReview} {
		tb := newToolbox(t, m)
		out, err := RunCommandTool(tb).Execute(context.Background(), map[string]any{
			"command": "echo hello",
		})
		if err != nil {
			t.Fatalf("run_command: %v", err)
		}
		if out.Success || out.Diagnostics[0].Kind != tools.DiagModeViolation {
			t.Fatalf("%s mode: expected mode_violation, got %+v", m, out)
		}
		if !strings.Contains(out.Diagnostics[0].Message, string(m)) {
			t.Fatalf("message does not name the mode: %q", out.Diagnostics[0].Message)
		}
	}
}

func TestGitGatedOutsideBuild(t *testing.T) {
	tb := newToolbox(t, mode.ModeReview)
	out, err := GitTool(tb).Execute(context.Background(), map[string]any{
		"subcommand": "status",
	})
	if err != nil {
		t.Fatalf("git: %v", err)
	}
	if out.Success || out.Diagnostics[0].Kind != tools.DiagModeViolation {
		t.Fatalf("expected mode_violation, got %+v", out)
	}
}

func TestRunCommandFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("sh not available")
	}
	tb := newToolbox(t, mode.ModeBuild)

	out, err := RunCommandTool(tb).Execute(context.Background(), map[string]any{
		"command": "exit 3",
	})
	if err != nil {
		t.Fatalf("run_command: %v", err)
	}
	if out.Success || out.Diagnostics[0].Kind != tools.DiagIOError {
		t.Fatalf("expected io_error, got %+v", out)
	}
}
