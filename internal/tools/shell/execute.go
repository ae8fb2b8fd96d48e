package shell

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"agcodex/internal/logging"
	"agcodex/internal/tools"
)

const maxOutput = 50000

// RunCommandTool returns a tool for executing shell commands. The exec
// gate runs first; only Build mode permits commands.
func RunCommandTool(tb *tools.Toolbox) *tools.Tool {
	return &tools.Tool{
		Name:        "run_command",
		Description: "Execute a shell command and return its output",
		Category:    tools.CategoryEdit,
		Priority:    70,
		Mutating:    true,
		Execute: func(ctx context.Context, args map[string]any) (*tools.Output, error) {
			return executeRunCommand(ctx, tb, args)
		},
		Schema: tools.Schema{
			Required: []string{"command"},
			Properties: map[string]tools.Property{
				"command": {
					Type:        "string",
					Description: "The command to execute",
				},
				"working_dir": {
					Type:        "string",
					Description: "Working directory for the command",
				},
				"timeout_seconds": {
					Type:        "integer",
					Description: "Timeout in seconds (default: 60)",
					Default:     60,
				},
			},
		},
	}
}

func executeRunCommand(ctx context.Context, tb *tools.Toolbox, args map[string]any) (*tools.Output, error) {
	command := tools.StringArg(args, "command", "")
	if command == "" {
		return tools.Fail(tools.DiagValidation, "command is required"), nil
	}
	if err := tb.Modes.ValidateCommand(command); err != nil {
		return tools.Fail(tools.DiagModeViolation, "%v", err), nil
	}

	workingDir := tools.StringArg(args, "working_dir", tb.Workspace)
	timeout := tools.IntArg(args, "timeout_seconds", 60)

	logging.ToolsDebug("run_command: cmd=%s, dir=%s, timeout=%ds", command, workingDir, timeout)

	execCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(execCtx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(execCtx, "sh", "-c", command)
	}
	cmd.Dir = workingDir
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	output := stdout.String()
	if stderr.Len() > 0 {
		if output != "" {
			output += "\n--- stderr ---\n"
		}
		output += stderr.String()
	}
	if len(output) > maxOutput {
		output = output[:maxOutput] + "\n...[truncated]"
	}

	if err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return tools.Fail(tools.DiagIOError, "command timed out after %d seconds", timeout), nil
		}
		logging.Tools("run_command failed: %s (%v)", command, err)
		out := tools.Fail(tools.DiagIOError, "command failed: %v", err)
		out.Result = output
		return out, nil
	}

	logging.Tools("run_command completed: %s (%d bytes output)", command, len(output))
	return tools.Ok(output, fmt.Sprintf("exit 0, %d bytes", len(output))), nil
}

// GitTool returns a tool for git subcommands, behind the git gate.
func GitTool(tb *tools.Toolbox) *tools.Tool {
	return &tools.Tool{
		Name:        "git",
		Description: "Run a git subcommand in the workspace",
		Category:    tools.CategoryEdit,
		Priority:    65,
		Mutating:    true,
		Execute: func(ctx context.Context, args map[string]any) (*tools.Output, error) {
			return executeGit(ctx, tb, args)
		},
		Schema: tools.Schema{
			Required: []string{"subcommand"},
			Properties: map[string]tools.Property{
				"subcommand": {
					Type:        "string",
					Description: "Git subcommand with arguments (e.g. 'status --short')",
				},
			},
		},
	}
}

func executeGit(ctx context.Context, tb *tools.Toolbox, args map[string]any) (*tools.Output, error) {
	sub := tools.StringArg(args, "subcommand", "")
	if sub == "" {
		return tools.Fail(tools.DiagValidation, "subcommand is required"), nil
	}
	if err := tb.Modes.ValidateGit(sub); err != nil {
		return tools.Fail(tools.DiagModeViolation, "%v", err), nil
	}

	fields := strings.Fields(sub)
	cmd := exec.CommandContext(ctx, "git", fields...)
	cmd.Dir = tb.Workspace

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	if err := cmd.Run(); err != nil {
		out := tools.Fail(tools.DiagIOError, "git %s: %v", fields[0], err)
		out.Result = buf.String()
		return out, nil
	}
	return tools.Ok(buf.String(), "git "+fields[0]), nil
}
