package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"agcodex/internal/invoke"
)

var runCmd = &cobra.Command{
	Use:   "run [message]",
	Short: "Execute an @agent invocation plan",
	Long: `Parses @agent-name tokens and operators out of the message and
executes the resulting plan.

Operators:
  @a -> @b   sequential, passing each summary to the next step
  @a + @b    parallel fan-out
  @a @b      sequential without output passing
  @a ?{k}    conditional on a shared-context key
  ---        barrier between steps

Example:
  agcodex run "review the auth package @code-reviewer focus=correctness"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlanCommand,
}

func runPlanCommand(cmd *cobra.Command, args []string) error {
	message := strings.Join(args, " ")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	req, err := invoke.NewParser(a.agents).Parse(message)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		a.orch.Cancel()
	}()

	report, err := a.orch.ExecutePlan(ctx, req)
	if err != nil {
		return err
	}

	fmt.Println(report.Summary)
	if !report.Success && !report.PartialSuccess {
		return fmt.Errorf("no step completed")
	}
	return nil
}
