package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"agcodex/internal/mode"
)

var modeCmd = &cobra.Command{
	Use:   "mode [plan|build|review|cycle]",
	Short: "Show or change the operating mode",
	Long: `Without arguments, prints the current operating mode and its policy.
With a mode name, switches to it. With "cycle", advances to the next mode
the way the cycle key does.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runModeCommand,
}

func runModeCommand(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 {
		if args[0] == "cycle" {
			next := a.modes.Cycle()
			fmt.Fprintf(cmd.OutOrStdout(), "mode is now %s\n", next.Label())
		} else {
			target, err := mode.Parse(args[0])
			if err != nil {
				return err
			}
			a.modes.SwitchTo(target)
			fmt.Fprintf(cmd.OutOrStdout(), "mode is now %s\n", target.Label())
		}
	}

	vis := a.modes.Visuals()
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", vis.Glyph, vis.Label)
	fmt.Fprintf(cmd.OutOrStdout(), "  writes:   %s\n", policyLine(a, "write"))
	fmt.Fprintf(cmd.OutOrStdout(), "  commands: %s\n", policyLine(a, "exec"))
	fmt.Fprintf(cmd.OutOrStdout(), "  git:      %s\n", policyLine(a, "git"))
	fmt.Fprintf(cmd.OutOrStdout(), "cycle with %s\n", a.modes.CycleKey())
	return nil
}

func policyLine(a *app, op string) string {
	var err error
	switch op {
	case "write":
		err = a.modes.ValidateFileWrite("probe", 1)
	case "exec":
		err = a.modes.ValidateCommand("probe")
	case "git":
		err = a.modes.ValidateGit("status")
	}
	if err != nil {
		return "denied"
	}
	if op == "write" && a.modes.Current() == mode.ModeReview {
		return fmt.Sprintf("allowed up to %d bytes", a.modes.ReviewWriteLimit())
	}
	return "allowed"
}
