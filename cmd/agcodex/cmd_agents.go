package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List available agents",
	Long: `Lists every registered agent: built-ins, the per-user tier
(~/.agcodex/agents), and the project tier (nearest ancestor .agcodex/agents).
Project descriptors shadow global and built-in ones with the same name.`,
	RunE: listAgents,
}

func listAgents(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSOURCE\tDESCRIPTION")
	for _, md := range a.agents.List() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", md.Name, md.Source, md.Description)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if warnings := a.agents.Warnings(); len(warnings) > 0 {
		fmt.Fprintln(cmd.OutOrStdout())
		for _, warn := range warnings {
			fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", warn)
		}
	}
	return nil
}
