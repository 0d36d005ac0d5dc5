package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/advisim/advisim/internal/agents"
)

func agentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Manage the remote assistants backing the agents",
	}
	cmd.AddCommand(agentsEnsureCmd(), agentsListCmd())
	return cmd
}

func agentsEnsureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure",
		Short: "Create any missing remote assistants",
		Long: `Resolve each agent's remote assistant by name, creating the ones
that do not exist yet. Running ensure twice is a no-op.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			model := cfg.Assistants.Model
			scope := cfg.Assistants.NameScope
			store := agents.NewContextStore()

			all := []*agents.Agent{
				agents.NewSimulationClientAgent(reasoning, model, scope, store).Agent,
				agents.NewProfileGenerationAgent(reasoning, model, scope, nil).Agent,
				agents.NewEvaluationAgent(reasoning, model, scope, nil, nil).Agent,
				agents.NewExpertGuidanceAgent(reasoning, model, scope, store).Agent,
			}

			for _, agent := range all {
				if err := agent.Initialize(ctx); err != nil {
					return fmt.Errorf("ensure %s: %w", agent.Name(), err)
				}
				fmt.Printf("ok  %s\n", agent.Name())
			}
			return nil
		},
	}
}

func agentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List remote assistants",
		RunE: func(cmd *cobra.Command, args []string) error {
			remote, err := reasoning.ListAssistants(cmd.Context())
			if err != nil {
				return fmt.Errorf("list assistants: %w", err)
			}
			if len(remote) == 0 {
				fmt.Println("No assistants found.")
				return nil
			}
			for _, a := range remote {
				fmt.Printf("%-36s %s\n", a.Name, a.ID)
			}
			return nil
		},
	}
}
