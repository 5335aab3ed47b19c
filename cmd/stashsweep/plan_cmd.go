package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fentz26/stashsweep/internal/connectors"
	"github.com/fentz26/stashsweep/internal/console"
	"github.com/fentz26/stashsweep/internal/controlplane"
	"github.com/fentz26/stashsweep/internal/tui"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the cleanup plan without changing anything",
	Args:  cobra.NoArgs,
	RunE:  runPlan,
}

var planBrowse bool

func init() {
	planCmd.Flags().BoolVar(&planBrowse, "browse", false, "Page through the plan full-screen")
	planCmd.Flags().StringVar(&gameName, "game", controlplane.DefaultGameState, "Stored game state to plan for when no game client is configured")
}

func tuiPrompt() connectors.Confirmer {
	return tui.NewPrompt(os.Stdin, os.Stdout)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, s, err := openConfig()
	if err != nil {
		return err
	}
	defer s.Close()

	game, _, err := controlplane.OpenGame(s, cfg, gameName)
	if err != nil {
		return err
	}

	out := console.New(os.Stderr)
	plan, err := controlplane.NewService(s, cfg, game, out).Plan(cmd.Context(), nil)
	if err != nil {
		return err
	}

	text := plan.Render()
	if text == "" {
		out.Successf("Nothing to clean up")
		return nil
	}
	if planBrowse {
		return tui.Browse(fmt.Sprintf("Cleanup plan (%d entries)", plan.Size()), text)
	}
	fmt.Print(text)
	return nil
}
