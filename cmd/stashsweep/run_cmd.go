package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/fentz26/stashsweep/internal/connectors"
	"github.com/fentz26/stashsweep/internal/console"
	"github.com/fentz26/stashsweep/internal/controlplane"
	"github.com/fentz26/stashsweep/internal/orchestrator"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Clean up the inventory according to the rule file",
	Long: `Plans the cleanup, runs every action category in order and replans after any action that
changes holdings. With --simulate nothing is changed but the would-be commands and profit are shown.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var (
	runSimulate bool
	runYes      bool
	runNo       bool
	gameName    string
)

func init() {
	runCmd.Flags().BoolVar(&runSimulate, "simulate", false, "Show what would be done without doing it")
	runCmd.Flags().BoolVar(&runYes, "yes", false, "Answer yes to every prompt")
	runCmd.Flags().BoolVar(&runNo, "no", false, "Answer no to every prompt")
	runCmd.MarkFlagsMutuallyExclusive("yes", "no")
	runCmd.Flags().StringVar(&gameName, "game", controlplane.DefaultGameState, "Stored game state to act on when no game client is configured")
}

// confirmer picks how prompts are answered for this invocation. Without a
// terminal every prompt takes the answer no.
func confirmer(yes, no bool) connectors.Confirmer {
	switch {
	case yes:
		return &connectors.StaticConfirmer{Answer: true}
	case no:
		return &connectors.StaticConfirmer{Answer: false}
	}
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		log.Printf("[cli] stdin is not a terminal; answering no to prompts")
		return &connectors.StaticConfirmer{Answer: false}
	}
	return tuiPrompt()
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, s, err := openConfig()
	if err != nil {
		return err
	}
	defer s.Close()

	game, mem, err := controlplane.OpenGame(s, cfg, gameName)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := console.New(os.Stdout)
	simulate := runSimulate || cfg.SimulateOnly
	if simulate {
		out.Heading("stashsweep (simulated) on " + game.Name())
	} else {
		out.Heading("stashsweep on " + game.Name())
	}

	svc := controlplane.NewService(s, cfg, game, out)
	res, runErr := svc.Run(ctx, controlplane.RunOptions{
		Simulate: runSimulate,
		Confirm:  confirmer(runYes, runNo),
	})

	// partial progress is kept, so the simulated game is saved even on failure
	if mem != nil && res != nil && !simulate {
		if err := controlplane.SaveGame(s, gameName, mem); err != nil {
			log.Printf("[cli] failed to save game state %q: %v", gameName, err)
			out.Warnf("Could not save game state: %v", err)
		}
	}

	if res == nil {
		return runErr
	}
	report := res.Report
	switch {
	case runErr == nil:
		if report.StockingCost > 0 {
			out.Infof("Stocking cost: %s", meat(report.StockingCost))
		}
		out.Successf("Cleanup complete: %s expected profit, %d replans (run %s)", meat(report.Profit), report.Replans, res.Run.ID)
	case errors.Is(runErr, orchestrator.ErrAborted):
		out.Warnf("Cleanup stopped (run %s)", res.Run.ID)
	default:
		out.Errorf("Cleanup failed with %s profit so far (run %s)", meat(max(report.Profit, 0)), res.Run.ID)
	}
	return runErr
}
