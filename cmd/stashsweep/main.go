package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fentz26/stashsweep/internal/config"
	"github.com/fentz26/stashsweep/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "stashsweep",
	Short: "stashsweep - rule-driven inventory cleanup",
	Long: `stashsweep plans and carries out inventory cleanup from a rule file: every item is
sold, crafted, pulverized, gifted or stored according to its rule, and the plan is rebuilt
whenever an action changes what is held.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !verbose {
			log.SetOutput(io.Discard)
		}
	},
}

var (
	configPath string
	verbose    bool
)

func init() {
	homeDir, _ := os.UserHomeDir()
	defaultConfig := filepath.Join(homeDir, ".stashsweep", "config.yaml")

	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfig, "Path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log diagnostics to stderr")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(configCmd)
}

// openConfig loads the YAML configuration, opens the store and overlays the
// preferences saved there.
func openConfig() (*config.Config, *store.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o700); err != nil {
		return nil, nil, fmt.Errorf("creating data dir: %w", err)
	}
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}

	prefs, err := s.Prefs()
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	if err := cfg.ApplyPrefs(prefs); err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("stored preferences: %w", err)
	}
	return cfg, s, nil
}

func meat(n int64) string {
	return humanize.Comma(n) + " meat"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
