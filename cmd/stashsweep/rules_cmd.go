package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fentz26/stashsweep/internal/models"
	"github.com/fentz26/stashsweep/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect the cleanup and stocking rule files",
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Parse the rule files and summarise them by action",
	Args:  cobra.NoArgs,
	RunE:  runRulesCheck,
}

var rulesFmtCmd = &cobra.Command{
	Use:   "fmt",
	Short: "Print the cleanup rules in canonical form",
	Args:  cobra.NoArgs,
	RunE:  runRulesFmt,
}

var rulesWrite bool

func init() {
	rulesCmd.AddCommand(rulesCheckCmd, rulesFmtCmd)
	rulesFmtCmd.Flags().BoolVarP(&rulesWrite, "write", "w", false, "Rewrite the rule file instead of printing it")
}

func runRulesCheck(cmd *cobra.Command, args []string) error {
	cfg, s, err := openConfig()
	if err != nil {
		return err
	}
	s.Close()

	rs, err := rules.LoadRules(cfg.DataFile)
	if err != nil {
		return err
	}
	ss, err := rules.LoadStock(cfg.StockFile)
	if err != nil {
		return err
	}

	counts := make(map[models.Action]int)
	for _, r := range rs {
		counts[r.Action]++
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACTION\tRULES")
	for _, a := range models.Actions() {
		if counts[a] > 0 {
			fmt.Fprintf(w, "%s\t%d\n", a, counts[a])
		}
	}
	w.Flush()

	fmt.Printf("\n%d cleanup rules in %s\n", len(rs), cfg.DataFile)
	fmt.Printf("%d stocking rules in %s\n", len(ss), cfg.StockFile)
	return nil
}

func runRulesFmt(cmd *cobra.Command, args []string) error {
	cfg, s, err := openConfig()
	if err != nil {
		return err
	}
	s.Close()

	rs, err := rules.LoadRules(cfg.DataFile)
	if err != nil {
		return err
	}
	if rulesWrite {
		if err := rules.WriteRules(cfg.DataFile, rs); err != nil {
			return err
		}
		fmt.Printf("Rewrote %s (%d rules)\n", cfg.DataFile, len(rs))
		return nil
	}
	return rules.FormatRules(os.Stdout, rs)
}
