package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fentz26/stashsweep/internal/controlplane"
	"github.com/fentz26/stashsweep/internal/models"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent cleanup runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var auditCmd = &cobra.Command{
	Use:   "audit [run-id]",
	Short: "Show everything recorded for a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runAudit,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show (0 for all)")
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, s, err := openConfig()
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := controlplane.NewService(s, cfg, nil, nil).History(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tSTATUS\tMODE\tPROFIT\tREPLANS")
	for _, r := range runs {
		mode := "live"
		if r.Simulate {
			mode = "simulated"
		}
		profit := "-"
		if r.Status != models.RunStatusRunning && r.Profit >= 0 {
			profit = humanize.Comma(r.Profit)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
			truncateID(r.ID), humanize.Time(r.StartedAt), r.Status, mode, profit, r.Replans)
	}
	w.Flush()
	return nil
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, s, err := openConfig()
	if err != nil {
		return err
	}
	defer s.Close()

	report, err := controlplane.NewService(s, cfg, nil, nil).Audit(args[0])
	if err != nil {
		return err
	}

	run := report.Run
	fmt.Printf("Run:      %s\n", run.ID)
	fmt.Printf("Status:   %s\n", run.Status)
	fmt.Printf("Simulate: %v\n", run.Simulate)
	fmt.Printf("Started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
	if run.FinishedAt != nil {
		fmt.Printf("Finished: %s (%s)\n", run.FinishedAt.Local().Format(time.DateTime), run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	fmt.Printf("Profit:   %s\n", meat(run.Profit))
	fmt.Printf("Replans:  %d\n", run.Replans)
	if run.Error != "" {
		fmt.Printf("Error:    %s\n", run.Error)
	}

	fmt.Println("\n--- RECORDS ---")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tOUTCOME\tITEM\tDETAILS")
	for _, r := range report.Records {
		item := ""
		if r.ItemID != 0 {
			item = fmt.Sprintf("[%d]", r.ItemID)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Timestamp.Local().Format(time.TimeOnly), r.Action, r.Outcome, item, r.Details)
	}
	w.Flush()

	if len(report.Journal) > 0 {
		fmt.Println("\n--- JOURNAL ---")
		for _, e := range report.Journal {
			switch {
			case e.Command != nil:
				fmt.Printf("%s  %-6s %s\n", e.Time.Local().Format(time.TimeOnly), e.Outcome, e.Command)
			case e.Message != nil:
				fmt.Printf("%s  %-6s %s to %s: %d items\n", e.Time.Local().Format(time.TimeOnly), e.Outcome, e.Action, e.Message.Recipient, len(e.Message.Items))
			}
		}
	}
	return nil
}
