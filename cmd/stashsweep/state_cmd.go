package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fentz26/stashsweep/internal/controlplane"
	"github.com/fentz26/stashsweep/internal/models"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Manage stored simulated game states",
}

var stateImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Validate a game-state JSON document and store it",
	Args:  cobra.ExactArgs(1),
	RunE:  runStateImport,
}

var stateExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a stored game state as JSON",
	Args:  cobra.NoArgs,
	RunE:  runStateExport,
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Summarise a stored game state",
	Args:  cobra.NoArgs,
	RunE:  runStateShow,
}

var (
	stateName   string
	stateOutput string
)

func init() {
	stateCmd.AddCommand(stateImportCmd, stateExportCmd, stateShowCmd)
	stateCmd.PersistentFlags().StringVar(&stateName, "name", controlplane.DefaultGameState, "Name of the stored game state")
	stateExportCmd.Flags().StringVarP(&stateOutput, "output", "o", "", "Write to a file instead of stdout")
}

func runStateImport(cmd *cobra.Command, args []string) error {
	_, s, err := openConfig()
	if err != nil {
		return err
	}
	defer s.Close()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := controlplane.ImportState(s, stateName, f)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	fmt.Printf("Imported %q: %d items, %d holdings\n", stateName, len(st.Items), len(st.Holdings))
	return nil
}

func runStateExport(cmd *cobra.Command, args []string) error {
	_, s, err := openConfig()
	if err != nil {
		return err
	}
	defer s.Close()

	if stateOutput == "" {
		return controlplane.ExportState(s, stateName, os.Stdout)
	}
	f, err := os.Create(stateOutput)
	if err != nil {
		return err
	}
	if err := controlplane.ExportState(s, stateName, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runStateShow(cmd *cobra.Command, args []string) error {
	_, s, err := openConfig()
	if err != nil {
		return err
	}
	defer s.Close()

	g, err := controlplane.LoadGame(s, stateName)
	if err != nil {
		return err
	}
	st := g.State()

	name := st.Character.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Printf("Character: %s\n", name)
	fmt.Printf("Meat:      %s\n", meat(st.Character.Meat))
	fmt.Printf("Items:     %d known\n\n", len(st.Items))

	names := make(map[int]string, len(st.Items))
	for _, it := range st.Items {
		names[it.ID] = it.Name
	}
	holdings := st.Holdings
	sort.Slice(holdings, func(i, j int) bool {
		if holdings[i].Location != holdings[j].Location {
			return holdings[i].Location < holdings[j].Location
		}
		return names[holdings[i].ItemID] < names[holdings[j].ItemID]
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LOCATION\tITEM\tAMOUNT")
	for _, h := range holdings {
		if h.Amount == 0 {
			continue
		}
		item := models.Item{ID: h.ItemID, Name: names[h.ItemID]}
		fmt.Fprintf(w, "%s\t%s\t%d\n", h.Location, item, h.Amount)
	}
	w.Flush()

	if len(st.Outbox) > 0 {
		fmt.Printf("\n%d messages sent\n", len(st.Outbox))
	}
	return nil
}
