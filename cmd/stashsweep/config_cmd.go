package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fentz26/stashsweep/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and write named configuration values",
	Long: `Named values are stored in the database and override the YAML configuration file.
Run 'stashsweep config list' to see every option with its effective value.`,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print the effective value of an option",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Store a value for an option",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset [key]",
	Short: "Remove a stored value so the file or default applies again",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every option with its effective value",
	Args:  cobra.NoArgs,
	RunE:  runConfigList,
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd, configUnsetCmd, configListCmd)
}

// effectiveValues renders cfg through its YAML tags so keys match the file.
func effectiveValues(cfg *config.Config) (map[string]string, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var node map[string]interface{}
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	values := make(map[string]string, len(node))
	for k, v := range node {
		values[k] = fmt.Sprint(v)
	}
	return values, nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cfg, s, err := openConfig()
	if err != nil {
		return err
	}
	defer s.Close()

	values, err := effectiveValues(cfg)
	if err != nil {
		return err
	}
	v, ok := values[args[0]]
	if !ok {
		return fmt.Errorf("unknown option %q", args[0])
	}
	fmt.Println(v)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cfg, s, err := openConfig()
	if err != nil {
		return err
	}
	defer s.Close()

	key, value := args[0], args[1]
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := s.SetPref(key, value); err != nil {
		return err
	}
	fmt.Printf("%s = %s\n", key, value)
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	_, s, err := openConfig()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.DeletePref(args[0]); err != nil {
		return err
	}
	fmt.Printf("Removed stored value for %s\n", args[0])
	return nil
}

func runConfigList(cmd *cobra.Command, args []string) error {
	cfg, s, err := openConfig()
	if err != nil {
		return err
	}
	defer s.Close()

	values, err := effectiveValues(cfg)
	if err != nil {
		return err
	}
	prefs, err := s.Prefs()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OPTION\tVALUE\tSOURCE")
	for _, key := range config.Keys() {
		source := "file"
		if _, ok := prefs[key]; ok {
			source = "stored"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", key, values[key], source)
	}
	w.Flush()
	return nil
}
