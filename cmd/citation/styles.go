package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/Epistemic-Technology/citation-mcp/internal/styles"
)

var stylesCmd = &cobra.Command{
	Use:   "styles [name]",
	Short: "List supported citation styles",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStyles,
}

func init() {
	stylesCmd.Flags().Bool("yaml", false, "print the full rules as YAML")

	rootCmd.AddCommand(stylesCmd)
}

func runStyles(cmd *cobra.Command, args []string) error {
	asYAML, _ := cmd.Flags().GetBool("yaml")

	rules := styles.All()
	if len(args) == 1 {
		rule, err := styles.Lookup(args[0])
		if err != nil {
			return err
		}
		rules = []styles.Rule{rule}
	}

	out := cmd.OutOrStdout()
	if asYAML {
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(rules)
	}

	current := cfg.Style()
	for _, rule := range rules {
		mark := " "
		if rule.Name == current {
			mark = "*"
		}
		fmt.Fprintf(out, "%s %-8s %-12s %-12s %s\n", mark, rule.Name, rule.Family, rule.MarkerForm, rule.BibliographyTitle)
	}
	return nil
}
