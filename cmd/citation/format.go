package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Epistemic-Technology/citation-mcp/internal/operations"
	"github.com/Epistemic-Technology/citation-mcp/models"
)

var formatCmd = &cobra.Command{
	Use:   "format [file]",
	Short: "Format citation text as HTML or Markdown",
	Long: `Format reads citation text from a file or stdin, normalizes the footnotes
for the style and prints the formatted result. No model is called.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFormat,
}

func init() {
	formatCmd.Flags().String("footnotes", "", "file with the footnotes or reference list")
	formatCmd.Flags().Bool("markdown", false, "print Markdown instead of HTML")

	rootCmd.AddCommand(formatCmd)
}

func runFormat(cmd *cobra.Command, args []string) error {
	footnotesFile, _ := cmd.Flags().GetString("footnotes")
	asMarkdown, _ := cmd.Flags().GetBool("markdown")

	var (
		text []byte
		err  error
	)
	if len(args) == 1 {
		text, err = os.ReadFile(args[0])
	} else {
		text, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read citation: %w", err)
	}

	result := models.CitationResult{Citation: string(text)}
	if footnotesFile != "" {
		notes, err := os.ReadFile(footnotesFile)
		if err != nil {
			return fmt.Errorf("failed to read footnotes: %w", err)
		}
		result.Footnotes = models.FootnotesText(string(notes))
	}

	formatted := operations.FormatResult(result, cfg.Style(), log)
	if asMarkdown {
		fmt.Fprintln(cmd.OutOrStdout(), formatted.Markdown)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), formatted.HTML)
	return nil
}
