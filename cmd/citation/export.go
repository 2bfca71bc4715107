package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Epistemic-Technology/citation-mcp/internal/export"
	"github.com/Epistemic-Technology/citation-mcp/internal/operations"
	"github.com/Epistemic-Technology/citation-mcp/internal/styles"
	"github.com/Epistemic-Technology/citation-mcp/models"
)

var exportCmd = &cobra.Command{
	Use:   "export <response.json>",
	Short: "Export generated citations as PDF, DOCX or BibTeX",
	Long: `Export reads the JSON written by "generate --json" (or a single citation
result) and writes one document per citation to the output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringP("format", "f", "pdf", "export format: pdf, docx or bib")
	exportCmd.Flags().String("out-dir", "", "directory for exported files (default from config)")
	exportCmd.Flags().String("file", "", "only export the result with this file name")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	outDir, _ := cmd.Flags().GetString("out-dir")
	only, _ := cmd.Flags().GetString("file")

	kind, err := export.ParseKind(format)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	results, style, err := decodeResults(data)
	if err != nil {
		return err
	}
	if style == "" || cmd.Flags().Changed("style") {
		style = cfg.Style()
	}

	if only != "" {
		var picked []models.CitationResult
		for _, r := range results {
			if r.FileName == only {
				picked = append(picked, r)
			}
		}
		if len(picked) == 0 {
			return fmt.Errorf("no result named %q in %s", only, args[0])
		}
		results = picked
	}
	return exportAll(results, style, kind, outDir, cmd.OutOrStdout())
}

// decodeResults accepts a batch response or a single citation result.
func decodeResults(data []byte) ([]models.CitationResult, styles.Style, error) {
	var resp models.GenerateResponse
	if err := json.Unmarshal(data, &resp); err == nil && len(resp.Results) > 0 {
		style, err := styles.Parse(resp.Style)
		if err != nil {
			return nil, "", err
		}
		return resp.Results, style, nil
	}

	var single models.CitationResult
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, "", fmt.Errorf("failed to decode citations: %w", err)
	}
	if single.Citation == "" {
		return nil, "", fmt.Errorf("no citations to export")
	}
	return []models.CitationResult{single}, "", nil
}

// exportAll writes every result and reports each path. A failed export is
// reported and the rest are still written.
func exportAll(results []models.CitationResult, style styles.Style, kind export.Kind, outDir string, w io.Writer) error {
	if outDir == "" {
		outDir = cfg.Export.OutputDir
	}
	params := operations.ExportParams{
		Kind:      kind,
		Options:   export.Options{PageSize: cfg.Export.PageSize},
		OutputDir: outDir,
		Generated: time.Now(),
	}

	failed := 0
	for _, result := range results {
		out, err := operations.ExportCitation(result, style, params, log)
		if err != nil {
			fmt.Fprintf(w, "failed: %v\n", err)
			failed++
			continue
		}
		fmt.Fprintln(w, out.Path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d exports failed", failed, len(results))
	}
	return nil
}
