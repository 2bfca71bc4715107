package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Epistemic-Technology/citation-mcp/internal/export"
	"github.com/Epistemic-Technology/citation-mcp/internal/operations"
	"github.com/Epistemic-Technology/citation-mcp/internal/styles"
	"github.com/Epistemic-Technology/citation-mcp/models"
	"github.com/Epistemic-Technology/citation-mcp/server"
)

var generateCmd = &cobra.Command{
	Use:   "generate [files...]",
	Short: "Generate citations for source documents",
	Long: `Generate cites each source in the requested style. Sources are local files
(PDF, HTML, Markdown, plain text, Zotero snapshot zips), --url downloads or
--zotero attachment keys. Documents are processed concurrently; a failing
document is reported and the rest still complete.

By default the formatted citations are printed as Markdown. --json prints the
full batch response, which the export subcommand reads back.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringSlice("url", nil, "source document URL (repeatable)")
	generateCmd.Flags().StringSlice("zotero", nil, "Zotero item or attachment key (repeatable)")
	generateCmd.Flags().String("masterpiece", "", "file with your own text to insert in-text citations into")
	generateCmd.Flags().Bool("json", false, "print the batch response as JSON")
	generateCmd.Flags().StringP("output", "o", "", "write output to this file instead of stdout")
	generateCmd.Flags().String("export", "", "also export every citation: pdf, docx or bib")
	generateCmd.Flags().String("out-dir", "", "directory for exported files (default from config)")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	urls, _ := cmd.Flags().GetStringSlice("url")
	zoteroIDs, _ := cmd.Flags().GetStringSlice("zotero")
	masterpieceFile, _ := cmd.Flags().GetString("masterpiece")
	asJSON, _ := cmd.Flags().GetBool("json")
	outputFile, _ := cmd.Flags().GetString("output")
	exportKind, _ := cmd.Flags().GetString("export")
	outDir, _ := cmd.Flags().GetString("out-dir")

	var kind export.Kind
	if exportKind != "" {
		k, err := export.ParseKind(exportKind)
		if err != nil {
			return err
		}
		kind = k
	}

	docs, err := collectSources(args, urls, zoteroIDs)
	if err != nil {
		return err
	}

	var masterpiece string
	if masterpieceFile != "" {
		data, err := os.ReadFile(masterpieceFile)
		if err != nil {
			return fmt.Errorf("failed to read masterpiece: %w", err)
		}
		masterpiece = string(data)
	}

	generator, err := server.NewGenerator(cfg, log)
	if err != nil {
		return err
	}
	resp, err := generator.GenerateCitations(cmd.Context(), operations.GenerateRequest{
		Documents:   docs,
		Style:       string(cfg.Style()),
		Masterpiece: masterpiece,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return err
		}
	} else {
		writeMarkdown(out, resp)
	}

	if kind != "" {
		if err := exportAll(resp.Results, styles.Style(resp.Style), kind, outDir, cmd.ErrOrStderr()); err != nil {
			return err
		}
	}
	for _, e := range resp.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s: %s\n", e.FileName, e.Error)
	}
	if len(resp.Results) == 0 {
		return fmt.Errorf("no citations generated")
	}
	return nil
}

func collectSources(files, urls, zoteroIDs []string) ([]models.SourceDocument, error) {
	var docs []models.SourceDocument
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		docs = append(docs, models.SourceDocument{FileName: filepath.Base(path), Data: data})
	}
	for _, u := range urls {
		docs = append(docs, models.SourceDocument{URL: u})
	}
	for _, id := range zoteroIDs {
		docs = append(docs, models.SourceDocument{ZoteroID: id})
	}
	return docs, nil
}

func writeMarkdown(w io.Writer, resp *models.GenerateResponse) {
	style := styles.Style(resp.Style)
	for i, result := range resp.Results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		formatted := operations.FormatResult(result, style, log)
		fmt.Fprintf(w, "## %s\n\n", result.FileName)
		body := formatted.Markdown
		if body == "" {
			body = result.Citation
		}
		fmt.Fprintln(w, strings.TrimSpace(body))
	}
}
