package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/Epistemic-Technology/citation-mcp/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server over stdio",
	Long: `Serve exposes citation-generate, citation-format, citation-export,
citation-styles and zotero-search as MCP tools, and the style table as
style:// resources. Logs go to a file unless log.output is "stderr", since
stdout carries the protocol.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	server.Version = version
	log.Info("Starting citation-mcp server %s", version)

	srv, err := server.CreateServer(cfg, log)
	if err != nil {
		return err
	}
	if err := srv.Run(cmd.Context(), &mcp.StdioTransport{}); err != nil {
		log.Error("Server failed: %v", err)
		return err
	}
	return nil
}
