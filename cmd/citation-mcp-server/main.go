package main

import (
	"context"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/citation-mcp/internal/config"
	"github.com/Epistemic-Technology/citation-mcp/internal/logger"
	"github.com/Epistemic-Technology/citation-mcp/server"
)

func main() {
	cfg, err := config.New(os.Getenv("CITATION_MCP_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "citation-mcp: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.LoggerConfig())
	if err != nil {
		panic(err)
	}

	log.Info("Starting citation-mcp server")

	srv, err := server.CreateServer(cfg, log)
	if err != nil {
		log.Fatal("Failed to create server: %v", err)
	}
	if err := srv.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatal("Server failed: %v", err)
	}
}
