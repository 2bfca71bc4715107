// Package main is the entry point for the citation CLI: batch citation
// generation, formatting, document export and the MCP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Epistemic-Technology/citation-mcp/internal/config"
	"github.com/Epistemic-Technology/citation-mcp/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	cfg *config.Config
	log logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "citation",
	Short: "Generate, format and export academic citations",
	Long: `citation reads the first page of source documents with a vision model and
returns citations in APA, MLA, Chicago, Harvard, OSCOLA, IEEE, AMA or ASA
style. Results can be formatted for display and exported as PDF, DOCX or
BibTeX. The serve subcommand exposes the same operations as MCP tools.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./citation-mcp.yaml or ~/.config/citation-mcp/citation-mcp.yaml)")
	rootCmd.PersistentFlags().String("style", "", "citation style (default from config, APA)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log debug output to stderr")
	_ = viper.BindPFlag("default_style", rootCmd.PersistentFlags().Lookup("style"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	config.Setup(viper.GetViper(), cfgFile)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	cfg = c

	logCfg := cfg.LoggerConfig()
	if cmd != serveCmd && logCfg.Output == "" {
		logCfg.Output = "stderr"
		if logCfg.Level == "" {
			logCfg.Level = "warn"
		}
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logCfg.Level = "debug"
	}
	log, err = logger.NewLogger(logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using config file: %s", used)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
