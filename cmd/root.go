package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/mermaid-studio/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "mstudio",
	Short: "AI-assisted Mermaid diagram editor",
	Long: `Mermaid Studio pairs a live Mermaid editor with a chat assistant. Describe
a diagram, and the assistant's reply becomes the document; edit the source,
and it re-renders as you type. The workspace is served over HTTP and a
websocket, and exposed to AI agents via MCP.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// setupLogging installs the default slog logger. Logs always go to stderr
// so stdout stays free for command output and the MCP protocol.
func setupLogging(cfg *config.Config) *slog.Logger {
	level := cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
