package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/mermaid-studio/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing diagram extraction, rendering and generation tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := setupLogging(cfg)

		st, err := buildStack(cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		ws := newWorkspace(cfg, st, logger)
		defer ws.Close()

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "mstudio MCP server started on stdio (renderer=%s, assistant=%s)\n", st.engine.Name(), cfg.Assistant.Provider)

		srv := mcpserver.NewServer(ws)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
