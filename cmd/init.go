package cmd

import (
	"github.com/spf13/cobra"
	"github.com/ziadkadry99/mermaid-studio/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize mstudio configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to pick an assistant provider, a renderer and a theme, and writes the answers to the config file (.mstudio.yml by default).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
