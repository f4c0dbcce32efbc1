package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/mermaid-studio/internal/content"
)

var extractSegments bool

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract diagram source from an assistant reply",
	Long: `Reads a reply (a file, or stdin when no file or "-" is given) and prints
the diagram source it carries: the last mermaid block, or the whole reply
when it starts with a diagram keyword. With --segments, prints the reply
split into text, diagram and code segments as JSON instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if extractSegments {
			enc := json.NewEncoder(out)
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(content.Parse(text))
		}

		src, ok := content.Extract(text)
		if !ok {
			return errors.New("no diagram found")
		}
		fmt.Fprintln(out, src)
		return nil
	},
}

func readInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func init() {
	extractCmd.Flags().BoolVar(&extractSegments, "segments", false, "print all segments as JSON")
	rootCmd.AddCommand(extractCmd)
}
