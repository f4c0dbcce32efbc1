package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/mermaid-studio/internal/export"
	"github.com/ziadkadry99/mermaid-studio/internal/render"
	"github.com/ziadkadry99/mermaid-studio/internal/watch"
)

var (
	watchOut   string
	watchTheme string
)

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Re-render a diagram file to SVG whenever it changes",
	Long: `Watches a diagram file and renders it to SVG on every save. Rapid saves
are debounced and only the newest revision is written; a failing revision
prints its error and leaves the last good SVG in place.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := setupLogging(cfg)

		opts, err := renderOptions(cfg, watchTheme)
		if err != nil {
			return err
		}

		st, err := buildRenderStack(cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		out := export.SVGPath(args[0], watchOut)
		p := render.NewPipeline(st.engine, render.PipelineConfig{
			Debounce: cfg.Renderer.Debounce,
			Timeout:  cfg.Renderer.Timeout,
			Options:  opts,
			Logger:   logger,
			OnSuccess: func(res render.Result) {
				if err := export.WriteSVG(out, res.Markup); err != nil {
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
					return
				}
				fmt.Fprintf(os.Stderr, "[rev %d] wrote %s\n", res.Revision, out)
			},
			OnFailure: func(res render.Result) {
				fmt.Fprintf(os.Stderr, "[rev %d] %s\n", res.Revision, res.Detail)
			},
		})
		defer p.Close()

		w, err := watch.New(args[0], func(src string) { p.Submit(src) }, logger)
		if err != nil {
			return err
		}
		defer w.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(os.Stderr, "Watching %s (Ctrl+C to stop)\n", w.Path())
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVarP(&watchOut, "out", "o", "", "output directory (default: next to the source)")
	watchCmd.Flags().StringVar(&watchTheme, "theme", "", "theme override: dark or light")
	rootCmd.AddCommand(watchCmd)
}
