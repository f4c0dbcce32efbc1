package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/mermaid-studio/internal/batch"
	"github.com/ziadkadry99/mermaid-studio/internal/progress"
	"github.com/ziadkadry99/mermaid-studio/internal/render"
)

var (
	renderOut     string
	renderTheme   string
	renderWorkers int
)

var renderCmd = &cobra.Command{
	Use:   "render <pattern>...",
	Short: "Render diagram files to SVG",
	Long: `Renders every file matching the given glob patterns to SVG. Patterns use
doublestar syntax, so docs/**/*.mmd walks subdirectories. Markdown files
(.md, .markdown) produce one SVG per mermaid block.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := setupLogging(cfg)

		opts, err := renderOptions(cfg, renderTheme)
		if err != nil {
			return err
		}

		files, err := batch.Discover(args)
		if err != nil {
			return err
		}
		jobs, err := batch.Jobs(files, renderOut)
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			fmt.Fprintln(os.Stderr, "No diagrams found.")
			return nil
		}

		st, err := buildRenderStack(cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		reporter := progress.NewReporter(os.Stderr)
		reporter.Start(len(jobs))
		r := batch.NewRenderer(renderWorkers, st.engine, opts, func(done, total int, path string) {
			reporter.Update(done, path)
		})
		results := r.Run(ctx, jobs)
		reporter.Finish()

		failed := batch.Failed(results)
		for _, res := range failed {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", res.Path, render.Detail(res.Err))
		}
		fmt.Fprintf(os.Stderr, "Rendered %d of %d diagram(s)\n", len(results)-len(failed), len(results))
		if st.cache != nil {
			if stats, err := st.cache.Stats(ctx); err == nil {
				logger.Debug("render cache", "entries", stats.Entries, "hits", stats.Hits)
			}
		}
		if len(failed) > 0 {
			return fmt.Errorf("%d diagram(s) failed to render", len(failed))
		}
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "output directory (default: next to each source)")
	renderCmd.Flags().StringVar(&renderTheme, "theme", "", "theme override: dark or light")
	renderCmd.Flags().IntVarP(&renderWorkers, "jobs", "j", runtime.NumCPU(), "number of concurrent renders")
	rootCmd.AddCommand(renderCmd)
}
