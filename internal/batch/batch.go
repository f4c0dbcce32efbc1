// Package batch renders diagram files from disk concurrently.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/ziadkadry99/mermaid-studio/internal/content"
	"github.com/ziadkadry99/mermaid-studio/internal/export"
	"github.com/ziadkadry99/mermaid-studio/internal/render"
)

// ProgressFunc is called after each file settles.
type ProgressFunc func(done, total int, path string)

// Job is one diagram to render: its source and where the SVG goes.
type Job struct {
	Path   string
	Source string
	Output string
}

// Result is the outcome of one Job.
type Result struct {
	Job
	Err error
}

// Discover expands glob patterns (doublestar syntax, e.g. docs/**/*.mmd)
// into a sorted, de-duplicated list of files.
func Discover(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// Jobs reads each file and turns it into render jobs. A plain diagram file
// is one job. A markdown file yields one job per diagram block, numbered
// when there is more than one; a markdown file without diagrams yields none.
// Two jobs that would write the same output file are an error.
func Jobs(files []string, outDir string) ([]Job, error) {
	var jobs []Job
	owner := make(map[string]string)
	add := func(j Job) error {
		key := filepath.Clean(j.Output)
		if prev, ok := owner[key]; ok {
			return fmt.Errorf("%s and %s both render to %s", prev, j.Path, j.Output)
		}
		owner[key] = j.Path
		jobs = append(jobs, j)
		return nil
	}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		out := export.SVGPath(f, outDir)
		if !isMarkdown(f) {
			if err := add(Job{Path: f, Source: string(data), Output: out}); err != nil {
				return nil, err
			}
			continue
		}
		blocks := content.Diagrams(string(data))
		for i, b := range blocks {
			o := out
			if len(blocks) > 1 {
				o = strings.TrimSuffix(out, ".svg") + fmt.Sprintf("-%d.svg", i+1)
			}
			if err := add(Job{Path: f, Source: b.Content, Output: o}); err != nil {
				return nil, err
			}
		}
	}
	return jobs, nil
}

// Renderer renders jobs through an engine with bounded parallelism.
type Renderer struct {
	concurrency int
	engine      render.Engine
	opts        render.Options
	onProgress  ProgressFunc
}

// NewRenderer creates a Renderer with the given concurrency limit.
func NewRenderer(concurrency int, engine render.Engine, opts render.Options, onProgress ProgressFunc) *Renderer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Renderer{
		concurrency: concurrency,
		engine:      engine,
		opts:        opts,
		onProgress:  onProgress,
	}
}

// Run renders every job and writes the successful ones to disk. Results
// come back in job order.
func (r *Renderer) Run(ctx context.Context, jobs []Job) []Result {
	total := len(jobs)
	results := make([]Result, total)
	if total == 0 {
		return results
	}

	sem := make(chan struct{}, r.concurrency)
	var processed int64
	var wg sync.WaitGroup

	for i, job := range jobs {
		results[i].Job = job

		select {
		case <-ctx.Done():
			results[i].Err = ctx.Err()
			r.progress(&processed, total, job.Path)
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, job Job) {
			defer wg.Done()
			defer func() { <-sem }()

			results[i].Err = r.renderOne(ctx, job)
			r.progress(&processed, total, job.Path)
		}(i, job)
	}

	wg.Wait()
	return results
}

func (r *Renderer) renderOne(ctx context.Context, job Job) error {
	if strings.TrimSpace(job.Source) == "" {
		return render.ErrEmptySource
	}
	markup, err := r.engine.Render(ctx, render.Request{
		ID:      "mermaid-" + uuid.NewString(),
		Source:  job.Source,
		Options: r.opts,
	})
	if err != nil {
		return err
	}
	return export.WriteSVG(job.Output, markup)
}

func (r *Renderer) progress(processed *int64, total int, path string) {
	n := atomic.AddInt64(processed, 1)
	if r.onProgress != nil {
		r.onProgress(int(n), total, path)
	}
}

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	var out []Result
	for _, res := range results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}
