package batch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/mermaid-studio/internal/render"
)

type stubEngine struct {
	mu  sync.Mutex
	ids map[string]bool
}

func (e *stubEngine) Name() string { return "stub" }

func (e *stubEngine) Render(ctx context.Context, req render.Request) (render.Markup, error) {
	e.mu.Lock()
	if e.ids == nil {
		e.ids = map[string]bool{}
	}
	e.ids[req.ID] = true
	e.mu.Unlock()

	if strings.Contains(req.Source, "BROKEN") {
		return "", &render.SyntaxError{Message: "Parse error on line 1", Line: 1}
	}
	return render.Markup("<svg><!--" + strings.TrimSpace(req.Source) + "--></svg>"), nil
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.mmd", "graph TD")
	b := writeFile(t, dir, "nested/deep/b.mmd", "graph LR")
	writeFile(t, dir, "notes.txt", "ignore me")

	files, err := Discover([]string{
		filepath.Join(dir, "**", "*.mmd"),
		filepath.Join(dir, "a.mmd"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, files)

	_, err = Discover([]string{"[unclosed"})
	assert.Error(t, err)
}

func TestJobs(t *testing.T) {
	dir := t.TempDir()
	plain := writeFile(t, dir, "flow.mmd", "graph TD; A-->B")
	doc := writeFile(t, dir, "guide.md", "Intro\n```mermaid\ngraph TD; X-->Y\n```\ntext\n```mermaid\npie\n```\n")
	single := writeFile(t, dir, "one.markdown", "```mermaid\nsequenceDiagram\n```\n")
	writeFile(t, dir, "empty.md", "no diagrams here")

	jobs, err := Jobs([]string{plain, doc, single, filepath.Join(dir, "empty.md")}, "")
	require.NoError(t, err)
	require.Len(t, jobs, 4)

	assert.Equal(t, filepath.Join(dir, "flow.svg"), jobs[0].Output)
	assert.Equal(t, "graph TD; A-->B", jobs[0].Source)
	assert.Equal(t, filepath.Join(dir, "guide-1.svg"), jobs[1].Output)
	assert.Equal(t, "graph TD; X-->Y", jobs[1].Source)
	assert.Equal(t, filepath.Join(dir, "guide-2.svg"), jobs[2].Output)
	assert.Equal(t, filepath.Join(dir, "one.svg"), jobs[3].Output)

	out := filepath.Join(dir, "out")
	jobs, err = Jobs([]string{plain}, out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "flow.svg"), jobs[0].Output)

	_, err = Jobs([]string{filepath.Join(dir, "missing.mmd")}, "")
	assert.Error(t, err)
}

func TestJobsRejectsOutputCollisions(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a/x.mmd", "graph TD")
	b := writeFile(t, dir, "b/x.mmd", "graph LR")

	files, err := Discover([]string{filepath.Join(dir, "**", "*.mmd")})
	require.NoError(t, err)
	require.Len(t, files, 2)

	// Next to their sources the two files do not collide.
	jobs, err := Jobs(files, "")
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	_, err = Jobs(files, filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), a)
	assert.Contains(t, err.Error(), b)

	md := writeFile(t, dir, "c/foo.md", "```mermaid\npie\n```\n")
	mmd := writeFile(t, dir, "c/foo.mmd", "pie")
	_, err = Jobs([]string{md, mmd}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), filepath.Join(dir, "c", "foo.svg"))
}

func TestRendererRun(t *testing.T) {
	dir := t.TempDir()
	jobs := []Job{
		{Path: "a.mmd", Source: "graph TD", Output: filepath.Join(dir, "a.svg")},
		{Path: "b.mmd", Source: "BROKEN", Output: filepath.Join(dir, "b.svg")},
		{Path: "c.mmd", Source: "   ", Output: filepath.Join(dir, "c.svg")},
		{Path: "d.mmd", Source: "pie", Output: filepath.Join(dir, "sub", "d.svg")},
	}

	var mu sync.Mutex
	var seen []int
	engine := &stubEngine{}
	r := NewRenderer(2, engine, render.DefaultOptions(), func(done, total int, path string) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 4, total)
		seen = append(seen, done)
	})

	results := r.Run(context.Background(), jobs)
	require.Len(t, results, 4)
	assert.Len(t, seen, 4)

	assert.NoError(t, results[0].Err)
	var se *render.SyntaxError
	assert.ErrorAs(t, results[1].Err, &se)
	assert.ErrorIs(t, results[2].Err, render.ErrEmptySource)
	assert.NoError(t, results[3].Err)

	data, err := os.ReadFile(filepath.Join(dir, "sub", "d.svg"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "<!--pie-->")
	_, err = os.Stat(filepath.Join(dir, "b.svg"))
	assert.True(t, os.IsNotExist(err), "failed render must not write output")

	assert.Len(t, Failed(results), 2)
	assert.Len(t, engine.ids, 3, "each render gets its own id")
}

func TestRendererCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRenderer(0, &stubEngine{}, render.DefaultOptions(), nil)
	results := r.Run(ctx, []Job{{Path: "a", Source: "graph TD", Output: filepath.Join(t.TempDir(), "a.svg")}})
	require.Len(t, results, 1)
	// With a free semaphore slot select may pick either branch.
	if results[0].Err != nil {
		assert.ErrorIs(t, results[0].Err, context.Canceled)
	}
}

func TestRunEmpty(t *testing.T) {
	r := NewRenderer(4, &stubEngine{}, render.DefaultOptions(), nil)
	assert.Empty(t, r.Run(context.Background(), nil))
}
