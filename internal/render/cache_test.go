package render

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/mermaid-studio/internal/db"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	d, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return NewCache(d)
}

func TestCacheGetPut(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	key := Key("cli", DefaultOptions(), "graph TD")
	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, key, "cli", ThemeDark, "<svg/>"))
	m, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Markup("<svg/>"), m)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(6), stats.Bytes)
}

func TestCacheKeyDependsOnOptions(t *testing.T) {
	dark := Key("cli", DefaultOptions(), "graph TD")
	light := Key("cli", DefaultOptions().WithTheme(ThemeLight), "graph TD")
	other := Key("http", DefaultOptions(), "graph TD")
	assert.NotEqual(t, dark, light)
	assert.NotEqual(t, dark, other)
	assert.Equal(t, dark, Key("cli", DefaultOptions(), "graph TD"))
}

func TestCachePurge(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	require.NoError(t, c.Put(ctx, "a", "cli", ThemeDark, "<svg/>"))

	n, err := c.Purge(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = c.Purge(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCachedEngine(t *testing.T) {
	calls := 0
	inner := engineFunc(func(ctx context.Context, req Request) (Markup, error) {
		calls++
		if req.Source == "bad" {
			return "", errors.New("nope")
		}
		return Markup("<svg>" + req.Source + "</svg>"), nil
	})
	e := NewCachedEngine(inner, newTestCache(t), nil)
	ctx := context.Background()
	req := Request{Source: "graph TD", Options: DefaultOptions()}

	for i := 0; i < 3; i++ {
		m, err := e.Render(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, Markup("<svg>graph TD</svg>"), m)
	}
	assert.Equal(t, 1, calls)

	_, err := e.Render(ctx, Request{Source: "bad", Options: DefaultOptions()})
	require.Error(t, err)
	_, err = e.Render(ctx, Request{Source: "bad", Options: DefaultOptions()})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "func", e.Name())
}

func TestCachedEngineLogsCacheErrors(t *testing.T) {
	d, err := db.OpenMemory()
	require.NoError(t, err)
	cache := NewCache(d)
	require.NoError(t, d.Close())

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	inner := engineFunc(func(ctx context.Context, req Request) (Markup, error) {
		return "<svg/>", nil
	})

	m, err := NewCachedEngine(inner, cache, logger).Render(context.Background(), Request{Source: "pie", Options: DefaultOptions()})
	require.NoError(t, err, "a broken cache must not fail the render")
	assert.Equal(t, Markup("<svg/>"), m)
	assert.Contains(t, logs.String(), "render cache read failed")
	assert.Contains(t, logs.String(), "render cache write failed")
	assert.Contains(t, logs.String(), "level=WARN")
}
