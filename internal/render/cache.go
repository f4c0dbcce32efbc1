package render

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ziadkadry99/mermaid-studio/internal/db"
)

// Cache persists successful renders keyed by engine, options and source.
type Cache struct {
	db *db.DB
}

// NewCache creates a Cache backed by the given database.
func NewCache(database *db.DB) *Cache {
	return &Cache{db: database}
}

// CacheStats summarises the cache contents.
type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Bytes   int64 `json:"bytes"`
}

// Key returns the cache key for a render of source under opts by engine.
func Key(engine string, opts Options, source string) string {
	h := sha256.New()
	h.Write([]byte(engine))
	h.Write([]byte{0})
	o, _ := json.Marshal(opts)
	h.Write(o)
	h.Write([]byte{0})
	h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached markup for key. The bool is false on a miss.
func (c *Cache) Get(ctx context.Context, key string) (Markup, bool, error) {
	var markup string
	err := c.db.QueryRowContext(ctx, `SELECT markup FROM render_cache WHERE key = ?`, key).Scan(&markup)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading render cache: %w", err)
	}

	_, err = c.db.ExecContext(ctx,
		`UPDATE render_cache SET hits = hits + 1, last_hit_at = ? WHERE key = ?`,
		time.Now().UTC(), key)
	if err != nil {
		return "", false, fmt.Errorf("updating render cache hits: %w", err)
	}
	return Markup(markup), true, nil
}

// Put stores markup under key, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, key, engine string, theme Theme, markup Markup) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO render_cache (key, engine, theme, markup, bytes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET markup = excluded.markup, bytes = excluded.bytes`,
		key, engine, string(theme), string(markup), len(markup), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("writing render cache: %w", err)
	}
	return nil
}

// Stats reports the number of entries, total hits and stored bytes.
func (c *Cache) Stats(ctx context.Context) (CacheStats, error) {
	var s CacheStats
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(hits), 0), COALESCE(SUM(bytes), 0) FROM render_cache`,
	).Scan(&s.Entries, &s.Hits, &s.Bytes)
	if err != nil {
		return s, fmt.Errorf("reading render cache stats: %w", err)
	}
	return s, nil
}

// Purge deletes entries created before cutoff and returns how many went.
func (c *Cache) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM render_cache WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purging render cache: %w", err)
	}
	return res.RowsAffected()
}

// CachedEngine wraps an Engine so identical renders are served from Cache.
// Failures are never cached.
type CachedEngine struct {
	next  Engine
	cache *Cache
	log   *slog.Logger
}

// NewCachedEngine wraps next with cache. Cache errors are logged and the
// render goes through uncached.
func NewCachedEngine(next Engine, cache *Cache, logger *slog.Logger) *CachedEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedEngine{next: next, cache: cache, log: logger.With("component", "render_cache")}
}

func (e *CachedEngine) Name() string { return e.next.Name() }

func (e *CachedEngine) Render(ctx context.Context, req Request) (Markup, error) {
	key := Key(e.next.Name(), req.Options, req.Source)
	m, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.log.Warn("render cache read failed", "error", err)
	} else if ok {
		return m, nil
	}

	m, err = e.next.Render(ctx, req)
	if err != nil {
		return "", err
	}
	if err := e.cache.Put(ctx, key, e.next.Name(), req.Options.Theme, m); err != nil {
		e.log.Warn("render cache write failed", "error", err)
	}
	return m, nil
}
