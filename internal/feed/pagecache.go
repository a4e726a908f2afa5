package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"ripple-feed/internal/cache"
	"ripple-feed/internal/models"

	"github.com/google/uuid"
)

// pageShapeRaw tags a cached payload as the canonical raw form. It is the
// only shape the page cache will store or serve.
const pageShapeRaw = "raw"

// decoratedMarkers are field names that only exist on the projected,
// per-viewer form. Finding any of them in a cached payload means the entry
// was poisoned by decorated data and must be healed.
var decoratedMarkers = []string{"images", "videos", "isLiked", "isSaved", "lastComment"}

type cachedPage struct {
	Shape string          `json:"shape"`
	Posts json.RawMessage `json:"posts"`
}

// PageCache is the per-viewer TTL cache of ranker output. Its API only
// accepts []models.Post, so decorated pages are rejected at compile time; the
// structural checks below guard against entries written by other processes
// or by earlier builds.
//
// The cache is strictly a latency optimization: any store failure is treated
// as a miss and the caller recomputes from the data store.
type PageCache struct {
	store cache.Store
	ttl   time.Duration

	// metrics hooks, any may be nil
	onHit        func()
	onMiss       func()
	onCorruption func()
}

func NewPageCache(store cache.Store, ttl time.Duration) *PageCache {
	return &PageCache{store: store, ttl: ttl}
}

// WithMetrics registers hit/miss/corruption counters.
func (c *PageCache) WithMetrics(onHit, onMiss, onCorruption func()) *PageCache {
	c.onHit = onHit
	c.onMiss = onMiss
	c.onCorruption = onCorruption
	return c
}

// Get returns the cached raw page for the key, if present and well-shaped.
// A corrupted entry (decorated shape found where raw was expected) is
// deleted and reported as a miss; the caller recomputes and overwrites it.
// This self-healing path is a contract of the cache, not incidental.
func (c *PageCache) Get(ctx context.Context, key string) ([]models.Post, bool) {
	data, hit, err := c.store.Get(ctx, key)
	if err != nil {
		slog.Warn("feed page cache read failed, treating as miss", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	if !hit {
		c.miss()
		return nil, false
	}

	var page cachedPage
	if err := json.Unmarshal(data, &page); err != nil {
		c.heal(ctx, key, "undecodable entry")
		return nil, false
	}
	if page.Shape != pageShapeRaw || payloadLooksDecorated(page.Posts) {
		c.heal(ctx, key, "decorated payload found where raw was expected")
		return nil, false
	}

	var posts []models.Post
	if err := json.Unmarshal(page.Posts, &posts); err != nil {
		c.heal(ctx, key, "undecodable post list")
		return nil, false
	}

	if c.onHit != nil {
		c.onHit()
	}
	return posts, true
}

// Set stores a raw page. The payload is re-checked structurally before the
// write; a failed check skips the write and logs a warning, so an upstream
// bug cannot poison the cache.
func (c *PageCache) Set(ctx context.Context, key string, posts []models.Post) {
	raw, err := json.Marshal(posts)
	if err != nil {
		slog.Warn("feed page cache write skipped, marshal failed", "key", key, "error", err)
		return
	}
	if payloadLooksDecorated(raw) {
		slog.Warn("feed page cache write skipped, payload is not raw", "key", key)
		return
	}

	data, err := json.Marshal(cachedPage{Shape: pageShapeRaw, Posts: raw})
	if err != nil {
		slog.Warn("feed page cache write skipped, marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		slog.Warn("feed page cache write failed", "key", key, "error", err)
	}
}

// InvalidateViewer drops every cached feed page the viewer owns. Coarse on
// purpose: correctness over hit rate.
func (c *PageCache) InvalidateViewer(ctx context.Context, viewerID uuid.UUID) error {
	return c.store.DeletePattern(ctx, "feed:"+viewerID.String()+":*")
}

func (c *PageCache) miss() {
	if c.onMiss != nil {
		c.onMiss()
	}
}

func (c *PageCache) heal(ctx context.Context, key, reason string) {
	slog.Warn("feed page cache entry corrupted, self-healing", "key", key, "reason", reason)
	if err := c.store.Delete(ctx, key); err != nil {
		slog.Warn("feed page cache heal delete failed", "key", key, "error", err)
	}
	if c.onCorruption != nil {
		c.onCorruption()
	}
	c.miss()
}

// payloadLooksDecorated structurally checks a serialized post list for
// fields that only the projected form carries.
func payloadLooksDecorated(raw json.RawMessage) bool {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		// Not even a list of objects; the caller treats it as corrupt anyway.
		return true
	}
	for _, item := range items {
		for _, marker := range decoratedMarkers {
			if _, ok := item[marker]; ok {
				return true
			}
		}
	}
	return false
}
