package feed

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ripple-feed/internal/cache"
	"ripple-feed/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore simulates a cache outage.
type failingStore struct{}

func (failingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}
func (failingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("connection refused")
}
func (failingStore) Delete(ctx context.Context, keys ...string) error {
	return errors.New("connection refused")
}
func (failingStore) DeletePattern(ctx context.Context, pattern string) error {
	return errors.New("connection refused")
}

func rawPosts(n int) []models.Post {
	posts := make([]models.Post, n)
	for i := range posts {
		posts[i] = models.Post{
			ID:          uuid.New(),
			AuthorID:    uuid.New(),
			Caption:     "caption",
			Status:      models.PostStatusPublished,
			Visibility:  models.VisibilityPublic,
			PublishedAt: time.Now(),
		}
	}
	return posts
}

func TestPageCacheRoundTrip(t *testing.T) {
	store := cache.NewMemory()
	pc := NewPageCache(store, time.Minute)
	ctx := context.Background()

	posts := rawPosts(3)
	key := "feed:viewer:feed:-:1:20"

	_, hit := pc.Get(ctx, key)
	assert.False(t, hit)

	pc.Set(ctx, key, posts)

	got, hit := pc.Get(ctx, key)
	require.True(t, hit)
	require.Len(t, got, 3)
	assert.Equal(t, posts[0].ID, got[0].ID)
	assert.Equal(t, posts[2].Caption, got[2].Caption)
}

func TestPageCacheEmptyPage(t *testing.T) {
	store := cache.NewMemory()
	pc := NewPageCache(store, time.Minute)
	ctx := context.Background()

	pc.Set(ctx, "k", []models.Post{})
	got, hit := pc.Get(ctx, "k")
	assert.True(t, hit)
	assert.Empty(t, got)
}

func TestPageCacheHealsDecoratedEntry(t *testing.T) {
	store := cache.NewMemory()
	corruptions := 0
	pc := NewPageCache(store, time.Minute).WithMetrics(nil, nil, func() { corruptions++ })
	ctx := context.Background()

	// Simulate another process writing a decorated page under a raw key.
	decorated := []map[string]interface{}{
		{"id": uuid.New().String(), "isLiked": true, "images": []string{}},
	}
	payload, err := json.Marshal(decorated)
	require.NoError(t, err)
	envelope, err := json.Marshal(cachedPage{Shape: pageShapeRaw, Posts: payload})
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "k", envelope, time.Minute))

	// First read detects the poisoned entry, deletes it and reports a miss.
	_, hit := pc.Get(ctx, "k")
	assert.False(t, hit)
	assert.Equal(t, 1, corruptions)
	assert.Equal(t, 0, store.Len())

	// A fresh raw write then round-trips normally.
	pc.Set(ctx, "k", rawPosts(1))
	_, hit = pc.Get(ctx, "k")
	assert.True(t, hit)
	assert.Equal(t, 1, corruptions)
}

func TestPageCacheHealsUndecodableEntry(t *testing.T) {
	store := cache.NewMemory()
	pc := NewPageCache(store, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("not json"), time.Minute))

	_, hit := pc.Get(ctx, "k")
	assert.False(t, hit)
	assert.Equal(t, 0, store.Len())
}

func TestPageCacheHealsWrongShapeTag(t *testing.T) {
	store := cache.NewMemory()
	pc := NewPageCache(store, time.Minute)
	ctx := context.Background()

	raw, _ := json.Marshal(rawPosts(1))
	envelope, _ := json.Marshal(cachedPage{Shape: "decorated", Posts: raw})
	require.NoError(t, store.Set(ctx, "k", envelope, time.Minute))

	_, hit := pc.Get(ctx, "k")
	assert.False(t, hit)
	assert.Equal(t, 0, store.Len())
}

func TestPageCacheDegradesWhenStoreDown(t *testing.T) {
	misses := 0
	pc := NewPageCache(failingStore{}, time.Minute).WithMetrics(nil, func() { misses++ }, nil)
	ctx := context.Background()

	// Reads report a miss, writes are swallowed; the caller keeps working.
	_, hit := pc.Get(ctx, "k")
	assert.False(t, hit)
	assert.Equal(t, 1, misses)

	pc.Set(ctx, "k", rawPosts(1))
	assert.Error(t, pc.InvalidateViewer(ctx, uuid.New()))
}

func TestPageCacheTTLExpiry(t *testing.T) {
	store := cache.NewMemory()
	pc := NewPageCache(store, 10*time.Millisecond)
	ctx := context.Background()

	pc.Set(ctx, "k", rawPosts(1))
	time.Sleep(20 * time.Millisecond)

	_, hit := pc.Get(ctx, "k")
	assert.False(t, hit)
}

func TestPageCacheInvalidateViewer(t *testing.T) {
	store := cache.NewMemory()
	pc := NewPageCache(store, time.Minute)
	ctx := context.Background()

	viewer := uuid.New()
	other := uuid.New()
	q1 := Query{Variant: VariantFeed, Page: 1, Limit: 20}
	q2 := Query{Variant: VariantTrending, Page: 1, Limit: 20, Hours: 24}

	pc.Set(ctx, q1.CacheKey(viewer), rawPosts(1))
	pc.Set(ctx, q2.CacheKey(viewer), rawPosts(1))
	pc.Set(ctx, q1.CacheKey(other), rawPosts(1))

	require.NoError(t, pc.InvalidateViewer(ctx, viewer))

	_, hit := pc.Get(ctx, q1.CacheKey(viewer))
	assert.False(t, hit)
	_, hit = pc.Get(ctx, q2.CacheKey(viewer))
	assert.False(t, hit)
	_, hit = pc.Get(ctx, q1.CacheKey(other))
	assert.True(t, hit)
}

func TestCacheKeyDistinguishesQueries(t *testing.T) {
	viewer := uuid.New()
	keys := map[string]bool{
		Query{Variant: VariantFeed, Page: 1, Limit: 20}.CacheKey(viewer):                      true,
		Query{Variant: VariantFeed, Page: 2, Limit: 20}.CacheKey(viewer):                      true,
		Query{Variant: VariantFeed, Page: 1, Limit: 10}.CacheKey(viewer):                      true,
		Query{Variant: VariantTrending, Page: 1, Limit: 20, Hours: 24}.CacheKey(viewer):       true,
		Query{Variant: VariantTrending, Page: 1, Limit: 20, Hours: 48}.CacheKey(viewer):       true,
		Query{Variant: VariantHashtag, Page: 1, Limit: 20, Hashtag: "go"}.CacheKey(viewer):    true,
		Query{Variant: VariantHashtag, Page: 1, Limit: 20, Hashtag: "rust"}.CacheKey(viewer):  true,
		Query{Variant: VariantFeed, Page: 1, Limit: 20}.CacheKey(uuid.New()):                  true,
	}
	assert.Len(t, keys, 8)
}
