package feed

import (
	"context"
	"testing"
	"time"

	"ripple-feed/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPost(db *fakeAdapter, author uuid.UUID, score float64, age time.Duration, tags ...string) uuid.UUID {
	id := uuid.New()
	db.addPost(&models.Post{
		ID:              id,
		AuthorID:        author,
		Status:          models.PostStatusPublished,
		Visibility:      models.VisibilityPublic,
		Hashtags:        tags,
		EngagementScore: score,
		PublishedAt:     time.Now().Add(-age),
	})
	return id
}

func TestRankFeedVariant(t *testing.T) {
	db := newFakeAdapter()
	r := NewRanker(db)

	viewer := uuid.New()
	followed := uuid.New()
	stranger := uuid.New()

	own := seedPost(db, viewer, 1.0, time.Hour)
	theirs := seedPost(db, followed, 5.0, time.Hour)
	seedPost(db, stranger, 9.0, time.Hour)

	snap := snapshotFor(viewer, []uuid.UUID{followed}, nil)
	posts, err := r.Rank(context.Background(), snap, Query{Variant: VariantFeed, Page: 1, Limit: 10})
	require.NoError(t, err)

	// Own and followed posts only, highest score first.
	require.Len(t, posts, 2)
	assert.Equal(t, theirs, posts[0].ID)
	assert.Equal(t, own, posts[1].ID)
}

func TestRankFeedZeroFollows(t *testing.T) {
	db := newFakeAdapter()
	r := NewRanker(db)

	viewer := uuid.New()
	own := seedPost(db, viewer, 1.0, time.Hour)
	seedPost(db, uuid.New(), 9.0, time.Hour)

	snap := snapshotFor(viewer, nil, nil)
	posts, err := r.Rank(context.Background(), snap, Query{Variant: VariantFeed, Page: 1, Limit: 10})
	require.NoError(t, err)

	// A viewer following nobody still sees their own posts, not a global dump.
	require.Len(t, posts, 1)
	assert.Equal(t, own, posts[0].ID)
}

func TestRankTrendingVariant(t *testing.T) {
	db := newFakeAdapter()
	r := NewRanker(db)

	viewer := uuid.New()
	recent := seedPost(db, uuid.New(), 3.0, 2*time.Hour)
	seedPost(db, uuid.New(), 9.0, 48*time.Hour)

	snap := snapshotFor(viewer, nil, nil)
	posts, err := r.Rank(context.Background(), snap, Query{Variant: VariantTrending, Page: 1, Limit: 10, Hours: 24})
	require.NoError(t, err)

	// Only posts inside the window qualify, regardless of score.
	require.Len(t, posts, 1)
	assert.Equal(t, recent, posts[0].ID)
}

func TestRankHashtagVariant(t *testing.T) {
	db := newFakeAdapter()
	r := NewRanker(db)

	viewer := uuid.New()
	tagged := seedPost(db, uuid.New(), 3.0, time.Hour, "golang")
	seedPost(db, uuid.New(), 9.0, time.Hour, "other")

	snap := snapshotFor(viewer, nil, nil)
	posts, err := r.Rank(context.Background(), snap, Query{Variant: VariantHashtag, Page: 1, Limit: 10, Hashtag: "golang"})
	require.NoError(t, err)

	require.Len(t, posts, 1)
	assert.Equal(t, tagged, posts[0].ID)
}

func TestRankExcludesBlockedAuthors(t *testing.T) {
	db := newFakeAdapter()
	r := NewRanker(db)

	viewer := uuid.New()
	blocked := uuid.New()
	seedPost(db, blocked, 9.0, time.Hour)
	kept := seedPost(db, uuid.New(), 1.0, time.Hour)

	snap := snapshotFor(viewer, nil, []uuid.UUID{blocked})
	posts, err := r.Rank(context.Background(), snap, Query{Variant: VariantTrending, Page: 1, Limit: 10, Hours: 24})
	require.NoError(t, err)

	require.Len(t, posts, 1)
	assert.Equal(t, kept, posts[0].ID)
}

func TestRankPagination(t *testing.T) {
	db := newFakeAdapter()
	r := NewRanker(db)

	author := uuid.New()
	for i := 0; i < 5; i++ {
		seedPost(db, author, float64(i), time.Hour)
	}

	viewer := uuid.New()
	snap := snapshotFor(viewer, []uuid.UUID{author}, nil)

	page1, err := r.Rank(context.Background(), snap, Query{Variant: VariantFeed, Page: 1, Limit: 2})
	require.NoError(t, err)
	page2, err := r.Rank(context.Background(), snap, Query{Variant: VariantFeed, Page: 2, Limit: 2})
	require.NoError(t, err)
	page3, err := r.Rank(context.Background(), snap, Query{Variant: VariantFeed, Page: 3, Limit: 2})
	require.NoError(t, err)

	assert.Len(t, page1, 2)
	assert.Len(t, page2, 2)
	assert.Len(t, page3, 1)
	assert.Greater(t, page1[0].EngagementScore, page1[1].EngagementScore)
	assert.Greater(t, page1[1].EngagementScore, page2[0].EngagementScore)

	// Count covers the whole candidate set, not one page.
	total, err := r.Count(context.Background(), snap, Query{Variant: VariantFeed, Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
}
