package feed

import (
	"context"
	"fmt"
	"time"

	"ripple-feed/internal/database"
	"ripple-feed/internal/models"

	"github.com/google/uuid"
)

// Variant selects the candidate predicate for a feed query. All variants
// share the same ordering and block-exclusion rules.
type Variant string

const (
	VariantFeed     Variant = "feed"
	VariantTrending Variant = "trending"
	VariantHashtag  Variant = "hashtag"
)

// Query is a normalized feed request: one variant plus its parameters.
type Query struct {
	Variant Variant
	Page    int
	Limit   int
	Hashtag string // hashtag variant only
	Hours   int    // trending variant only
}

// CacheKey builds the per-viewer page cache key for this query. Keys embed
// every parameter that changes the result set, so distinct queries never
// collide and the "feed:{viewer}:*" prefix covers all of a viewer's pages.
func (q Query) CacheKey(viewerID uuid.UUID) string {
	extra := "-"
	switch q.Variant {
	case VariantTrending:
		extra = fmt.Sprintf("%dh", q.Hours)
	case VariantHashtag:
		extra = q.Hashtag
	}
	return fmt.Sprintf("feed:%s:%s:%s:%d:%d", viewerID, q.Variant, extra, q.Page, q.Limit)
}

// Ranker builds and orders the raw candidate set for a viewer. Its output is
// always the canonical raw post shape; nothing viewer-specific is attached.
type Ranker struct {
	db  database.Adapter
	now func() time.Time
}

func NewRanker(db database.Adapter) *Ranker {
	return &Ranker{db: db, now: time.Now}
}

func (r *Ranker) candidateQuery(snap *models.RelationshipSnapshot, q Query) database.CandidateQuery {
	cq := database.CandidateQuery{
		Skip:  (q.Page - 1) * q.Limit,
		Limit: q.Limit,
	}

	switch q.Variant {
	case VariantTrending:
		cq.PublishedSince = r.now().Add(-time.Duration(q.Hours) * time.Hour)
	case VariantHashtag:
		cq.Hashtag = q.Hashtag
	default:
		// Default feed: the viewer's own posts plus followed authors.
		cq.AuthorIDs = make([]uuid.UUID, 0, len(snap.FollowingIDs)+1)
		cq.AuthorIDs = append(cq.AuthorIDs, snap.ViewerID)
		for id := range snap.FollowingIDs {
			if parsed, err := uuid.Parse(id); err == nil {
				cq.AuthorIDs = append(cq.AuthorIDs, parsed)
			}
		}
	}

	for id := range snap.BlockedIDs {
		if parsed, err := uuid.Parse(id); err == nil {
			cq.ExcludeAuthorIDs = append(cq.ExcludeAuthorIDs, parsed)
		}
	}
	return cq
}

// Rank returns one page of ordered raw candidates. Data-store failures
// propagate: ranking correctness depends on a live read.
func (r *Ranker) Rank(ctx context.Context, snap *models.RelationshipSnapshot, q Query) ([]models.Post, error) {
	return r.db.FindCandidates(ctx, r.candidateQuery(snap, q))
}

// Count returns the authoritative candidate total for pagination. It is
// independent of the visibility filter so hasNext/hasPrev are never skewed
// by per-page attrition.
func (r *Ranker) Count(ctx context.Context, snap *models.RelationshipSnapshot, q Query) (int64, error) {
	cq := r.candidateQuery(snap, q)
	cq.Skip = 0
	cq.Limit = 0
	return r.db.CountCandidates(ctx, cq)
}
