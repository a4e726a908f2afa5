package feed

import (
	"context"
	"math"
	"time"

	"ripple-feed/internal/config"
	"ripple-feed/internal/database"

	"github.com/google/uuid"
)

// ScoreMaintainer recomputes a post's denormalized engagement score. It runs
// synchronously on the mutation path: callers invoke Recompute after every
// like/unlike/comment/share/view write and once at post creation.
//
// The returned error is informational. Callers log and count it but never
// roll back the mutation that triggered the recompute; score freshness is
// best-effort by contract.
type ScoreMaintainer struct {
	db      database.Adapter
	weights config.ScoreConfig
	now     func() time.Time
}

func NewScoreMaintainer(db database.Adapter, weights config.ScoreConfig) *ScoreMaintainer {
	return &ScoreMaintainer{
		db:      db,
		weights: weights,
		now:     time.Now,
	}
}

// Score computes the ranking signal for a post: a weighted log1p sum of the
// engagement counters, decayed by a half-life on hours since publication.
// At fixed recency the score is strictly monotonic in every counter.
func (s *ScoreMaintainer) Score(likes, comments, shares, views int, publishedAt, now time.Time) float64 {
	w := s.weights
	engagement := w.WeightLikes*math.Log1p(float64(likes)) +
		w.WeightComments*math.Log1p(float64(comments)) +
		w.WeightShares*math.Log1p(float64(shares)) +
		w.WeightViews*math.Log1p(float64(views))

	ageHours := now.Sub(publishedAt).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	return engagement * math.Exp2(-ageHours/w.HalfLifeHours)
}

// Recompute re-reads the post, recounts the counters from the embedded
// collections and writes counters, score and the score timestamp in a single
// update so they cannot diverge.
func (s *ScoreMaintainer) Recompute(ctx context.Context, postID uuid.UUID) error {
	post, err := s.db.GetPost(ctx, postID)
	if err != nil {
		return err
	}

	now := s.now()
	likes := len(post.Likes)
	comments := len(post.Comments)
	score := s.Score(likes, comments, post.SharesCount, post.ViewsCount, post.PublishedAt, now)

	return s.db.ApplyEngagement(ctx, post.ID, likes, comments, post.SharesCount, post.ViewsCount, score, now)
}
