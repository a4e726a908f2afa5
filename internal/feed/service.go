package feed

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"ripple-feed/internal/config"
	"ripple-feed/internal/database"
	"ripple-feed/internal/models"
	"ripple-feed/internal/utils"

	"github.com/google/uuid"
)

// Service wires the feed pipeline: ranked candidates flow through the page
// cache, then the always-fresh visibility filter, then per-viewer projection.
// Mutations write through the data store and invalidate whatever cached state
// they made stale before returning.
type Service struct {
	db      database.Adapter
	pages   *PageCache
	rels    *SnapshotCache
	ranker  *Ranker
	scores  *ScoreMaintainer
	metrics *utils.Metrics
	limits  config.FeedConfig
}

func NewService(
	db database.Adapter,
	pages *PageCache,
	rels *SnapshotCache,
	ranker *Ranker,
	scores *ScoreMaintainer,
	metrics *utils.Metrics,
	limits config.FeedConfig,
) *Service {
	return &Service{
		db:      db,
		pages:   pages,
		rels:    rels,
		ranker:  ranker,
		scores:  scores,
		metrics: metrics,
		limits:  limits,
	}
}

func (s *Service) normalize(q Query) Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = s.limits.DefaultLimit
	}
	if q.Limit > s.limits.MaxLimit {
		q.Limit = s.limits.MaxLimit
	}
	if q.Variant == VariantTrending && q.Hours <= 0 {
		q.Hours = s.limits.TrendingDefaultHours
	}
	return q
}

// Feed returns one page of the viewer's home feed: own posts plus followed
// authors, ordered by engagement score.
func (s *Service) Feed(ctx context.Context, viewerID uuid.UUID, page, limit int) (*models.FeedPage, error) {
	return s.fetchPage(ctx, viewerID, Query{Variant: VariantFeed, Page: page, Limit: limit})
}

// Trending returns the globally highest-scoring posts published within the
// given window, regardless of follow graph.
func (s *Service) Trending(ctx context.Context, viewerID uuid.UUID, page, limit, hours int) (*models.FeedPage, error) {
	return s.fetchPage(ctx, viewerID, Query{Variant: VariantTrending, Page: page, Limit: limit, Hours: hours})
}

// ByHashtag returns posts carrying the given tag, ordered like the feed.
func (s *Service) ByHashtag(ctx context.Context, viewerID uuid.UUID, tag string, page, limit int) (*models.FeedPage, error) {
	tag = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(tag)), "#")
	if tag == "" {
		return nil, utils.NewAppError(utils.ErrInvalidInput, "hashtag is required", nil)
	}
	return s.fetchPage(ctx, viewerID, Query{Variant: VariantHashtag, Page: page, Limit: limit, Hashtag: tag})
}

func (s *Service) fetchPage(ctx context.Context, viewerID uuid.UUID, q Query) (*models.FeedPage, error) {
	q = s.normalize(q)
	if s.metrics != nil {
		s.metrics.FeedRequests.WithLabelValues(string(q.Variant)).Inc()
		timer := time.Now()
		defer func() {
			s.metrics.RequestDuration.WithLabelValues(string(q.Variant)).Observe(time.Since(timer).Seconds())
		}()
	}

	snap, err := s.rels.Snapshot(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	key := q.CacheKey(viewerID)
	posts, hit := s.pages.Get(ctx, key)
	if !hit {
		posts, err = s.ranker.Rank(ctx, snap, q)
		if err != nil {
			return nil, utils.NewAppError(utils.ErrDatabase, "failed to rank feed candidates", err)
		}
		s.pages.Set(ctx, key, posts)
	}

	total, err := s.ranker.Count(ctx, snap, q)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to count feed candidates", err)
	}

	authors, err := s.loadAuthors(ctx, posts)
	if err != nil {
		return nil, err
	}
	visible := FilterVisible(viewerID, snap, authors, posts)

	vc, err := s.viewerContext(ctx, viewerID, snap)
	if err != nil {
		return nil, err
	}

	decorated := make([]models.DecoratedPost, 0, len(visible))
	for i := range visible {
		decorated = append(decorated, Project(&visible[i], vc))
	}

	return &models.FeedPage{
		Posts:      decorated,
		Pagination: paginate(q.Page, q.Limit, total),
	}, nil
}

func (s *Service) loadAuthors(ctx context.Context, posts []models.Post) (map[string]*models.User, error) {
	seen := make(map[string]bool, len(posts))
	ids := make([]uuid.UUID, 0, len(posts))
	for i := range posts {
		key := posts[i].AuthorID.String()
		if !seen[key] {
			seen[key] = true
			ids = append(ids, posts[i].AuthorID)
		}
	}
	if len(ids) == 0 {
		return map[string]*models.User{}, nil
	}
	authors, err := s.db.GetUsers(ctx, ids)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to load post authors", err)
	}
	return authors, nil
}

// viewerContext reads the viewer's saved set fresh on every request so that
// isSaved never lags, even when the post page itself came from cache.
func (s *Service) viewerContext(ctx context.Context, viewerID uuid.UUID, snap *models.RelationshipSnapshot) (*models.ViewerContext, error) {
	viewer, err := s.db.GetUser(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	saved := make(map[string]bool, len(viewer.SavedPosts))
	for _, id := range viewer.SavedPosts {
		saved[id.String()] = true
	}
	return &models.ViewerContext{
		ViewerID:     viewerID,
		SavedPostIDs: saved,
		FollowingIDs: snap.FollowingIDs,
		BlockedIDs:   snap.BlockedIDs,
	}, nil
}

func paginate(page, limit int, total int64) models.Pagination {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return models.Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalPosts:  int(total),
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}

// CreatePostInput carries the author-supplied fields of a new post.
type CreatePostInput struct {
	Caption           string
	Hashtags          []string
	Media             []models.MediaItem
	Visibility        models.PostVisibility
	CommentVisibility models.CommentVisibility
	Location          *models.Location
}

// CreatePost publishes a new post with a zero engagement baseline and
// invalidates the author's own cached pages so it appears immediately.
func (s *Service) CreatePost(ctx context.Context, authorID uuid.UUID, in CreatePostInput) (*models.Post, error) {
	if strings.TrimSpace(in.Caption) == "" && len(in.Media) == 0 {
		return nil, utils.NewAppError(utils.ErrInvalidInput, "post needs a caption or media", nil)
	}
	switch in.Visibility {
	case "":
		in.Visibility = models.VisibilityPublic
	case models.VisibilityPublic, models.VisibilityFollowers:
	default:
		return nil, utils.NewAppError(utils.ErrInvalidInput, "unknown post visibility", nil)
	}
	switch in.CommentVisibility {
	case "":
		in.CommentVisibility = models.CommentsEveryone
	case models.CommentsEveryone, models.CommentsFollowers, models.CommentsNone:
	default:
		return nil, utils.NewAppError(utils.ErrInvalidInput, "unknown comment visibility", nil)
	}

	author, err := s.db.GetUser(ctx, authorID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	post := &models.Post{
		ID:                uuid.New(),
		AuthorID:          authorID,
		AuthorUsername:    author.Username,
		Caption:           in.Caption,
		Hashtags:          normalizeHashtags(in.Hashtags),
		Status:            models.PostStatusPublished,
		Visibility:        in.Visibility,
		CommentVisibility: in.CommentVisibility,
		Media:             in.Media,
		Likes:             map[string]time.Time{},
		Location:          in.Location,
		PublishedAt:       now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	post.EngagementScore = s.scores.Score(0, 0, 0, 0, post.PublishedAt, now)
	post.EngagementScoreUpdatedAt = now

	if err := s.db.SavePost(ctx, post); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to save post", err)
	}
	s.invalidatePages(ctx, authorID)
	return post, nil
}

func normalizeHashtags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(tag)), "#")
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// GetPost returns a single decorated post, subject to the same visibility
// rules as the feed.
func (s *Service) GetPost(ctx context.Context, viewerID, postID uuid.UUID) (*models.DecoratedPost, error) {
	post, snap, err := s.visiblePost(ctx, viewerID, postID)
	if err != nil {
		return nil, err
	}
	vc, err := s.viewerContext(ctx, viewerID, snap)
	if err != nil {
		return nil, err
	}
	decorated := Project(post, vc)
	return &decorated, nil
}

// DeletePost soft-deletes the viewer's own post.
func (s *Service) DeletePost(ctx context.Context, viewerID, postID uuid.UUID) error {
	post, err := s.db.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != viewerID {
		return utils.NewForbiddenError("only the author can delete a post")
	}
	if err := s.db.UpdatePostStatus(ctx, postID, models.PostStatusDeleted); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to delete post", err)
	}
	s.invalidatePages(ctx, viewerID)
	return nil
}

// LikePost records the viewer's like and refreshes the score best-effort.
func (s *Service) LikePost(ctx context.Context, viewerID, postID uuid.UUID) error {
	post, _, err := s.visiblePost(ctx, viewerID, postID)
	if err != nil {
		return err
	}
	if post.IsLikedBy(viewerID) {
		return utils.NewAppError(utils.ErrAlreadyLiked, "post already liked", nil)
	}
	if err := s.db.AddLike(ctx, postID, viewerID, time.Now()); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to record like", err)
	}
	s.refreshScore(ctx, postID)
	s.invalidatePages(ctx, viewerID)
	return nil
}

func (s *Service) UnlikePost(ctx context.Context, viewerID, postID uuid.UUID) error {
	post, _, err := s.visiblePost(ctx, viewerID, postID)
	if err != nil {
		return err
	}
	if !post.IsLikedBy(viewerID) {
		return utils.NewAppError(utils.ErrNotLiked, "post not liked", nil)
	}
	if err := s.db.RemoveLike(ctx, postID, viewerID); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to remove like", err)
	}
	s.refreshScore(ctx, postID)
	s.invalidatePages(ctx, viewerID)
	return nil
}

// AddComment appends a comment, subject to the post's comment policy.
func (s *Service) AddComment(ctx context.Context, viewerID, postID uuid.UUID, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, utils.NewAppError(utils.ErrInvalidInput, "comment text is required", nil)
	}

	post, snap, err := s.visiblePost(ctx, viewerID, postID)
	if err != nil {
		return nil, err
	}
	if viewerID != post.AuthorID {
		switch post.CommentVisibility {
		case models.CommentsNone:
			return nil, utils.NewAppError(utils.ErrCommentsDisabled, "comments are disabled on this post", nil)
		case models.CommentsFollowers:
			if !snap.Follows(post.AuthorID) {
				return nil, utils.NewAppError(utils.ErrCommentsDisabled, "only followers can comment on this post", nil)
			}
		}
	}

	comment := models.Comment{
		ID:        uuid.New(),
		AuthorID:  viewerID,
		Text:      text,
		CreatedAt: time.Now(),
	}
	if err := s.db.AddComment(ctx, postID, comment); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to add comment", err)
	}
	s.refreshScore(ctx, postID)
	s.invalidatePages(ctx, viewerID)
	return &comment, nil
}

// DeleteComment removes a comment. Allowed for the comment author and for
// the post author moderating their own post.
func (s *Service) DeleteComment(ctx context.Context, viewerID, postID, commentID uuid.UUID) error {
	post, err := s.db.GetPost(ctx, postID)
	if err != nil {
		return err
	}

	var target *models.Comment
	for i := range post.Comments {
		if post.Comments[i].ID == commentID {
			target = &post.Comments[i]
			break
		}
	}
	if target == nil {
		return utils.NewAppError(utils.ErrCommentNotFound, "comment not found", nil)
	}
	if viewerID != target.AuthorID && viewerID != post.AuthorID {
		return utils.NewForbiddenError("not allowed to delete this comment")
	}

	if err := s.db.DeleteComment(ctx, postID, commentID); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to delete comment", err)
	}
	s.refreshScore(ctx, postID)
	s.invalidatePages(ctx, viewerID)
	return nil
}

// SharePost counts a share.
func (s *Service) SharePost(ctx context.Context, viewerID, postID uuid.UUID) error {
	if _, _, err := s.visiblePost(ctx, viewerID, postID); err != nil {
		return err
	}
	if err := s.db.IncrementShares(ctx, postID); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to record share", err)
	}
	s.refreshScore(ctx, postID)
	s.invalidatePages(ctx, viewerID)
	return nil
}

// RegisterView counts an impression. Views change nothing the viewer sees
// about their own feed, so no page invalidation happens here.
func (s *Service) RegisterView(ctx context.Context, viewerID, postID uuid.UUID) error {
	if _, _, err := s.visiblePost(ctx, viewerID, postID); err != nil {
		return err
	}
	if err := s.db.IncrementViews(ctx, postID); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to record view", err)
	}
	s.refreshScore(ctx, postID)
	return nil
}

// SavePost bookmarks the post for the viewer. isSaved is resolved from the
// fresh viewer record on every read, so no cache invalidation is needed.
func (s *Service) SavePost(ctx context.Context, viewerID, postID uuid.UUID) error {
	if _, _, err := s.visiblePost(ctx, viewerID, postID); err != nil {
		return err
	}
	if err := s.db.UpdateSavedPosts(ctx, viewerID, postID, true); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to save post", err)
	}
	return nil
}

func (s *Service) UnsavePost(ctx context.Context, viewerID, postID uuid.UUID) error {
	if err := s.db.UpdateSavedPosts(ctx, viewerID, postID, false); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to unsave post", err)
	}
	return nil
}

// Follow adds a follow edge and invalidates the follower's snapshot and
// pages before returning, so the next feed read already includes the new
// author.
func (s *Service) Follow(ctx context.Context, viewerID, targetID uuid.UUID) error {
	if viewerID == targetID {
		return utils.NewAppError(utils.ErrInvalidInput, "cannot follow yourself", nil)
	}
	snap, err := s.rels.Snapshot(ctx, viewerID)
	if err != nil {
		return err
	}
	if snap.IsBlocked(targetID) {
		return utils.NewForbiddenError("cannot follow this account")
	}
	if _, err := s.db.GetUser(ctx, targetID); err != nil {
		return err
	}
	if err := s.db.UpdateFollowEdge(ctx, viewerID, targetID, true); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to follow", err)
	}
	s.invalidateViewer(ctx, viewerID)
	return nil
}

func (s *Service) Unfollow(ctx context.Context, viewerID, targetID uuid.UUID) error {
	if viewerID == targetID {
		return utils.NewAppError(utils.ErrInvalidInput, "cannot unfollow yourself", nil)
	}
	if err := s.db.UpdateFollowEdge(ctx, viewerID, targetID, false); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to unfollow", err)
	}
	s.invalidateViewer(ctx, viewerID)
	return nil
}

// Block hides both parties from each other. Both snapshots and both page
// caches are invalidated: either side's next read must reflect the block.
func (s *Service) Block(ctx context.Context, viewerID, targetID uuid.UUID) error {
	if viewerID == targetID {
		return utils.NewAppError(utils.ErrInvalidInput, "cannot block yourself", nil)
	}
	if _, err := s.db.GetUser(ctx, targetID); err != nil {
		return err
	}
	if err := s.db.UpdateBlockEdge(ctx, viewerID, targetID, true); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to block", err)
	}
	s.invalidateViewer(ctx, viewerID)
	s.invalidateViewer(ctx, targetID)
	return nil
}

func (s *Service) Unblock(ctx context.Context, viewerID, targetID uuid.UUID) error {
	if viewerID == targetID {
		return utils.NewAppError(utils.ErrInvalidInput, "cannot unblock yourself", nil)
	}
	if err := s.db.UpdateBlockEdge(ctx, viewerID, targetID, false); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to unblock", err)
	}
	s.invalidateViewer(ctx, viewerID)
	s.invalidateViewer(ctx, targetID)
	return nil
}

// visiblePost loads a post and enforces the visibility rules against a fresh
// snapshot. A hidden post is reported as not found, never as forbidden, so
// existence is not leaked.
func (s *Service) visiblePost(ctx context.Context, viewerID, postID uuid.UUID) (*models.Post, *models.RelationshipSnapshot, error) {
	post, err := s.db.GetPost(ctx, postID)
	if err != nil {
		return nil, nil, err
	}
	snap, err := s.rels.Snapshot(ctx, viewerID)
	if err != nil {
		return nil, nil, err
	}

	var author *models.User
	if post.AuthorID == viewerID {
		author = &models.User{ID: viewerID}
	} else {
		author, err = s.db.GetUser(ctx, post.AuthorID)
		if err != nil {
			return nil, nil, err
		}
	}
	if !Visible(viewerID, snap, author, post) {
		return nil, nil, utils.NewPostNotFoundError(postID.String())
	}
	return post, snap, nil
}

// refreshScore runs the synchronous best-effort recompute after an
// engagement mutation. Failures are logged and counted, never surfaced: the
// mutation itself has already committed.
func (s *Service) refreshScore(ctx context.Context, postID uuid.UUID) {
	if err := s.scores.Recompute(ctx, postID); err != nil {
		slog.Warn("engagement score recompute failed", "post", postID, "error", err)
		if s.metrics != nil {
			s.metrics.ScoreRecomputeFailures.Inc()
		}
	}
}

// invalidatePages drops the viewer's cached feed pages. Best-effort: a
// failed invalidation is logged and the TTL becomes the backstop.
func (s *Service) invalidatePages(ctx context.Context, viewerID uuid.UUID) {
	if err := s.pages.InvalidateViewer(ctx, viewerID); err != nil {
		slog.Warn("feed page invalidation failed", "viewer", viewerID, "error", err)
	}
}

// invalidateViewer drops both the relationship snapshot and the cached pages
// for a viewer after a graph mutation.
func (s *Service) invalidateViewer(ctx context.Context, viewerID uuid.UUID) {
	if err := s.rels.Invalidate(ctx, viewerID); err != nil {
		slog.Warn("relationship snapshot invalidation failed", "viewer", viewerID, "error", err)
	}
	s.invalidatePages(ctx, viewerID)
}
