package models

import (
	"time"

	"github.com/google/uuid"
)

// RelationshipSnapshot is a cached summary of a viewer's follow and block
// edges. BlockedIDs is the union of accounts the viewer blocked and accounts
// that blocked the viewer; for feed purposes the two are equivalent.
type RelationshipSnapshot struct {
	ViewerID     uuid.UUID       `json:"viewerId"`
	FollowingIDs map[string]bool `json:"followingIds"`
	BlockedIDs   map[string]bool `json:"blockedIds"`
}

func (s *RelationshipSnapshot) Follows(id uuid.UUID) bool {
	return s.FollowingIDs[id.String()]
}

func (s *RelationshipSnapshot) IsBlocked(id uuid.UUID) bool {
	return s.BlockedIDs[id.String()]
}

// ViewerContext carries the per-request viewer state needed to decorate a
// post. It is assembled fresh on every request and never persisted.
type ViewerContext struct {
	ViewerID     uuid.UUID
	SavedPostIDs map[string]bool
	FollowingIDs map[string]bool
	BlockedIDs   map[string]bool
}

// CommentView is the projected form of the most recent comment on a post.
type CommentView struct {
	ID         uuid.UUID `json:"id"`
	AuthorID   uuid.UUID `json:"authorId"`
	Text       string    `json:"text"`
	LikesCount int       `json:"likesCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// DecoratedPost is the viewer-specific projection of a raw post: media split
// into images and videos, like/save state resolved for the viewer, only the
// latest comment exposed. It must never be written into the feed page cache.
type DecoratedPost struct {
	ID              uuid.UUID    `json:"id"`
	AuthorID        uuid.UUID    `json:"authorId"`
	AuthorUsername  string       `json:"authorUsername"`
	Caption         string       `json:"caption"`
	Hashtags        []string     `json:"hashtags"`
	Images          []MediaItem  `json:"images"`
	Videos          []MediaItem  `json:"videos"`
	LikesCount      int          `json:"likesCount"`
	CommentsCount   int          `json:"commentsCount"`
	SharesCount     int          `json:"sharesCount"`
	ViewsCount      int          `json:"viewsCount"`
	EngagementScore float64      `json:"engagementScore"`
	IsLiked         bool         `json:"isLiked"`
	IsSaved         bool         `json:"isSaved"`
	LastComment     *CommentView `json:"lastComment"`
	Location        Location     `json:"location"`
	PublishedAt     time.Time    `json:"publishedAt"`
}

// Pagination flags are computed from an authoritative candidate count, not
// from the length of the visibility-filtered page.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalPosts  int  `json:"totalPosts"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

// FeedPage is the response envelope for all feed variants.
type FeedPage struct {
	Posts      []DecoratedPost `json:"posts"`
	Pagination Pagination      `json:"pagination"`
}
