package models

import (
	"time"

	"github.com/google/uuid"
)

// PostStatus is the lifecycle state of a post. Only published posts are
// eligible for ranking; deletion is a status transition, never a row removal.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
	PostStatusArchived  PostStatus = "archived"
	PostStatusDeleted   PostStatus = "deleted"
)

// PostVisibility controls who may see a post on top of the author's own
// account privacy.
type PostVisibility string

const (
	VisibilityPublic    PostVisibility = "public"
	VisibilityFollowers PostVisibility = "followers"
)

// CommentVisibility controls who may comment on a post.
type CommentVisibility string

const (
	CommentsEveryone  CommentVisibility = "everyone"
	CommentsFollowers CommentVisibility = "followers"
	CommentsNone      CommentVisibility = "none"
)

// MediaItem is a single attachment in a post's ordered media list. The raw
// form keeps the list flat and undifferentiated; splitting into image/video
// collections happens only at projection time.
type MediaItem struct {
	Type            string  `json:"type,omitempty"`
	URL             string  `json:"url"`
	MimeType        string  `json:"mimeType,omitempty"`
	ThumbnailURL    string  `json:"thumbnailUrl,omitempty"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
}

// Comment is an embedded comment on a post.
type Comment struct {
	ID        uuid.UUID            `json:"id"`
	AuthorID  uuid.UUID            `json:"authorId"`
	Text      string               `json:"text"`
	Likes     map[string]time.Time `json:"likes,omitempty"` // userID -> liked at
	CreatedAt time.Time            `json:"createdAt"`
	EditedAt  *time.Time           `json:"editedAt,omitempty"`
}

// Location is the optional place a post was made from.
type Location struct {
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Post is the canonical raw post shape. This is the only form that may be
// stored in the feed page cache; viewer-specific decoration lives on
// DecoratedPost and is never persisted.
type Post struct {
	ID                uuid.UUID            `json:"id"`
	AuthorID          uuid.UUID            `json:"authorId"`
	AuthorUsername    string               `json:"authorUsername"`
	Caption           string               `json:"caption"`
	Hashtags          []string             `json:"hashtags,omitempty"`
	Status            PostStatus           `json:"status"`
	Visibility        PostVisibility       `json:"visibility"`
	CommentVisibility CommentVisibility    `json:"commentVisibility"`
	Media             []MediaItem          `json:"media"`
	Likes             map[string]time.Time `json:"likes,omitempty"` // userID -> liked at
	Comments          []Comment            `json:"comments,omitempty"`
	LikesCount        int                  `json:"likesCount"`
	CommentsCount     int                  `json:"commentsCount"`
	SharesCount       int                  `json:"sharesCount"`
	ViewsCount        int                  `json:"viewsCount"`
	EngagementScore   float64              `json:"engagementScore"`
	// EngagementScoreUpdatedAt moves together with the counters above; the
	// two are recomputed in one write and must not diverge.
	EngagementScoreUpdatedAt time.Time `json:"engagementScoreUpdatedAt"`
	Location                 *Location `json:"location,omitempty"`
	PublishedAt              time.Time `json:"publishedAt"`
	CreatedAt                time.Time `json:"createdAt"`
	UpdatedAt                time.Time `json:"updatedAt"`
}

// IsLikedBy reports whether the given user is in the post's like set.
func (p *Post) IsLikedBy(userID uuid.UUID) bool {
	_, ok := p.Likes[userID.String()]
	return ok
}
