package feed

import (
	"strings"

	"ripple-feed/internal/models"
)

// Media type classification for the image/video split. The chain is
// deterministic: explicit type field, then MIME prefix, then URL extension,
// then image as the documented lossy fallback — an unclassifiable item is
// kept as an image, never dropped.
const (
	mediaImage = "image"
	mediaVideo = "video"
)

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".webm": true,
	".avi":  true,
	".mkv":  true,
	".m4v":  true,
}

func classifyMedia(item models.MediaItem) string {
	switch strings.ToLower(item.Type) {
	case mediaVideo:
		return mediaVideo
	case mediaImage:
		return mediaImage
	}

	mime := strings.ToLower(item.MimeType)
	if strings.HasPrefix(mime, "video/") {
		return mediaVideo
	}
	if strings.HasPrefix(mime, "image/") {
		return mediaImage
	}

	url := strings.ToLower(item.URL)
	if idx := strings.LastIndex(url, "."); idx >= 0 {
		if videoExtensions[url[idx:]] {
			return mediaVideo
		}
	}
	return mediaImage
}

// lastComment picks the valid comment with the most recent creation time.
// Valid means a well-formed timestamp; comments with a zero CreatedAt are
// skipped. Returns nil when no valid comment exists.
func lastComment(comments []models.Comment) *models.CommentView {
	var latest *models.Comment
	for i := range comments {
		c := &comments[i]
		if c.CreatedAt.IsZero() {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil
	}
	return &models.CommentView{
		ID:         latest.ID,
		AuthorID:   latest.AuthorID,
		Text:       latest.Text,
		LikesCount: len(latest.Likes),
		CreatedAt:  latest.CreatedAt,
	}
}

// normalizeLocation returns a fixed-shape location with explicit empty
// defaults for every field, so API consumers never need null checks.
func normalizeLocation(loc *models.Location) models.Location {
	if loc == nil {
		return models.Location{}
	}
	return *loc
}

// Project decorates a raw post for one viewer. Pure and request-scoped: the
// result is never persisted or cached.
func Project(post *models.Post, vc *models.ViewerContext) models.DecoratedPost {
	images := make([]models.MediaItem, 0, len(post.Media))
	videos := make([]models.MediaItem, 0)
	for _, item := range post.Media {
		if classifyMedia(item) == mediaVideo {
			videos = append(videos, item)
		} else {
			images = append(images, item)
		}
	}

	hashtags := post.Hashtags
	if hashtags == nil {
		hashtags = []string{}
	}

	return models.DecoratedPost{
		ID:              post.ID,
		AuthorID:        post.AuthorID,
		AuthorUsername:  post.AuthorUsername,
		Caption:         post.Caption,
		Hashtags:        hashtags,
		Images:          images,
		Videos:          videos,
		LikesCount:      post.LikesCount,
		CommentsCount:   post.CommentsCount,
		SharesCount:     post.SharesCount,
		ViewsCount:      post.ViewsCount,
		EngagementScore: post.EngagementScore,
		IsLiked:         post.IsLikedBy(vc.ViewerID),
		IsSaved:         vc.SavedPostIDs[post.ID.String()],
		LastComment:     lastComment(post.Comments),
		Location:        normalizeLocation(post.Location),
		PublishedAt:     post.PublishedAt,
	}
}
