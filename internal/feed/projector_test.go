package feed

import (
	"testing"
	"time"

	"ripple-feed/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyViewerContext(viewer uuid.UUID) *models.ViewerContext {
	return &models.ViewerContext{
		ViewerID:     viewer,
		SavedPostIDs: map[string]bool{},
		FollowingIDs: map[string]bool{},
		BlockedIDs:   map[string]bool{},
	}
}

func TestProjectMediaSplit(t *testing.T) {
	post := &models.Post{
		ID:       uuid.New(),
		AuthorID: uuid.New(),
		Media: []models.MediaItem{
			{Type: "video", URL: "a.mp4"},
			{MimeType: "image/jpeg", URL: "b"},
			{URL: "c.png"},
		},
	}

	out := Project(post, emptyViewerContext(uuid.New()))
	require.Len(t, out.Videos, 1)
	require.Len(t, out.Images, 2)
	assert.Equal(t, "a.mp4", out.Videos[0].URL)
	assert.Equal(t, "b", out.Images[0].URL)
	assert.Equal(t, "c.png", out.Images[1].URL)
}

func TestClassifyMedia(t *testing.T) {
	// Explicit type wins over everything else.
	assert.Equal(t, mediaVideo, classifyMedia(models.MediaItem{Type: "video", MimeType: "image/png", URL: "x.png"}))
	assert.Equal(t, mediaImage, classifyMedia(models.MediaItem{Type: "image", URL: "x.mp4"}))

	// Then MIME, then URL extension.
	assert.Equal(t, mediaVideo, classifyMedia(models.MediaItem{MimeType: "video/webm"}))
	assert.Equal(t, mediaVideo, classifyMedia(models.MediaItem{URL: "clip.MOV"}))
	assert.Equal(t, mediaImage, classifyMedia(models.MediaItem{URL: "pic.webp"}))

	// Unclassifiable items fall back to image rather than disappearing.
	assert.Equal(t, mediaImage, classifyMedia(models.MediaItem{URL: "mystery"}))
}

func TestProjectLastComment(t *testing.T) {
	now := time.Now()
	older := models.Comment{ID: uuid.New(), AuthorID: uuid.New(), Text: "older", CreatedAt: now.Add(-time.Hour)}
	newest := models.Comment{
		ID: uuid.New(), AuthorID: uuid.New(), Text: "newest", CreatedAt: now,
		Likes: map[string]time.Time{uuid.New().String(): now},
	}
	invalid := models.Comment{ID: uuid.New(), AuthorID: uuid.New(), Text: "no timestamp"}

	post := &models.Post{
		ID:       uuid.New(),
		AuthorID: uuid.New(),
		Comments: []models.Comment{older, invalid, newest},
	}

	out := Project(post, emptyViewerContext(uuid.New()))
	require.NotNil(t, out.LastComment)
	assert.Equal(t, newest.ID, out.LastComment.ID)
	assert.Equal(t, "newest", out.LastComment.Text)
	assert.Equal(t, 1, out.LastComment.LikesCount)
}

func TestProjectLastCommentOnlyInvalid(t *testing.T) {
	post := &models.Post{
		ID:       uuid.New(),
		AuthorID: uuid.New(),
		Comments: []models.Comment{{ID: uuid.New(), Text: "no timestamp"}},
	}
	out := Project(post, emptyViewerContext(uuid.New()))
	assert.Nil(t, out.LastComment)
}

func TestProjectViewerState(t *testing.T) {
	viewer := uuid.New()
	post := &models.Post{
		ID:       uuid.New(),
		AuthorID: uuid.New(),
		Likes:    map[string]time.Time{viewer.String(): time.Now()},
	}

	vc := emptyViewerContext(viewer)
	vc.SavedPostIDs[post.ID.String()] = true

	out := Project(post, vc)
	assert.True(t, out.IsLiked)
	assert.True(t, out.IsSaved)

	// A different viewer sees the same raw post undecorated for them.
	other := Project(post, emptyViewerContext(uuid.New()))
	assert.False(t, other.IsLiked)
	assert.False(t, other.IsSaved)
}

func TestProjectLocationDefaults(t *testing.T) {
	post := &models.Post{ID: uuid.New(), AuthorID: uuid.New()}
	out := Project(post, emptyViewerContext(uuid.New()))
	assert.Equal(t, models.Location{}, out.Location)

	post.Location = &models.Location{Name: "Cafe", City: "Oslo"}
	out = Project(post, emptyViewerContext(uuid.New()))
	assert.Equal(t, "Cafe", out.Location.Name)
	assert.Equal(t, "Oslo", out.Location.City)
}

func TestProjectEmptyCollections(t *testing.T) {
	post := &models.Post{ID: uuid.New(), AuthorID: uuid.New()}
	out := Project(post, emptyViewerContext(uuid.New()))

	// Collections serialize as [] rather than null.
	assert.NotNil(t, out.Images)
	assert.NotNil(t, out.Videos)
	assert.NotNil(t, out.Hashtags)
}
