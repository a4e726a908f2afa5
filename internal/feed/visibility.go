package feed

import (
	"ripple-feed/internal/models"

	"github.com/google/uuid"
)

// Visible applies the privacy/relationship rules to one post. Evaluated in
// order, first match wins:
//  1. the viewer is the author
//  2. the author's account is public, subject to the post's own visibility
//  3. the author's account is private: followers only
//
// A nil author means the account could not be resolved; the post is hidden
// rather than leaked.
func Visible(viewerID uuid.UUID, snap *models.RelationshipSnapshot, author *models.User, post *models.Post) bool {
	if post.Status != models.PostStatusPublished {
		return false
	}
	// Re-checked here even though the ranker excludes blocked authors: the
	// cached page may predate a block.
	if snap.IsBlocked(post.AuthorID) {
		return false
	}

	if post.AuthorID == viewerID {
		return true
	}
	if author == nil {
		return false
	}

	if !author.IsPrivate {
		if post.Visibility == models.VisibilityFollowers {
			return snap.Follows(post.AuthorID)
		}
		return true
	}
	return snap.Follows(post.AuthorID)
}

// FilterVisible runs the visibility pass over a ranked page. It executes on
// every request — cached or not — and is never itself cached, so a privacy
// change takes effect on the very next read even while the ranked page is
// still warm.
func FilterVisible(viewerID uuid.UUID, snap *models.RelationshipSnapshot, authors map[string]*models.User, posts []models.Post) []models.Post {
	visible := make([]models.Post, 0, len(posts))
	for i := range posts {
		author := authors[posts[i].AuthorID.String()]
		if Visible(viewerID, snap, author, &posts[i]) {
			visible = append(visible, posts[i])
		}
	}
	return visible
}
