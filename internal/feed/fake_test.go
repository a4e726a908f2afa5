package feed

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"ripple-feed/internal/database"
	"ripple-feed/internal/models"
	"ripple-feed/internal/utils"

	"github.com/google/uuid"
)

// fakeAdapter is an in-memory database.Adapter shared by the feed tests.
type fakeAdapter struct {
	mu    sync.Mutex
	users map[string]*models.User
	posts map[string]*models.Post

	// failure injection
	getPostErr         error
	applyEngagementErr error
	findErr            error
}

var _ database.Adapter = (*fakeAdapter)(nil)

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		users: make(map[string]*models.User),
		posts: make(map[string]*models.Post),
	}
}

func (f *fakeAdapter) Close(ctx context.Context) error { return nil }

func (f *fakeAdapter) addUser(u *models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID.String()] = u
}

func (f *fakeAdapter) addPost(p *models.Post) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts[p.ID.String()] = p
}

func copyUser(u *models.User) *models.User {
	cp := *u
	cp.Following = append([]uuid.UUID(nil), u.Following...)
	cp.Followers = append([]uuid.UUID(nil), u.Followers...)
	cp.Blocked = append([]uuid.UUID(nil), u.Blocked...)
	cp.BlockedBy = append([]uuid.UUID(nil), u.BlockedBy...)
	cp.SavedPosts = append([]uuid.UUID(nil), u.SavedPosts...)
	return &cp
}

func copyPost(p *models.Post) *models.Post {
	cp := *p
	cp.Hashtags = append([]string(nil), p.Hashtags...)
	cp.Media = append([]models.MediaItem(nil), p.Media...)
	cp.Comments = append([]models.Comment(nil), p.Comments...)
	cp.Likes = make(map[string]time.Time, len(p.Likes))
	for k, v := range p.Likes {
		cp.Likes[k] = v
	}
	return &cp
}

func (f *fakeAdapter) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id.String()]
	if !ok {
		return nil, utils.NewUserNotFoundError(id.String())
	}
	return copyUser(u), nil
}

func (f *fakeAdapter) GetUsers(ctx context.Context, ids []uuid.UUID) (map[string]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]*models.User, len(ids))
	for _, id := range ids {
		if u, ok := f.users[id.String()]; ok {
			out[id.String()] = copyUser(u)
		}
	}
	return out, nil
}

func (f *fakeAdapter) SaveUser(ctx context.Context, user *models.User) error {
	f.addUser(copyUser(user))
	return nil
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (f *fakeAdapter) UpdateFollowEdge(ctx context.Context, followerID, followeeID uuid.UUID, follow bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	follower, ok := f.users[followerID.String()]
	if !ok {
		return utils.NewUserNotFoundError(followerID.String())
	}
	followee, ok := f.users[followeeID.String()]
	if !ok {
		return utils.NewUserNotFoundError(followeeID.String())
	}
	if follow {
		if !containsID(follower.Following, followeeID) {
			follower.Following = append(follower.Following, followeeID)
		}
		if !containsID(followee.Followers, followerID) {
			followee.Followers = append(followee.Followers, followerID)
		}
	} else {
		follower.Following = removeID(follower.Following, followeeID)
		followee.Followers = removeID(followee.Followers, followerID)
	}
	return nil
}

func (f *fakeAdapter) UpdateBlockEdge(ctx context.Context, blockerID, blockedID uuid.UUID, block bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	blocker, ok := f.users[blockerID.String()]
	if !ok {
		return utils.NewUserNotFoundError(blockerID.String())
	}
	blocked, ok := f.users[blockedID.String()]
	if !ok {
		return utils.NewUserNotFoundError(blockedID.String())
	}
	if block {
		if !containsID(blocker.Blocked, blockedID) {
			blocker.Blocked = append(blocker.Blocked, blockedID)
		}
		if !containsID(blocked.BlockedBy, blockerID) {
			blocked.BlockedBy = append(blocked.BlockedBy, blockerID)
		}
		blocker.Following = removeID(blocker.Following, blockedID)
		blocker.Followers = removeID(blocker.Followers, blockedID)
		blocked.Following = removeID(blocked.Following, blockerID)
		blocked.Followers = removeID(blocked.Followers, blockerID)
	} else {
		blocker.Blocked = removeID(blocker.Blocked, blockedID)
		blocked.BlockedBy = removeID(blocked.BlockedBy, blockerID)
	}
	return nil
}

func (f *fakeAdapter) UpdateSavedPosts(ctx context.Context, userID, postID uuid.UUID, save bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID.String()]
	if !ok {
		return utils.NewUserNotFoundError(userID.String())
	}
	if save {
		if !containsID(user.SavedPosts, postID) {
			user.SavedPosts = append(user.SavedPosts, postID)
		}
	} else {
		user.SavedPosts = removeID(user.SavedPosts, postID)
	}
	return nil
}

func (f *fakeAdapter) SavePost(ctx context.Context, post *models.Post) error {
	f.addPost(copyPost(post))
	return nil
}

func (f *fakeAdapter) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getPostErr != nil {
		return nil, f.getPostErr
	}
	p, ok := f.posts[id.String()]
	if !ok {
		return nil, utils.NewPostNotFoundError(id.String())
	}
	return copyPost(p), nil
}

func (f *fakeAdapter) matches(p *models.Post, q database.CandidateQuery) bool {
	if p.Status != models.PostStatusPublished {
		return false
	}
	if len(q.AuthorIDs) > 0 && !containsID(q.AuthorIDs, p.AuthorID) {
		return false
	}
	if containsID(q.ExcludeAuthorIDs, p.AuthorID) {
		return false
	}
	if !q.PublishedSince.IsZero() && p.PublishedAt.Before(q.PublishedSince) {
		return false
	}
	if q.Hashtag != "" {
		found := false
		for _, tag := range p.Hashtags {
			if tag == q.Hashtag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (f *fakeAdapter) FindCandidates(ctx context.Context, q database.CandidateQuery) ([]models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}

	var out []models.Post
	for _, p := range f.posts {
		if f.matches(p, q) {
			out = append(out, *copyPost(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EngagementScore != out[j].EngagementScore {
			return out[i].EngagementScore > out[j].EngagementScore
		}
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})

	if q.Skip >= len(out) {
		return []models.Post{}, nil
	}
	out = out[q.Skip:]
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *fakeAdapter) CountCandidates(ctx context.Context, q database.CandidateQuery) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, p := range f.posts {
		if f.matches(p, q) {
			n++
		}
	}
	return n, nil
}

func (f *fakeAdapter) UpdatePostStatus(ctx context.Context, postID uuid.UUID, status models.PostStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID.String()]
	if !ok {
		return utils.NewPostNotFoundError(postID.String())
	}
	p.Status = status
	return nil
}

func (f *fakeAdapter) AddLike(ctx context.Context, postID, userID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID.String()]
	if !ok {
		return utils.NewPostNotFoundError(postID.String())
	}
	if p.Likes == nil {
		p.Likes = make(map[string]time.Time)
	}
	p.Likes[userID.String()] = at
	return nil
}

func (f *fakeAdapter) RemoveLike(ctx context.Context, postID, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID.String()]
	if !ok {
		return utils.NewPostNotFoundError(postID.String())
	}
	delete(p.Likes, userID.String())
	return nil
}

func (f *fakeAdapter) AddComment(ctx context.Context, postID uuid.UUID, comment models.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID.String()]
	if !ok {
		return utils.NewPostNotFoundError(postID.String())
	}
	p.Comments = append(p.Comments, comment)
	return nil
}

func (f *fakeAdapter) DeleteComment(ctx context.Context, postID, commentID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID.String()]
	if !ok {
		return utils.NewPostNotFoundError(postID.String())
	}
	for i := range p.Comments {
		if p.Comments[i].ID == commentID {
			p.Comments = append(p.Comments[:i], p.Comments[i+1:]...)
			return nil
		}
	}
	return errors.New("comment not found")
}

func (f *fakeAdapter) IncrementShares(ctx context.Context, postID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID.String()]
	if !ok {
		return utils.NewPostNotFoundError(postID.String())
	}
	p.SharesCount++
	return nil
}

func (f *fakeAdapter) IncrementViews(ctx context.Context, postID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID.String()]
	if !ok {
		return utils.NewPostNotFoundError(postID.String())
	}
	p.ViewsCount++
	return nil
}

func (f *fakeAdapter) ApplyEngagement(ctx context.Context, postID uuid.UUID, likes, comments, shares, views int, score float64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyEngagementErr != nil {
		return f.applyEngagementErr
	}
	p, ok := f.posts[postID.String()]
	if !ok {
		return utils.NewPostNotFoundError(postID.String())
	}
	p.LikesCount = likes
	p.CommentsCount = comments
	p.SharesCount = shares
	p.ViewsCount = views
	p.EngagementScore = score
	p.EngagementScoreUpdatedAt = at
	p.UpdatedAt = at
	return nil
}
