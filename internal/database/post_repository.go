// internal/database/post_repository.go
package database

import (
	"context"
	"fmt"
	"time"

	"ripple-feed/internal/models"
	"ripple-feed/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MediaItemDocument represents one media attachment inside a post document.
type MediaItemDocument struct {
	Type            string  `bson:"type,omitempty"`
	URL             string  `bson:"url"`
	MimeType        string  `bson:"mimetype,omitempty"`
	ThumbnailURL    string  `bson:"thumbnailurl,omitempty"`
	DurationSeconds float64 `bson:"durationseconds,omitempty"`
	Width           int     `bson:"width,omitempty"`
	Height          int     `bson:"height,omitempty"`
}

// CommentDocument represents one embedded comment inside a post document.
type CommentDocument struct {
	ID        string               `bson:"_id"`
	AuthorID  string               `bson:"authorid"`
	Text      string               `bson:"text"`
	Likes     map[string]time.Time `bson:"likes,omitempty"`
	CreatedAt time.Time            `bson:"createdat"`
	EditedAt  *time.Time           `bson:"editedat,omitempty"`
}

// LocationDocument represents the optional place sub-record.
type LocationDocument struct {
	Name      string  `bson:"name,omitempty"`
	Address   string  `bson:"address,omitempty"`
	City      string  `bson:"city,omitempty"`
	Country   string  `bson:"country,omitempty"`
	Latitude  float64 `bson:"latitude,omitempty"`
	Longitude float64 `bson:"longitude,omitempty"`
}

// PostDocument represents the MongoDB schema for a post.
type PostDocument struct {
	ID                       string               `bson:"_id"`
	AuthorID                 string               `bson:"authorid"`
	AuthorUsername           string               `bson:"authorusername"`
	Caption                  string               `bson:"caption"`
	Hashtags                 []string             `bson:"hashtags,omitempty"`
	Status                   string               `bson:"status"`
	Visibility               string               `bson:"visibility"`
	CommentVisibility        string               `bson:"commentvisibility"`
	Media                    []MediaItemDocument  `bson:"media"`
	Likes                    map[string]time.Time `bson:"likes,omitempty"`
	Comments                 []CommentDocument    `bson:"comments,omitempty"`
	LikesCount               int                  `bson:"likescount"`
	CommentsCount            int                  `bson:"commentscount"`
	SharesCount              int                  `bson:"sharescount"`
	ViewsCount               int                  `bson:"viewscount"`
	EngagementScore          float64              `bson:"engagementscore"`
	EngagementScoreUpdatedAt time.Time            `bson:"engagementscoreupdatedat"`
	Location                 *LocationDocument    `bson:"location,omitempty"`
	PublishedAt              time.Time            `bson:"publishedat"`
	CreatedAt                time.Time            `bson:"createdat"`
	UpdatedAt                time.Time            `bson:"updatedat"`
}

// ModelToDocument converts a Post model to a MongoDB document.
func (m *MongoDB) ModelToDocument(post *models.Post) *PostDocument {
	doc := &PostDocument{
		ID:                       post.ID.String(),
		AuthorID:                 post.AuthorID.String(),
		AuthorUsername:           post.AuthorUsername,
		Caption:                  post.Caption,
		Hashtags:                 post.Hashtags,
		Status:                   string(post.Status),
		Visibility:               string(post.Visibility),
		CommentVisibility:        string(post.CommentVisibility),
		Media:                    make([]MediaItemDocument, len(post.Media)),
		Likes:                    post.Likes,
		Comments:                 make([]CommentDocument, len(post.Comments)),
		LikesCount:               post.LikesCount,
		CommentsCount:            post.CommentsCount,
		SharesCount:              post.SharesCount,
		ViewsCount:               post.ViewsCount,
		EngagementScore:          post.EngagementScore,
		EngagementScoreUpdatedAt: post.EngagementScoreUpdatedAt,
		PublishedAt:              post.PublishedAt,
		CreatedAt:                post.CreatedAt,
		UpdatedAt:                post.UpdatedAt,
	}
	for i, item := range post.Media {
		doc.Media[i] = MediaItemDocument(item)
	}
	for i, c := range post.Comments {
		doc.Comments[i] = CommentDocument{
			ID:        c.ID.String(),
			AuthorID:  c.AuthorID.String(),
			Text:      c.Text,
			Likes:     c.Likes,
			CreatedAt: c.CreatedAt,
			EditedAt:  c.EditedAt,
		}
	}
	if post.Location != nil {
		loc := LocationDocument(*post.Location)
		doc.Location = &loc
	}
	return doc
}

// DocumentToModel converts a MongoDB document to a Post model.
func (m *MongoDB) DocumentToModel(doc *PostDocument) (*models.Post, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid post ID: %v", err)
	}

	authorID, err := uuid.Parse(doc.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("invalid author ID: %v", err)
	}

	post := &models.Post{
		ID:                       id,
		AuthorID:                 authorID,
		AuthorUsername:           doc.AuthorUsername,
		Caption:                  doc.Caption,
		Hashtags:                 doc.Hashtags,
		Status:                   models.PostStatus(doc.Status),
		Visibility:               models.PostVisibility(doc.Visibility),
		CommentVisibility:        models.CommentVisibility(doc.CommentVisibility),
		Media:                    make([]models.MediaItem, len(doc.Media)),
		Likes:                    doc.Likes,
		Comments:                 make([]models.Comment, len(doc.Comments)),
		LikesCount:               doc.LikesCount,
		CommentsCount:            doc.CommentsCount,
		SharesCount:              doc.SharesCount,
		ViewsCount:               doc.ViewsCount,
		EngagementScore:          doc.EngagementScore,
		EngagementScoreUpdatedAt: doc.EngagementScoreUpdatedAt,
		PublishedAt:              doc.PublishedAt,
		CreatedAt:                doc.CreatedAt,
		UpdatedAt:                doc.UpdatedAt,
	}
	for i, item := range doc.Media {
		post.Media[i] = models.MediaItem(item)
	}
	for i, c := range doc.Comments {
		commentID, err := uuid.Parse(c.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid comment ID: %v", err)
		}
		commentAuthorID, err := uuid.Parse(c.AuthorID)
		if err != nil {
			return nil, fmt.Errorf("invalid comment author ID: %v", err)
		}
		post.Comments[i] = models.Comment{
			ID:        commentID,
			AuthorID:  commentAuthorID,
			Text:      c.Text,
			Likes:     c.Likes,
			CreatedAt: c.CreatedAt,
			EditedAt:  c.EditedAt,
		}
	}
	if doc.Location != nil {
		loc := models.Location(*doc.Location)
		post.Location = &loc
	}
	return post, nil
}

// SavePost creates or updates a post in MongoDB.
func (m *MongoDB) SavePost(ctx context.Context, post *models.Post) error {
	doc := m.ModelToDocument(post)

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"_id": post.ID.String()}
	update := bson.M{"$set": doc}

	_, err := m.Posts.UpdateOne(ctx, filter, update, opts)
	return err
}

// GetPost retrieves a post by its ID.
func (m *MongoDB) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var doc PostDocument

	err := m.Posts.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewPostNotFoundError(id.String())
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query post by id", err)
	}

	return m.DocumentToModel(&doc)
}

func candidateFilter(q CandidateQuery) bson.M {
	filter := bson.M{"status": string(models.PostStatusPublished)}
	if len(q.AuthorIDs) > 0 {
		ids := make([]string, len(q.AuthorIDs))
		for i, id := range q.AuthorIDs {
			ids[i] = id.String()
		}
		filter["authorid"] = bson.M{"$in": ids}
	}
	if len(q.ExcludeAuthorIDs) > 0 {
		ids := make([]string, len(q.ExcludeAuthorIDs))
		for i, id := range q.ExcludeAuthorIDs {
			ids[i] = id.String()
		}
		if in, ok := filter["authorid"].(bson.M); ok {
			in["$nin"] = ids
		} else {
			filter["authorid"] = bson.M{"$nin": ids}
		}
	}
	if !q.PublishedSince.IsZero() {
		filter["publishedat"] = bson.M{"$gte": q.PublishedSince}
	}
	if q.Hashtag != "" {
		filter["hashtags"] = q.Hashtag
	}
	return filter
}

// FindCandidates retrieves the candidate posts for a feed query, ordered by
// engagement score then recency. The ordering includes the ID as a final
// tiebreak so repeated calls paginate identically within a cache window.
func (m *MongoDB) FindCandidates(ctx context.Context, q CandidateQuery) ([]models.Post, error) {
	opts := options.Find().
		SetSort(bson.D{
			{Key: "engagementscore", Value: -1},
			{Key: "publishedat", Value: -1},
			{Key: "_id", Value: 1},
		}).
		SetSkip(int64(q.Skip)).
		SetLimit(int64(q.Limit))

	cursor, err := m.Posts.Find(ctx, candidateFilter(q), opts)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query feed candidates", err)
	}
	defer cursor.Close(ctx)

	posts := make([]models.Post, 0, q.Limit)
	for cursor.Next(ctx) {
		var doc PostDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, utils.NewAppError(utils.ErrDatabase, "failed to decode post document", err)
		}
		post, err := m.DocumentToModel(&doc)
		if err != nil {
			return nil, utils.NewAppError(utils.ErrDatabase, "failed to convert post document", err)
		}
		posts = append(posts, *post)
	}
	if err := cursor.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "cursor iteration failed", err)
	}
	return posts, nil
}

// CountCandidates returns the authoritative total for a feed query,
// independent of pagination and of post-filter attrition.
func (m *MongoDB) CountCandidates(ctx context.Context, q CandidateQuery) (int64, error) {
	count, err := m.Posts.CountDocuments(ctx, candidateFilter(q))
	if err != nil {
		return 0, utils.NewAppError(utils.ErrDatabase, "failed to count feed candidates", err)
	}
	return count, nil
}

// UpdatePostStatus transitions the post's lifecycle status. Deletion is a
// soft transition; the document stays in place but leaves every candidate set.
func (m *MongoDB) UpdatePostStatus(ctx context.Context, postID uuid.UUID, status models.PostStatus) error {
	filter := bson.M{"_id": postID.String()}
	update := bson.M{"$set": bson.M{
		"status":    string(status),
		"updatedat": time.Now(),
	}}

	result, err := m.Posts.UpdateOne(ctx, filter, update)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to update post status", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewPostNotFoundError(postID.String())
	}
	return nil
}

// AddLike records a like in the post's like set.
func (m *MongoDB) AddLike(ctx context.Context, postID, userID uuid.UUID, at time.Time) error {
	filter := bson.M{"_id": postID.String()}
	update := bson.M{"$set": bson.M{
		"likes." + userID.String(): at,
		"updatedat":                time.Now(),
	}}

	result, err := m.Posts.UpdateOne(ctx, filter, update)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to record like", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewPostNotFoundError(postID.String())
	}
	return nil
}

// RemoveLike removes a like from the post's like set.
func (m *MongoDB) RemoveLike(ctx context.Context, postID, userID uuid.UUID) error {
	filter := bson.M{"_id": postID.String()}
	update := bson.M{
		"$unset": bson.M{"likes." + userID.String(): ""},
		"$set":   bson.M{"updatedat": time.Now()},
	}

	result, err := m.Posts.UpdateOne(ctx, filter, update)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to remove like", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewPostNotFoundError(postID.String())
	}
	return nil
}

// AddComment appends a comment to the post's comment list.
func (m *MongoDB) AddComment(ctx context.Context, postID uuid.UUID, comment models.Comment) error {
	doc := CommentDocument{
		ID:        comment.ID.String(),
		AuthorID:  comment.AuthorID.String(),
		Text:      comment.Text,
		Likes:     comment.Likes,
		CreatedAt: comment.CreatedAt,
		EditedAt:  comment.EditedAt,
	}

	filter := bson.M{"_id": postID.String()}
	update := bson.M{
		"$push": bson.M{"comments": doc},
		"$set":  bson.M{"updatedat": time.Now()},
	}

	result, err := m.Posts.UpdateOne(ctx, filter, update)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to add comment", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewPostNotFoundError(postID.String())
	}
	return nil
}

// DeleteComment removes a comment from the post's comment list.
func (m *MongoDB) DeleteComment(ctx context.Context, postID, commentID uuid.UUID) error {
	filter := bson.M{"_id": postID.String()}
	update := bson.M{
		"$pull": bson.M{"comments": bson.M{"_id": commentID.String()}},
		"$set":  bson.M{"updatedat": time.Now()},
	}

	result, err := m.Posts.UpdateOne(ctx, filter, update)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to delete comment", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewPostNotFoundError(postID.String())
	}
	return nil
}

// IncrementShares bumps the share counter.
func (m *MongoDB) IncrementShares(ctx context.Context, postID uuid.UUID) error {
	return m.incrementCounter(ctx, postID, "sharescount")
}

// IncrementViews bumps the view counter.
func (m *MongoDB) IncrementViews(ctx context.Context, postID uuid.UUID) error {
	return m.incrementCounter(ctx, postID, "viewscount")
}

func (m *MongoDB) incrementCounter(ctx context.Context, postID uuid.UUID, field string) error {
	filter := bson.M{"_id": postID.String()}
	update := bson.M{
		"$inc": bson.M{field: 1},
		"$set": bson.M{"updatedat": time.Now()},
	}

	result, err := m.Posts.UpdateOne(ctx, filter, update)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to increment "+field, err)
	}
	if result.MatchedCount == 0 {
		return utils.NewPostNotFoundError(postID.String())
	}
	return nil
}

// ApplyEngagement writes the recomputed counters and score in a single update
// so they can never diverge from each other.
func (m *MongoDB) ApplyEngagement(ctx context.Context, postID uuid.UUID, likes, comments, shares, views int, score float64, at time.Time) error {
	filter := bson.M{"_id": postID.String()}
	update := bson.M{"$set": bson.M{
		"likescount":               likes,
		"commentscount":            comments,
		"sharescount":              shares,
		"viewscount":               views,
		"engagementscore":          score,
		"engagementscoreupdatedat": at,
		"updatedat":                at,
	}}

	result, err := m.Posts.UpdateOne(ctx, filter, update)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to apply engagement update", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewPostNotFoundError(postID.String())
	}
	return nil
}
