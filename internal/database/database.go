// internal/database/database.go
package database

import (
	"context"
	"fmt"
	"time"

	"ripple-feed/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CandidateQuery describes a candidate-selection predicate for ranking.
// All restrictions are ANDed on top of status=published; a zero field means
// no restriction of that kind.
type CandidateQuery struct {
	AuthorIDs        []uuid.UUID // restrict to posts by these authors
	PublishedSince   time.Time   // restrict to posts published after this instant
	Hashtag          string      // restrict to posts carrying this tag
	ExcludeAuthorIDs []uuid.UUID // drop posts by these authors before ranking
	Skip             int
	Limit            int
}

// Adapter defines the data-store operations the feed core consumes. It is an
// interface so tests can substitute an in-memory fake.
type Adapter interface {
	// Connection
	Close(ctx context.Context) error

	// User methods
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUsers(ctx context.Context, ids []uuid.UUID) (map[string]*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	UpdateFollowEdge(ctx context.Context, followerID, followeeID uuid.UUID, follow bool) error
	UpdateBlockEdge(ctx context.Context, blockerID, blockedID uuid.UUID, block bool) error
	UpdateSavedPosts(ctx context.Context, userID, postID uuid.UUID, save bool) error

	// Post methods
	SavePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error)
	FindCandidates(ctx context.Context, q CandidateQuery) ([]models.Post, error)
	CountCandidates(ctx context.Context, q CandidateQuery) (int64, error)
	UpdatePostStatus(ctx context.Context, postID uuid.UUID, status models.PostStatus) error

	// Engagement methods
	AddLike(ctx context.Context, postID, userID uuid.UUID, at time.Time) error
	RemoveLike(ctx context.Context, postID, userID uuid.UUID) error
	AddComment(ctx context.Context, postID uuid.UUID, comment models.Comment) error
	DeleteComment(ctx context.Context, postID, commentID uuid.UUID) error
	IncrementShares(ctx context.Context, postID uuid.UUID) error
	IncrementViews(ctx context.Context, postID uuid.UUID) error
	ApplyEngagement(ctx context.Context, postID uuid.UUID, likes, comments, shares, views int, score float64, at time.Time) error
}

type MongoDB struct {
	Client *mongo.Client
	Users  *mongo.Collection
	Posts  *mongo.Collection
}

func NewMongoDB(uri, dbName string) (*MongoDB, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI).
		SetTimeout(10 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Ping the database to verify connection
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	db := client.Database(dbName)
	return &MongoDB{
		Client: client,
		Users:  db.Collection("users"),
		Posts:  db.Collection("posts"),
	}, nil
}

// EnsureIndexes creates the indexes candidate selection depends on.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	_, err := m.Posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "engagementscore", Value: -1},
			{Key: "publishedat", Value: -1},
		}},
		{Keys: bson.D{{Key: "authorid", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "hashtags", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create post indexes: %v", err)
	}
	return nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
