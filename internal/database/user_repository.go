// internal/database/user_repository.go
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

// UserDocument represents the MongoDB schema for a user
type UserDocument struct {
	ID         string    `bson:"_id"`        // MongoDB primary key
	Username   string    `bson:"username"`   // Username
	IsPrivate  bool      `bson:"isprivate"`  // Private-account flag
	Following  []string  `bson:"following"`  // Accounts this user follows
	Followers  []string  `bson:"followers"`  // Accounts following this user
	Blocked    []string  `bson:"blocked"`    // Accounts this user blocked
	BlockedBy  []string  `bson:"blockedby"`  // Accounts that blocked this user
	SavedPosts []string  `bson:"savedposts"` // Saved post IDs
	CreatedAt  time.Time `bson:"createdat"`  // Account creation timestamp
	UpdatedAt  time.Time `bson:"updatedat"`  // Last update timestamp
}

func userToDocument(user *models.User) *UserDocument {
	return &UserDocument{
		ID:         user.ID.String(),
		Username:   user.Username,
		IsPrivate:  user.IsPrivate,
		Following:  uuidsToStrings(user.Following),
		Followers:  uuidsToStrings(user.Followers),
		Blocked:    uuidsToStrings(user.Blocked),
		BlockedBy:  uuidsToStrings(user.BlockedBy),
		SavedPosts: uuidsToStrings(user.SavedPosts),
		CreatedAt:  user.CreatedAt,
		UpdatedAt:  user.UpdatedAt,
	}
}

func documentToUser(doc *UserDocument) (*models.User, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID in database: %v", err)
	}

	following, err := stringsToUUIDs(doc.Following)
	if err != nil {
		return nil, fmt.Errorf("invalid following ID in database: %v", err)
	}
	followers, err := stringsToUUIDs(doc.Followers)
	if err != nil {
		return nil, fmt.Errorf("invalid follower ID in database: %v", err)
	}
	blocked, err := stringsToUUIDs(doc.Blocked)
	if err != nil {
		return nil, fmt.Errorf("invalid blocked ID in database: %v", err)
	}
	blockedBy, err := stringsToUUIDs(doc.BlockedBy)
	if err != nil {
		return nil, fmt.Errorf("invalid blocked-by ID in database: %v", err)
	}
	savedPosts, err := stringsToUUIDs(doc.SavedPosts)
	if err != nil {
		return nil, fmt.Errorf("invalid saved post ID in database: %v", err)
	}

	return &models.User{
		ID:         id,
		Username:   doc.Username,
		IsPrivate:  doc.IsPrivate,
		Following:  following,
		Followers:  followers,
		Blocked:    blocked,
		BlockedBy:  blockedBy,
		SavedPosts: savedPosts,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}, nil
}

func uuidsToStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func stringsToUUIDs(ids []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, len(ids))
	for i, s := range ids {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

// SaveUser creates or updates a user in MongoDB
func (m *MongoDB) SaveUser(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.UpdatedAt = now
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"_id": user.ID.String()}
	update := bson.M{"$set": userToDocument(user)}

	_, err := m.Users.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to save user", err)
	}
	return nil
}

// GetUser retrieves a user from MongoDB by their ID. This is the
// authoritative read that relationship snapshots are rebuilt from.
func (m *MongoDB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var doc UserDocument

	err := m.Users.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewUserNotFoundError(id.String())
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query user by id", err)
	}

	return documentToUser(&doc)
}

// GetUsers retrieves several users at once, keyed by ID string. Missing IDs
// are simply absent from the result.
func (m *MongoDB) GetUsers(ctx context.Context, ids []uuid.UUID) (map[string]*models.User, error) {
	users := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	cursor, err := m.Users.Find(ctx, bson.M{"_id": bson.M{"$in": uuidsToStrings(ids)}})
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query users", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc UserDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, utils.NewAppError(utils.ErrDatabase, "failed to decode user document", err)
		}
		user, err := documentToUser(&doc)
		if err != nil {
			return nil, utils.NewAppError(utils.ErrDatabase, "failed to convert user document", err)
		}
		users[doc.ID] = user
	}
	if err := cursor.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "cursor iteration failed", err)
	}
	return users, nil
}

// UpdateFollowEdge adds or removes a follow edge, maintaining both sides of
// the relationship. Callers must invalidate the follower's relationship
// snapshot afterwards.
func (m *MongoDB) UpdateFollowEdge(ctx context.Context, followerID, followeeID uuid.UUID, follow bool) error {
	op := "$addToSet"
	if !follow {
		op = "$pull"
	}
	now := time.Now()

	result, err := m.Users.UpdateOne(ctx,
		bson.M{"_id": followerID.String()},
		bson.M{op: bson.M{"following": followeeID.String()}, "$set": bson.M{"updatedat": now}},
	)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to update following set", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewUserNotFoundError(followerID.String())
	}

	result, err = m.Users.UpdateOne(ctx,
		bson.M{"_id": followeeID.String()},
		bson.M{op: bson.M{"followers": followerID.String()}, "$set": bson.M{"updatedat": now}},
	)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to update followers set", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewUserNotFoundError(followeeID.String())
	}
	return nil
}

// UpdateBlockEdge adds or removes a block edge on both user records. Blocking
// also severs any follow edges between the two accounts.
func (m *MongoDB) UpdateBlockEdge(ctx context.Context, blockerID, blockedID uuid.UUID, block bool) error {
	op := "$addToSet"
	if !block {
		op = "$pull"
	}
	now := time.Now()

	blockerUpdate := bson.M{
		op:     bson.M{"blocked": blockedID.String()},
		"$set": bson.M{"updatedat": now},
	}
	blockedUpdate := bson.M{
		op:     bson.M{"blockedby": blockerID.String()},
		"$set": bson.M{"updatedat": now},
	}
	if block {
		blockerUpdate["$pull"] = bson.M{
			"following": blockedID.String(),
			"followers": blockedID.String(),
		}
		blockedUpdate["$pull"] = bson.M{
			"following": blockerID.String(),
			"followers": blockerID.String(),
		}
	}

	result, err := m.Users.UpdateOne(ctx, bson.M{"_id": blockerID.String()}, blockerUpdate)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to update blocked set", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewUserNotFoundError(blockerID.String())
	}

	result, err = m.Users.UpdateOne(ctx, bson.M{"_id": blockedID.String()}, blockedUpdate)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to update blocked-by set", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewUserNotFoundError(blockedID.String())
	}
	return nil
}

// UpdateSavedPosts adds or removes a post from the user's saved set.
func (m *MongoDB) UpdateSavedPosts(ctx context.Context, userID, postID uuid.UUID, save bool) error {
	op := "$addToSet"
	if !save {
		op = "$pull"
	}

	result, err := m.Users.UpdateOne(ctx,
		bson.M{"_id": userID.String()},
		bson.M{op: bson.M{"savedposts": postID.String()}, "$set": bson.M{"updatedat": time.Now()}},
	)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to update saved posts", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewUserNotFoundError(userID.String())
	}
	return nil
}
