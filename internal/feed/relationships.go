package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"ripple-feed/internal/cache"
	"ripple-feed/internal/database"
	"ripple-feed/internal/models"

	"github.com/google/uuid"
)

const relationshipKeyPrefix = "rel:"

// SnapshotCache caches a viewer's follow/block sets. On a miss the snapshot
// is rebuilt from the authoritative user record; a cache store failure
// degrades to that same rebuild. Every follow/block mutation anywhere in the
// system must call Invalidate for the affected viewers — a missed call is a
// correctness bug, because a stale snapshot could leak visibility.
type SnapshotCache struct {
	db       database.Adapter
	store    cache.Store
	ttl      time.Duration
	rebuilds func() // metrics hook, may be nil
}

func NewSnapshotCache(db database.Adapter, store cache.Store, ttl time.Duration, onRebuild func()) *SnapshotCache {
	return &SnapshotCache{db: db, store: store, ttl: ttl, rebuilds: onRebuild}
}

func relationshipKey(viewerID uuid.UUID) string {
	return relationshipKeyPrefix + viewerID.String()
}

// Snapshot returns the viewer's relationship snapshot, rebuilding it on miss.
func (c *SnapshotCache) Snapshot(ctx context.Context, viewerID uuid.UUID) (*models.RelationshipSnapshot, error) {
	key := relationshipKey(viewerID)

	data, hit, err := c.store.Get(ctx, key)
	if err != nil {
		slog.Warn("relationship cache read failed, rebuilding", "viewer", viewerID, "error", err)
	} else if hit {
		var snap models.RelationshipSnapshot
		if err := json.Unmarshal(data, &snap); err == nil && snap.ViewerID == viewerID {
			return &snap, nil
		}
		// Undecodable entry: drop it and rebuild.
		_ = c.store.Delete(ctx, key)
	}

	snap, err := c.rebuild(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(snap); err == nil {
		if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
			slog.Warn("relationship cache write failed", "viewer", viewerID, "error", err)
		}
	}
	return snap, nil
}

// Invalidate drops the viewer's cached snapshot. Called by follow/block
// mutations before their response is returned.
func (c *SnapshotCache) Invalidate(ctx context.Context, viewerID uuid.UUID) error {
	return c.store.Delete(ctx, relationshipKey(viewerID))
}

func (c *SnapshotCache) rebuild(ctx context.Context, viewerID uuid.UUID) (*models.RelationshipSnapshot, error) {
	user, err := c.db.GetUser(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if c.rebuilds != nil {
		c.rebuilds()
	}

	snap := &models.RelationshipSnapshot{
		ViewerID:     viewerID,
		FollowingIDs: make(map[string]bool, len(user.Following)),
		BlockedIDs:   make(map[string]bool, len(user.Blocked)+len(user.BlockedBy)),
	}
	for _, id := range user.Following {
		snap.FollowingIDs[id.String()] = true
	}
	// Blocking is symmetric for feed purposes: either direction hides content.
	for _, id := range user.Blocked {
		snap.BlockedIDs[id.String()] = true
	}
	for _, id := range user.BlockedBy {
		snap.BlockedIDs[id.String()] = true
	}
	return snap, nil
}
