package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// FollowLoader is the slice of the follow repository the cache needs.
type FollowLoader interface {
	FollowingIDSet(ctx context.Context, followerID string) (map[string]struct{}, error)
}

// FollowCache is a read-through Redis cache of outbound-follow ID sets.
// The dispatcher re-reads the set on every attempt, so the reply filter
// follows whatever is cached at that moment; a follow/unfollow between
// retries may change the outcome, which is accepted.
type FollowCache struct {
	repo FollowLoader
	rdb  *redis.Client
	ttl  time.Duration
}

func NewFollowCache(repo FollowLoader, rdb *redis.Client, ttl time.Duration) *FollowCache {
	return &FollowCache{repo: repo, rdb: rdb, ttl: ttl}
}

func key(identityID string) string {
	return fmt.Sprintf("follows:out:%s", identityID)
}

// FollowingIDSet returns the set of identity IDs the given identity follows.
func (c *FollowCache) FollowingIDSet(ctx context.Context, identityID string) (map[string]struct{}, error) {
	if data, err := c.rdb.Get(ctx, key(identityID)).Bytes(); err == nil {
		var ids []string
		if uErr := json.Unmarshal(data, &ids); uErr == nil {
			set := make(map[string]struct{}, len(ids))
			for _, id := range ids {
				set[id] = struct{}{}
			}
			return set, nil
		}
	}

	set, err := c.repo.FollowingIDSet(ctx, identityID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	if payload, err := json.Marshal(ids); err == nil {
		// cache failures are not load failures
		_ = c.rdb.Set(ctx, key(identityID), payload, c.ttl).Err()
	}
	return set, nil
}

// Invalidate drops the cached set after a follow/unfollow.
func (c *FollowCache) Invalidate(ctx context.Context, identityID string) {
	_ = c.rdb.Del(ctx, key(identityID)).Err()
}
