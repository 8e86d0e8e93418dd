package service

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/d60-Lab/fanout-engine/internal/repository"
)

var (
	ErrFollowSelf = errors.New("cannot follow self")
)

// Invalidator 关注变更后丢弃缓存的关注集合（cache.FollowCache 实现）
type Invalidator interface {
	Invalidate(ctx context.Context, identityID string)
}

// RelationshipService 关系链服务：follows 同步写，fans 冗余异步写
type RelationshipService interface {
	Follow(ctx context.Context, fromID, toID string) error
	Unfollow(ctx context.Context, fromID, toID string) error
	ListFollowing(ctx context.Context, identityID string, page, pageSize int) ([]string, error)
	ListFans(ctx context.Context, identityID string, page, pageSize int) ([]string, error)
}

type relationshipService struct {
	followRepo repository.FollowRepository
	fanRepo    repository.FanRepository
	replicator *FanReplicator
	cache      Invalidator
}

func NewRelationshipService(followRepo repository.FollowRepository, fanRepo repository.FanRepository, replicator *FanReplicator, cache Invalidator) RelationshipService {
	return &relationshipService{followRepo: followRepo, fanRepo: fanRepo, replicator: replicator, cache: cache}
}

func (s *relationshipService) Follow(ctx context.Context, fromID, toID string) error {
	if fromID == toID {
		return ErrFollowSelf
	}
	if err := s.followRepo.Create(ctx, fromID, toID); err != nil {
		return err
	}
	if s.replicator != nil {
		s.replicator.EnqueueAdd(toID, fromID)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, fromID)
	}
	return nil
}

func (s *relationshipService) Unfollow(ctx context.Context, fromID, toID string) error {
	if err := s.followRepo.Delete(ctx, fromID, toID); err != nil {
		return err
	}
	if s.replicator != nil {
		s.replicator.EnqueueRemove(toID, fromID)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, fromID)
	}
	return nil
}

func (s *relationshipService) ListFollowing(ctx context.Context, identityID string, page, pageSize int) ([]string, error) {
	offset, limit := pageWindow(page, pageSize)
	items, err := s.followRepo.ListFollowings(ctx, identityID, offset, limit)
	if err != nil {
		return nil, err
	}
	res := make([]string, len(items))
	for i, it := range items {
		res[i] = it.FolloweeID
	}
	return res, nil
}

func (s *relationshipService) ListFans(ctx context.Context, identityID string, page, pageSize int) ([]string, error) {
	offset, limit := pageWindow(page, pageSize)
	items, err := s.fanRepo.ListFans(ctx, identityID, offset, limit)
	if err != nil {
		return nil, err
	}
	res := make([]string, len(items))
	for i, it := range items {
		res[i] = it.FanID
	}
	return res, nil
}

func pageWindow(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	return (page - 1) * pageSize, pageSize
}
