package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowingIDSet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, "a", "b"))
	require.NoError(t, repo.Create(ctx, "a", "c"))
	require.NoError(t, repo.Create(ctx, "a", "b")) // 重复关注幂等
	require.NoError(t, repo.Create(ctx, "b", "a"))

	set, err := repo.FollowingIDSet(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"b": {}, "c": {}}, set)

	require.NoError(t, repo.Delete(ctx, "a", "b"))
	set, err = repo.FollowingIDSet(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"c": {}}, set)
}
