package crud

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/domain"
	"conduit/errs"
)

func TestFollowUnfollow(t *testing.T) {
	db := newTestDB(t)
	fls := NewFollowService(db)
	ctx := context.Background()

	foo := createTestUser(t, db, "foo")
	bar := createTestUser(t, db, "bar")

	profile, err := fls.Follow(ctx, bar.ID, "foo")
	require.NoError(t, err)
	assert.Equal(t, "foo", profile.Username)
	assert.True(t, profile.Following)

	// Following twice doesn't create a second edge.
	_, err = fls.Follow(ctx, bar.ID, "foo")
	require.NoError(t, err)
	var edges int64
	require.NoError(t, db.Model(&domain.Follow{}).
		Where("follower_id = ? AND followed_id = ?", bar.ID, foo.ID).
		Count(&edges).Error)
	assert.Equal(t, int64(1), edges)

	profile, err = fls.Unfollow(ctx, bar.ID, "foo")
	require.NoError(t, err)
	assert.False(t, profile.Following)

	// Unfollowing a user who isn't followed is a no-op, not an error.
	profile, err = fls.Unfollow(ctx, bar.ID, "foo")
	require.NoError(t, err)
	assert.False(t, profile.Following)

	require.NoError(t, db.Model(&domain.Follow{}).
		Where("follower_id = ?", bar.ID).
		Count(&edges).Error)
	assert.Zero(t, edges)
}

func TestFollow_Self(t *testing.T) {
	db := newTestDB(t)
	fls := NewFollowService(db)
	ctx := context.Background()
	foo := createTestUser(t, db, "foo")

	_, err := fls.Follow(ctx, foo.ID, "foo")
	require.Error(t, err)
	assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))

	_, err = fls.Unfollow(ctx, foo.ID, "foo")
	require.Error(t, err)
	assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))

	// The store was never touched.
	var edges int64
	require.NoError(t, db.Model(&domain.Follow{}).Count(&edges).Error)
	assert.Zero(t, edges)
}

func TestFollow_MissingTarget(t *testing.T) {
	db := newTestDB(t)
	fls := NewFollowService(db)
	ctx := context.Background()
	foo := createTestUser(t, db, "foo")

	_, err := fls.Follow(ctx, foo.ID, "nobody")
	assert.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))
	_, err = fls.Unfollow(ctx, foo.ID, "nobody")
	assert.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))
}

func TestProfileByUsername(t *testing.T) {
	db := newTestDB(t)
	fls := NewFollowService(db)
	ctx := context.Background()

	foo := createTestUser(t, db, "foo")
	bar := createTestUser(t, db, "bar")

	// Anonymous viewers always see following = false.
	profile, err := fls.ProfileByUsername(ctx, 0, "foo")
	require.NoError(t, err)
	assert.Equal(t, "foo", profile.Username)
	assert.False(t, profile.Following)

	_, err = fls.Follow(ctx, bar.ID, "foo")
	require.NoError(t, err)
	profile, err = fls.ProfileByUsername(ctx, bar.ID, "foo")
	require.NoError(t, err)
	assert.True(t, profile.Following)

	// The flag is viewer-scoped: foo doesn't follow bar back.
	profile, err = fls.ProfileByUsername(ctx, foo.ID, "bar")
	require.NoError(t, err)
	assert.False(t, profile.Following)

	_, err = fls.ProfileByUsername(ctx, 0, "nobody")
	assert.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))
}
