package crud

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"conduit/domain"
	"conduit/errs"
)

// FollowService manages Follow edges between users.
// It implements the domain.FollowService interface.
type FollowService struct {
	followValidator
}

// followValidator runs validations on incoming Follow data.
// On success, it passes the data on to followGorm.
// Otherwise, it returns the error of the validation that has failed.
type followValidator struct {
	followGorm
}

// followGorm is the store for follow edges.
type followGorm struct {
	db *gorm.DB
}

// NewFollowService returns an instance of FollowService.
func NewFollowService(db *gorm.DB) *FollowService {
	return &FollowService{
		followValidator{
			followGorm{
				db: db,
			},
		},
	}
}

// Ensure the FollowService struct properly implements the domain.FollowService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.FollowService = &FollowService{}

// Follow makes the acting user follow the user with the given username.
// Following a user twice is a no-op. The returned profile reflects the
// post-operation state.
func (fv *followValidator) Follow(ctx context.Context, followerID int, username string) (*domain.Profile, error) {
	target, err := fv.resolveTarget(ctx, followerID, username)
	if err != nil {
		return nil, err
	}
	if err := fv.followGorm.createEdge(ctx, followerID, target.ID); err != nil {
		return nil, err
	}
	return target.AsProfile(true), nil
}

// Unfollow makes the acting user unfollow the user with the given
// username. Unfollowing a user who was never followed is a no-op, which
// deliberately differs from the favorite removal policy: there is no
// counter to keep consistent here.
func (fv *followValidator) Unfollow(ctx context.Context, followerID int, username string) (*domain.Profile, error) {
	target, err := fv.resolveTarget(ctx, followerID, username)
	if err != nil {
		return nil, err
	}
	if err := fv.followGorm.deleteEdge(ctx, followerID, target.ID); err != nil {
		return nil, err
	}
	return target.AsProfile(false), nil
}

// ProfileByUsername returns the profile of the user with the given
// username, with the following flag computed relative to the viewer.
// Anonymous viewers always see following = false.
func (fv *followValidator) ProfileByUsername(ctx context.Context, viewerID int, username string) (*domain.Profile, error) {
	target, err := fv.followGorm.userByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	following := false
	if viewerID > 0 && viewerID != target.ID {
		following, err = fv.followGorm.Following(ctx, viewerID, target.ID)
		if err != nil {
			return nil, err
		}
	}
	return target.AsProfile(following), nil
}

// resolveTarget looks up the target of a follow or unfollow and rejects
// self-references before the store is touched.
func (fv *followValidator) resolveTarget(ctx context.Context, followerID int, username string) (*domain.User, error) {
	if followerID <= 0 {
		return nil, errs.Errorf(errs.EINVALID, "User ID is required.")
	}
	target, err := fv.followGorm.userByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.ID == followerID {
		return nil, errs.Errorf(errs.EINVALID, "You cannot follow or unfollow yourself.")
	}
	return target, nil
}

// Following takes a follower ID and a followed ID and reports whether the
// follow edge between them exists.
func (fg *followGorm) Following(ctx context.Context, followerID, followedID int) (bool, error) {
	err := fg.db.WithContext(ctx).
		First(&domain.Follow{}, "follower_id = ? AND followed_id = ?", followerID, followedID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// createEdge creates the follow edge unless it already exists. Losing a
// race on the composite unique index counts as already existing.
func (fg *followGorm) createEdge(ctx context.Context, followerID, followedID int) error {
	following, err := fg.Following(ctx, followerID, followedID)
	if err != nil || following {
		return err
	}
	err = fg.db.WithContext(ctx).
		Create(&domain.Follow{FollowerID: followerID, FollowedID: followedID}).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	return nil
}

// deleteEdge deletes the follow edge if it exists. Deleting an absent
// edge is not an error.
func (fg *followGorm) deleteEdge(ctx context.Context, followerID, followedID int) error {
	return fg.db.WithContext(ctx).
		Delete(&domain.Follow{}, "follower_id = ? AND followed_id = ?", followerID, followedID).Error
}

// userByUsername resolves the user a follow operation refers to.
func (fg *followGorm) userByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := fg.db.WithContext(ctx).First(&user, "username = ?", username).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Errorf(errs.ENOTFOUND, "The user %q does not exist.", username)
		}
		return nil, err
	}
	return &user, nil
}
