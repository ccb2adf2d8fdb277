package domain

import (
	"context"
	"time"
)

// Follow represents a self-referential many-to-many relationship between
// two users. The FollowerID is the ID of the user that follows, and the
// FollowedID is the ID of the user being followed. A user can never
// follow themselves.
type Follow struct {
	ID         int `json:"id"`
	FollowerID int `json:"-" gorm:"notNull;index;uniqueIndex:idx_follows_follower_followed"`
	FollowedID int `json:"-" gorm:"notNull;index;uniqueIndex:idx_follows_follower_followed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FollowService maintains Follow edges. Follow and Unfollow are both
// idempotent and return the target's profile as seen by the follower
// after the operation.
type FollowService interface {
	Follow(ctx context.Context, followerID int, username string) (*Profile, error)
	Unfollow(ctx context.Context, followerID int, username string) (*Profile, error)
	Following(ctx context.Context, followerID, followedID int) (bool, error)
	ProfileByUsername(ctx context.Context, viewerID int, username string) (*Profile, error)
}
