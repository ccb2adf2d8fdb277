package domain

import (
	"context"
	"time"
)

// Favorite represents a many-to-many relationship between a User and an
// Article. A Favorite is created when a user favorites an article. It's
// destroyed when the user unfavorites it, or when the article gets deleted.
// The composite unique index makes redundant edges impossible, even under
// concurrent inserts.
type Favorite struct {
	ID        int `json:"id"`
	UserID    int `json:"user_id" gorm:"notNull;index;uniqueIndex:idx_favorites_user_article"`
	ArticleID int `json:"article_id" gorm:"notNull;index;uniqueIndex:idx_favorites_user_article"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FavoriteService maintains Favorite edges and the denormalized
// favorites count on articles. Both always change together.
type FavoriteService interface {
	AddFavorite(ctx context.Context, userID int, slug string) (*Article, error)
	RemoveFavorite(ctx context.Context, userID int, slug string) (*Article, error)
	Favorited(ctx context.Context, userID, articleID int) (bool, error)
}
