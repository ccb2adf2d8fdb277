package domain

import (
	"context"
	"time"
)

type Article struct {
	ID          int      `json:"id"`
	Slug        string   `json:"slug" gorm:"uniqueIndex;notNull"`
	Title       string   `json:"title" gorm:"notNull"`
	Description string   `json:"description"`
	Body        string   `json:"body"`
	TagList     []string `json:"tagList" gorm:"serializer:json"`

	AuthorID int  `json:"-" gorm:"notNull;index"`
	Author   User `json:"author"`

	// FavoritesCount is denormalized and kept in sync with the favorites
	// table by the FavoriteService, inside the same transaction as the
	// edge mutation. Nothing else may write it.
	FavoritesCount int `json:"favoritesCount" gorm:"notNull;default:0"`

	// Favorited is viewer-scoped and never persisted.
	Favorited bool `json:"favorited" gorm:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ArticleService interface {
	BySlug(ctx context.Context, slug string) (*Article, error)
	FindArticles(ctx context.Context, viewerID int, filter ArticleFilter) ([]Article, int, error)
	FeedArticles(ctx context.Context, viewerID int, filter FeedFilter) ([]Article, int, error)
	CreateArticle(ctx context.Context, article *Article) error
	UpdateArticle(ctx context.Context, slug string, userID int, upd ArticleUpdate) (*Article, error)
	DeleteArticle(ctx context.Context, slug string, userID int) error
}

// ArticleFilter narrows down FindArticles results. Nil fields mean
// "filter absent", so a present-but-zero Limit is meaningful: it yields
// an empty page, not the full set.
type ArticleFilter struct {
	Tag         *string `json:"tag"`
	Author      *string `json:"author"`
	FavoritedBy *string `json:"favorited"`

	Limit  *int `json:"limit"`
	Offset *int `json:"offset"`
}

// FeedFilter paginates FeedArticles. Same presence semantics as ArticleFilter.
type FeedFilter struct {
	Limit  *int `json:"limit"`
	Offset *int `json:"offset"`
}

// ArticleUpdate carries explicit field updates for an article. Nil fields
// are left untouched. A title update re-slugs the article.
type ArticleUpdate struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Body        *string  `json:"body"`
	TagList     []string `json:"tagList"`
}
