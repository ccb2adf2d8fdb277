package crud

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"conduit/domain"
	"conduit/errs"
)

// FavoriteService manages Favorite edges between users and articles.
// It implements the domain.FavoriteService interface.
type FavoriteService struct {
	favoriteValidator
}

// favoriteValidator runs validations on incoming Favorite data.
// On success, it passes the data on to favoriteGorm.
// Otherwise, it returns the error of the validation that has failed.
type favoriteValidator struct {
	favoriteGorm
}

// favoriteGorm is the store for favorite edges. Edge mutations and the
// denormalized favorites count on the article always commit in the same
// transaction.
type favoriteGorm struct {
	db *gorm.DB
}

// NewFavoriteService returns an instance of FavoriteService.
func NewFavoriteService(db *gorm.DB) *FavoriteService {
	return &FavoriteService{
		favoriteValidator{
			favoriteGorm{
				db: db,
			},
		},
	}
}

// Ensure the FavoriteService struct properly implements the domain.FavoriteService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.FavoriteService = &FavoriteService{}

// AddFavorite favorites the article with the given slug for the given
// user. Favoriting an article twice is a no-op, not an error: the second
// call returns the article unchanged.
func (fv *favoriteValidator) AddFavorite(ctx context.Context, userID int, slug string) (*domain.Article, error) {
	if err := fv.userIdValid(userID); err != nil {
		return nil, err
	}
	article, err := fv.favoriteGorm.articleBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := fv.favoriteGorm.addEdge(ctx, userID, article.ID); err != nil {
		return nil, err
	}
	return fv.favoriteGorm.reloadArticle(ctx, article.ID, true)
}

// RemoveFavorite unfavorites the article with the given slug for the
// given user. Unlike AddFavorite, removing an edge that doesn't exist is
// an error: you cannot unfavorite an article that is not in your favorites.
func (fv *favoriteValidator) RemoveFavorite(ctx context.Context, userID int, slug string) (*domain.Article, error) {
	if err := fv.userIdValid(userID); err != nil {
		return nil, err
	}
	article, err := fv.favoriteGorm.articleBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := fv.favoriteGorm.removeEdge(ctx, userID, article.ID); err != nil {
		return nil, err
	}
	return fv.favoriteGorm.reloadArticle(ctx, article.ID, false)
}

// userIdValid ensures that the userId is not empty.
func (fv *favoriteValidator) userIdValid(userID int) error {
	if userID <= 0 {
		return errs.Errorf(errs.EINVALID, "User ID is required.")
	}
	return nil
}

// Favorited takes a user ID and an article ID and reports whether the
// favorite edge between them exists.
func (fg *favoriteGorm) Favorited(ctx context.Context, userID, articleID int) (bool, error) {
	err := fg.db.WithContext(ctx).
		First(&domain.Favorite{}, "user_id = ? AND article_id = ?", userID, articleID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// addEdge creates the favorite edge and increments the article's
// favorites count in a single transaction. The insert ignores conflicts
// on the composite unique index, so an edge that already exists, or one
// a concurrent add created first, skips the increment and leaves edge
// and counter untouched.
func (fg *favoriteGorm) addEdge(ctx context.Context, userID, articleID int) error {
	return fg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&domain.Favorite{UserID: userID, ArticleID: articleID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Model(&domain.Article{}).
			Where("id = ?", articleID).
			UpdateColumn("favorites_count", gorm.Expr("favorites_count + ?", 1)).
			Error
	})
}

// removeEdge deletes the favorite edge and decrements the article's
// favorites count in a single transaction. The decrement only fires when
// the delete actually removed a row: an edge that never existed, or one
// a concurrent remove took first, is ENOTFOUND and leaves the counter
// alone. The decrement is guarded so the counter can never drop below zero.
func (fg *favoriteGorm) removeEdge(ctx context.Context, userID, articleID int) error {
	return fg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&domain.Favorite{}, "user_id = ? AND article_id = ?", userID, articleID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.Errorf(errs.ENOTFOUND, "This article is not in your favorites.")
		}
		return tx.Model(&domain.Article{}).
			Where("id = ? AND favorites_count > 0", articleID).
			UpdateColumn("favorites_count", gorm.Expr("favorites_count - ?", 1)).
			Error
	})
}

// articleBySlug resolves the article targeted by a favorite operation.
func (fg *favoriteGorm) articleBySlug(ctx context.Context, slug string) (*domain.Article, error) {
	var article domain.Article
	err := fg.db.WithContext(ctx).First(&article, "slug = ?", slug).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Errorf(errs.ENOTFOUND, "The article does not exist.")
		}
		return nil, err
	}
	return &article, nil
}

// reloadArticle returns a fresh snapshot of the article after a favorite
// operation, with its author and the viewer's post-operation favorited flag.
func (fg *favoriteGorm) reloadArticle(ctx context.Context, articleID int, favorited bool) (*domain.Article, error) {
	var article domain.Article
	err := fg.db.WithContext(ctx).Preload("Author").First(&article, "id = ?", articleID).Error
	if err != nil {
		return nil, err
	}
	article.Favorited = favorited
	return &article, nil
}
