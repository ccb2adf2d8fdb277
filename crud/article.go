package crud

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"conduit/domain"
	"conduit/errs"
)

// ArticleService manages Articles: publishing, listing, the follow-scoped
// feed, and owner-only updates and deletes.
// It implements the domain.ArticleService interface.
type ArticleService struct {
	articleValidator
}

// articleValidator runs validations on incoming Article data and enforces
// the resolve-then-authorize ordering on mutating operations.
// On success, it passes the data on to articleGorm.
// Otherwise, it returns the error of the validation that has failed.
type articleValidator struct {
	articleGorm
}

// articleGorm runs queries and CRUD operations on the database using
// incoming Article data. It assumes that data has been validated.
type articleGorm struct {
	db *gorm.DB
}

// NewArticleService returns an instance of ArticleService.
func NewArticleService(db *gorm.DB) *ArticleService {
	return &ArticleService{
		articleValidator{
			articleGorm{
				db: db,
			},
		},
	}
}

// Ensure the ArticleService struct properly implements the domain.ArticleService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.ArticleService = &ArticleService{}

// CreateArticle runs validations needed for publishing a new Article,
// mints its slug, and stores it.
func (av *articleValidator) CreateArticle(ctx context.Context, article *domain.Article) error {
	err := runArticleValFns(article,
		av.authorIdValid,
		av.titleRequired,
		av.tagListNormalize,
		av.slugSet)
	if err != nil {
		return err
	}
	return av.articleGorm.CreateArticle(ctx, article)
}

// UpdateArticle resolves the article by slug, checks that the acting user
// owns it, and applies the explicit field updates from upd. A title update
// that actually changes the title re-slugs the article; edits that leave
// the title untouched keep the slug stable.
func (av *articleValidator) UpdateArticle(ctx context.Context, slug string, userID int, upd domain.ArticleUpdate) (*domain.Article, error) {
	article, err := av.articleGorm.BySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := requireOwnership(article.AuthorID, userID); err != nil {
		return nil, err
	}
	if upd.Title != nil && *upd.Title != article.Title {
		article.Title = *upd.Title
		article.Slug = makeSlug(article.Title)
	}
	if upd.Description != nil {
		article.Description = *upd.Description
	}
	if upd.Body != nil {
		article.Body = *upd.Body
	}
	if upd.TagList != nil {
		article.TagList = upd.TagList
	}
	err = runArticleValFns(article,
		av.titleRequired,
		av.tagListNormalize)
	if err != nil {
		return nil, err
	}
	return av.articleGorm.UpdateArticle(ctx, article)
}

// DeleteArticle resolves the article by slug, checks that the acting user
// owns it, and deletes it along with its favorite edges.
func (av *articleValidator) DeleteArticle(ctx context.Context, slug string, userID int) error {
	article, err := av.articleGorm.BySlug(ctx, slug)
	if err != nil {
		return err
	}
	if err := requireOwnership(article.AuthorID, userID); err != nil {
		return err
	}
	return av.articleGorm.DeleteArticle(ctx, article)
}

// FindArticles coerces the pagination values and passes the filter on.
func (av *articleValidator) FindArticles(ctx context.Context, viewerID int, filter domain.ArticleFilter) ([]domain.Article, int, error) {
	filter.Limit = clampPage(filter.Limit)
	filter.Offset = clampPage(filter.Offset)
	return av.articleGorm.FindArticles(ctx, viewerID, filter)
}

// FeedArticles requires an authenticated viewer, coerces the pagination
// values, and passes the filter on.
func (av *articleValidator) FeedArticles(ctx context.Context, viewerID int, filter domain.FeedFilter) ([]domain.Article, int, error) {
	if viewerID <= 0 {
		return nil, 0, errs.Errorf(errs.EUNAUTHORIZED, "You must be logged in to see your feed.")
	}
	filter.Limit = clampPage(filter.Limit)
	filter.Offset = clampPage(filter.Offset)
	return av.articleGorm.FeedArticles(ctx, viewerID, filter)
}

// runArticleValFns runs any number of functions of type articleValFn on the
// passed in Article object. If none of them returns an error, it returns nil.
// Otherwise, it returns the respective error.
func runArticleValFns(article *domain.Article, fns ...articleValFn) error {
	for _, fn := range fns {
		if err := fn(article); err != nil {
			return err
		}
	}
	return nil
}

// An articleValFn is any function that takes in a pointer to a domain.Article object and returns an error.
type articleValFn func(article *domain.Article) error

// authorIdValid ensures that the authorId is not empty.
func (av *articleValidator) authorIdValid(article *domain.Article) error {
	if article.AuthorID <= 0 {
		return errs.Errorf(errs.EINVALID, "Author ID is required.")
	}
	return nil
}

// titleRequired makes sure that the Article's title is not empty.
func (av *articleValidator) titleRequired(article *domain.Article) error {
	if strings.TrimSpace(article.Title) == "" {
		return errs.Errorf(errs.EINVALID, "Article title must not be empty.")
	}
	return nil
}

// tagListNormalize replaces a nil tagList with an empty one, so that the
// serialized column is always a JSON array.
func (av *articleValidator) tagListNormalize(article *domain.Article) error {
	if article.TagList == nil {
		article.TagList = []string{}
	}
	return nil
}

// slugSet mints the article's slug from its title.
func (av *articleValidator) slugSet(article *domain.Article) error {
	article.Slug = makeSlug(article.Title)
	return nil
}

// clampPage coerces a pagination value to a non-negative integer, keeping
// its presence: a nil stays nil, a present negative becomes a present zero.
func clampPage(v *int) *int {
	if v != nil && *v < 0 {
		zero := 0
		return &zero
	}
	return v
}

// BySlug retrieves a single Article by slug, along with its author.
// If the record doesn't exist, it returns ENOTFOUND.
func (ag *articleGorm) BySlug(ctx context.Context, slug string) (*domain.Article, error) {
	var article domain.Article
	err := ag.db.WithContext(ctx).
		Preload("Author").
		First(&article, "slug = ?", slug).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Errorf(errs.ENOTFOUND, "The article does not exist.")
		}
		return nil, err
	}
	return &article, nil
}

// FindArticles composes the tag, author and favoritedBy filters into a
// single listing query and executes it. The returned count reflects the
// filtered set before pagination. If a viewer is present, each returned
// article carries its viewer-scoped favorited flag.
func (ag *articleGorm) FindArticles(ctx context.Context, viewerID int, filter domain.ArticleFilter) ([]domain.Article, int, error) {
	var conds []func(*gorm.DB) *gorm.DB

	if filter.Tag != nil {
		// The tagList column holds a JSON array of strings, so matching
		// the quoted tag is an exact membership check. LIKE metacharacters
		// in the tag are escaped so they match literally.
		pattern := "%" + `"` + escapeLike(*filter.Tag) + `"` + "%"
		conds = append(conds, func(q *gorm.DB) *gorm.DB {
			return q.Where(`tag_list LIKE ? ESCAPE '\'`, pattern)
		})
	}

	if filter.Author != nil {
		author, err := ag.userByUsername(ctx, *filter.Author)
		if err != nil {
			return nil, 0, err
		}
		conds = append(conds, func(q *gorm.DB) *gorm.DB {
			return q.Where("author_id = ?", author.ID)
		})
	}

	if filter.FavoritedBy != nil {
		user, err := ag.userByUsername(ctx, *filter.FavoritedBy)
		if err != nil {
			return nil, 0, err
		}
		// The subquery stays in place even when the user has no favorites,
		// it is then simply unsatisfiable. That keeps the count and the
		// page consistent instead of special-casing an empty favorites set.
		conds = append(conds, func(q *gorm.DB) *gorm.DB {
			return q.Where("id IN (?)", ag.db.Model(&domain.Favorite{}).
				Select("article_id").
				Where("user_id = ?", user.ID))
		})
	}

	return ag.listArticles(ctx, viewerID, conds, filter.Limit, filter.Offset)
}

// FeedArticles restricts the listing to articles authored by users the
// viewer follows. A viewer who follows no one gets an empty page and a
// zero count, not an error.
func (ag *articleGorm) FeedArticles(ctx context.Context, viewerID int, filter domain.FeedFilter) ([]domain.Article, int, error) {
	conds := []func(*gorm.DB) *gorm.DB{
		func(q *gorm.DB) *gorm.DB {
			return q.Where("author_id IN (?)", ag.db.Model(&domain.Follow{}).
				Select("followed_id").
				Where("follower_id = ?", viewerID))
		},
	}
	return ag.listArticles(ctx, viewerID, conds, filter.Limit, filter.Offset)
}

// listArticles executes a composed listing query: count on the filtered
// set first, then the ordered, paginated page, then the viewer's
// favorited flags. Ordering is newest first with ids breaking ties, so
// pagination is stable.
func (ag *articleGorm) listArticles(ctx context.Context, viewerID int, conds []func(*gorm.DB) *gorm.DB, limit, offset *int) ([]domain.Article, int, error) {
	apply := func(q *gorm.DB) *gorm.DB {
		for _, cond := range conds {
			q = cond(q)
		}
		return q
	}

	var total int64
	err := apply(ag.db.WithContext(ctx).Model(&domain.Article{})).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	q := apply(ag.db.WithContext(ctx).Model(&domain.Article{})).
		Preload("Author").
		Order("created_at DESC, id DESC")
	if limit != nil {
		q = q.Limit(*limit)
	}
	if offset != nil && *offset > 0 {
		q = q.Offset(*offset)
	}

	var articles []domain.Article
	if err := q.Find(&articles).Error; err != nil {
		return nil, 0, err
	}
	if err := ag.attachFavorited(ctx, viewerID, articles); err != nil {
		return nil, 0, err
	}
	return articles, int(total), nil
}

// attachFavorited resolves the viewer's favorited flag for a page of
// articles with a single edge query. Anonymous viewers keep the zero
// value on every article.
func (ag *articleGorm) attachFavorited(ctx context.Context, viewerID int, articles []domain.Article) error {
	if viewerID <= 0 || len(articles) == 0 {
		return nil
	}
	ids := make([]int, 0, len(articles))
	for _, article := range articles {
		ids = append(ids, article.ID)
	}
	var favoritedIDs []int
	err := ag.db.WithContext(ctx).
		Model(&domain.Favorite{}).
		Where("user_id = ? AND article_id IN ?", viewerID, ids).
		Pluck("article_id", &favoritedIDs).Error
	if err != nil {
		return err
	}
	favorited := make(map[int]bool, len(favoritedIDs))
	for _, id := range favoritedIDs {
		favorited[id] = true
	}
	for i := range articles {
		articles[i].Favorited = favorited[articles[i].ID]
	}
	return nil
}

// escapeLike escapes LIKE's wildcard characters so a user-supplied value
// only ever matches itself.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// userByUsername resolves a username referenced by a filter. A username
// that doesn't exist is an error, not an empty result set.
func (ag *articleGorm) userByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := ag.db.WithContext(ctx).First(&user, "username = ?", username).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Errorf(errs.ENOTFOUND, "The user %q does not exist.", username)
		}
		return nil, err
	}
	return &user, nil
}

// CreateArticle stores the data from the Article object in a new database
// record and reloads it with its author.
func (ag *articleGorm) CreateArticle(ctx context.Context, article *domain.Article) error {
	if err := ag.db.WithContext(ctx).Create(article).Error; err != nil {
		return err
	}
	return ag.db.WithContext(ctx).Preload("Author").First(article, "id = ?", article.ID).Error
}

// UpdateArticle persists the updated article fields and returns a fresh
// snapshot.
func (ag *articleGorm) UpdateArticle(ctx context.Context, article *domain.Article) (*domain.Article, error) {
	err := ag.db.WithContext(ctx).Model(article).
		Select("Title", "Slug", "Description", "Body", "TagList").
		Updates(article).Error
	if err != nil {
		return nil, err
	}
	var updated domain.Article
	err = ag.db.WithContext(ctx).Preload("Author").First(&updated, "id = ?", article.ID).Error
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteArticle permanently deletes an article. Its favorite edges go
// with it in the same transaction, so no dangling edges survive.
func (ag *articleGorm) DeleteArticle(ctx context.Context, article *domain.Article) error {
	return ag.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Delete(&domain.Favorite{}, "article_id = ?", article.ID).Error
		if err != nil {
			return err
		}
		return tx.Delete(&domain.Article{}, "id = ?", article.ID).Error
	})
}
