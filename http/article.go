package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"conduit/auth"
	"conduit/domain"
	"conduit/errs"
)

// registerArticleRoutes is a helper for registering all Article routes.
func (s *Server) registerArticleRoutes(r *mux.Router) {
	// List articles, filtered by tag, author or favoriting user.
	r.HandleFunc("/articles", s.handleListArticles).Methods("GET")

	// List articles authored by users the authed user follows.
	r.HandleFunc("/articles/feed", s.requireAuth(s.handleFeed)).Methods("GET")

	// Publish a new article.
	r.HandleFunc("/articles", s.requireAuth(s.handleCreateArticle)).Methods("POST")

	// Get, update or delete a single article.
	r.HandleFunc("/articles/{slug}", s.handleGetArticle).Methods("GET")
	r.HandleFunc("/articles/{slug}", s.requireAuth(s.handleUpdateArticle)).Methods("PUT")
	r.HandleFunc("/articles/{slug}", s.requireAuth(s.handleDeleteArticle)).Methods("DELETE")

	// Favorite or unfavorite an article.
	r.HandleFunc("/articles/{slug}/favorite", s.requireAuth(s.handleFavorite)).Methods("POST")
	r.HandleFunc("/articles/{slug}/favorite", s.requireAuth(s.handleUnfavorite)).Methods("DELETE")
}

// articleResponse wraps a single article.
type articleResponse struct {
	Article *domain.Article `json:"article"`
}

// articlesResponse wraps a listing page plus the pre-pagination count.
type articlesResponse struct {
	Articles      []domain.Article `json:"articles"`
	ArticlesCount int              `json:"articlesCount"`
}

// handleListArticles handles the route "GET /api/articles".
// It parses the filter from the query string and returns the matching
// page of articles along with the total count of the filtered set.
func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	filter, err := parseArticleFilter(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	articles, count, err := s.as.FindArticles(r.Context(), auth.GetUserID(r.Context()), filter)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if articles == nil {
		articles = []domain.Article{}
	}
	if err := json.NewEncoder(w).Encode(&articlesResponse{Articles: articles, ArticlesCount: count}); err != nil {
		errs.LogError(r, err)
	}
}

// handleFeed handles the route "GET /api/articles/feed".
// It returns articles authored by users the authed user follows.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	limit, err := parsePageParam(r, "limit")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	offset, err := parsePageParam(r, "offset")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	filter := domain.FeedFilter{Limit: limit, Offset: offset}
	articles, count, err := s.as.FeedArticles(r.Context(), auth.GetUserID(r.Context()), filter)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if articles == nil {
		articles = []domain.Article{}
	}
	if err := json.NewEncoder(w).Encode(&articlesResponse{Articles: articles, ArticlesCount: count}); err != nil {
		errs.LogError(r, err)
	}
}

// articleRequest is the incoming payload of create and update requests.
type articleRequest struct {
	Article struct {
		Title       *string  `json:"title"`
		Description *string  `json:"description"`
		Body        *string  `json:"body"`
		TagList     []string `json:"tagList"`
	} `json:"article"`
}

// handleCreateArticle handles the route "POST /api/articles".
func (s *Server) handleCreateArticle(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid json body."))
		return
	}
	article := domain.Article{
		AuthorID: auth.GetUserID(r.Context()),
		TagList:  req.Article.TagList,
	}
	if req.Article.Title != nil {
		article.Title = *req.Article.Title
	}
	if req.Article.Description != nil {
		article.Description = *req.Article.Description
	}
	if req.Article.Body != nil {
		article.Body = *req.Article.Body
	}
	if err := s.as.CreateArticle(r.Context(), &article); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(&articleResponse{Article: &article}); err != nil {
		errs.LogError(r, err)
	}
}

// handleGetArticle handles the route "GET /api/articles/{slug}".
func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	article, err := s.as.BySlug(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if viewerID := auth.GetUserID(r.Context()); viewerID > 0 {
		favorited, err := s.fvs.Favorited(r.Context(), viewerID, article.ID)
		if err != nil {
			errs.ReturnError(w, r, err)
			return
		}
		article.Favorited = favorited
	}
	if err := json.NewEncoder(w).Encode(&articleResponse{Article: article}); err != nil {
		errs.LogError(r, err)
	}
}

// handleUpdateArticle handles the route "PUT /api/articles/{slug}".
// Only the article's author may update it; the crud layer enforces that
// after resolving the slug.
func (s *Server) handleUpdateArticle(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid json body."))
		return
	}
	upd := domain.ArticleUpdate{
		Title:       req.Article.Title,
		Description: req.Article.Description,
		Body:        req.Article.Body,
		TagList:     req.Article.TagList,
	}
	article, err := s.as.UpdateArticle(r.Context(), mux.Vars(r)["slug"], auth.GetUserID(r.Context()), upd)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(&articleResponse{Article: article}); err != nil {
		errs.LogError(r, err)
	}
}

// handleDeleteArticle handles the route "DELETE /api/articles/{slug}".
func (s *Server) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	err := s.as.DeleteArticle(r.Context(), mux.Vars(r)["slug"], auth.GetUserID(r.Context()))
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleFavorite handles the route "POST /api/articles/{slug}/favorite".
func (s *Server) handleFavorite(w http.ResponseWriter, r *http.Request) {
	article, err := s.fvs.AddFavorite(r.Context(), auth.GetUserID(r.Context()), mux.Vars(r)["slug"])
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(&articleResponse{Article: article}); err != nil {
		errs.LogError(r, err)
	}
}

// handleUnfavorite handles the route "DELETE /api/articles/{slug}/favorite".
func (s *Server) handleUnfavorite(w http.ResponseWriter, r *http.Request) {
	article, err := s.fvs.RemoveFavorite(r.Context(), auth.GetUserID(r.Context()), mux.Vars(r)["slug"])
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(&articleResponse{Article: article}); err != nil {
		errs.LogError(r, err)
	}
}

// parseArticleFilter reads the listing filter from the query string.
// Absent parameters stay nil so the crud layer can tell "absent" from
// "present but zero".
func parseArticleFilter(r *http.Request) (domain.ArticleFilter, error) {
	var filter domain.ArticleFilter
	query := r.URL.Query()
	if tag := query.Get("tag"); tag != "" {
		filter.Tag = &tag
	}
	if author := query.Get("author"); author != "" {
		filter.Author = &author
	}
	if favorited := query.Get("favorited"); favorited != "" {
		filter.FavoritedBy = &favorited
	}
	limit, err := parsePageParam(r, "limit")
	if err != nil {
		return filter, err
	}
	offset, err := parsePageParam(r, "offset")
	if err != nil {
		return filter, err
	}
	filter.Limit = limit
	filter.Offset = offset
	return filter, nil
}

// parsePageParam parses an optional numeric query parameter. A parameter
// that is present but not a number is a client error.
func parsePageParam(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errs.Errorf(errs.EINVALID, "Invalid %s format.", name)
	}
	return &value, nil
}
