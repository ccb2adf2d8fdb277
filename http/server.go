package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"conduit/domain"
)

// Server provides the http functionality of this app, namely routing,
// request handling, and middleware. It resolves the acting user from the
// request and hands things over to one of the crud services.
type Server struct {
	router    *mux.Router
	logger    *zap.Logger
	jwtSecret string
	us        domain.UserService
	as        domain.ArticleService
	fvs       domain.FavoriteService
	fls       domain.FollowService
}

// NewServer returns a new instance of the server, registers all necessary
// routes and gives their handlers access to the app services passed in.
func NewServer(
	logger *zap.Logger,
	jwtSecret string,
	us domain.UserService,
	as domain.ArticleService,
	fvs domain.FavoriteService,
	fls domain.FollowService,
) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		logger:    logger,
		jwtSecret: jwtSecret,
		us:        us,
		as:        as,
		fvs:       fvs,
		fls:       fls,
	}

	api := s.router.PathPrefix("/api").Subrouter()
	s.registerUserRoutes(api)
	s.registerArticleRoutes(api)
	s.registerProfileRoutes(api)

	// Middleware that needs to run on every request. withUser resolves the
	// bearer token to a user, or leaves the request anonymous.
	s.router.Use(setContentTypeJSON, s.withUser)
	return s
}

// The setContentTypeJSON middleware sets the content type to "application/json".
func setContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Router exposes the configured handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run starts to listen and serve on the specified port.
func (s *Server) Run(port int) error {
	addr := ":" + strconv.Itoa(port)
	s.logger.Info("listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, s.router)
}
