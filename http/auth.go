package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"conduit/auth"
	"conduit/domain"
	"conduit/errs"
)

// registerUserRoutes is a helper for registering all user and auth routes.
func (s *Server) registerUserRoutes(r *mux.Router) {
	// Register a new user.
	r.HandleFunc("/users", s.handleRegister).Methods("POST")

	// Log an existing user in.
	r.HandleFunc("/users/login", s.handleLogin).Methods("POST")

	// Get or update the currently authed user.
	r.HandleFunc("/user", s.requireAuth(s.handleCurrentUser)).Methods("GET")
	r.HandleFunc("/user", s.requireAuth(s.handleUpdateUser)).Methods("PUT")
}

// userRequest is the incoming payload of register and login requests.
type userRequest struct {
	User struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	} `json:"user"`
}

// userResponse wraps a user plus their freshly minted token.
type userResponse struct {
	User struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Bio      string `json:"bio"`
		Image    string `json:"image"`
		Token    string `json:"token"`
	} `json:"user"`
}

func newUserResponse(user *domain.User, token string) *userResponse {
	var resp userResponse
	resp.User.Username = user.Username
	resp.User.Email = user.Email
	resp.User.Bio = user.Bio
	resp.User.Image = user.Image
	resp.User.Token = token
	return &resp
}

// handleRegister handles the route "POST /api/users".
// It creates a new user record and returns it along with a token.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid json body."))
		return
	}
	user := domain.User{
		Username: req.User.Username,
		Email:    req.User.Email,
		Password: req.User.Password,
	}
	if err := s.us.CreateUser(r.Context(), &user); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	token, err := auth.NewToken(s.jwtSecret, user.ID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(newUserResponse(&user, token)); err != nil {
		errs.LogError(r, err)
	}
}

// handleLogin handles the route "POST /api/users/login".
// It authenticates the submitted credentials and returns the user with a token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid json body."))
		return
	}
	user, err := s.us.Authenticate(r.Context(), req.User.Email, req.User.Password)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	token, err := auth.NewToken(s.jwtSecret, user.ID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(newUserResponse(user, token)); err != nil {
		errs.LogError(r, err)
	}
}

// handleCurrentUser handles the route "GET /api/user".
// It returns the authed user's data without minting a new token.
func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user := s.getUserFromContext(r.Context())
	if err := json.NewEncoder(w).Encode(newUserResponse(user, bearerToken(r))); err != nil {
		errs.LogError(r, err)
	}
}

// userUpdateRequest is the incoming payload of settings updates. Nil
// fields are left untouched.
type userUpdateRequest struct {
	User struct {
		Username *string `json:"username"`
		Email    *string `json:"email"`
		Password *string `json:"password"`
		Bio      *string `json:"bio"`
		Image    *string `json:"image"`
	} `json:"user"`
}

// handleUpdateUser handles the route "PUT /api/user".
// It applies the submitted fields to the authed user's record.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req userUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid json body."))
		return
	}
	user := s.getUserFromContext(r.Context())
	if req.User.Username != nil {
		user.Username = *req.User.Username
	}
	if req.User.Email != nil {
		user.Email = *req.User.Email
	}
	if req.User.Password != nil {
		user.Password = *req.User.Password
	}
	if req.User.Bio != nil {
		user.Bio = *req.User.Bio
	}
	if req.User.Image != nil {
		user.Image = *req.User.Image
	}
	if err := s.us.UpdateUser(r.Context(), user); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(newUserResponse(user, bearerToken(r))); err != nil {
		errs.LogError(r, err)
	}
}

// withUser resolves the request's bearer token to a user and stores it in
// the request context. Requests without a valid token simply stay
// anonymous; requireAuth decides whether that's acceptable per route.
func (s *Server) withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		userID, err := auth.ParseToken(s.jwtSecret, token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		user, err := s.us.ByID(r.Context(), userID)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		r = r.WithContext(auth.SetUser(r.Context(), user))
		next.ServeHTTP(w, r)
	})
}

// requireAuth rejects anonymous requests. It assumes the withUser
// middleware has already run.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.getUserFromContext(r.Context()) == nil {
			errs.ReturnError(w, r, errs.Errorf(errs.EUNAUTHORIZED, "You must be logged in to do that."))
			return
		}
		next(w, r)
	}
}

// getUserFromContext returns the authed user set by withUser, or nil.
func (s *Server) getUserFromContext(ctx context.Context) *domain.User {
	return auth.GetUser(ctx)
}

// bearerToken extracts the credential from the Authorization header.
// Both the "Token" scheme (realworld convention) and "Bearer" are accepted.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	for _, scheme := range []string{"Token ", "Bearer "} {
		if strings.HasPrefix(header, scheme) {
			return strings.TrimSpace(strings.TrimPrefix(header, scheme))
		}
	}
	return ""
}
