package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"conduit/auth"
	"conduit/domain"
	"conduit/errs"
)

// registerProfileRoutes is a helper for registering all profile routes.
func (s *Server) registerProfileRoutes(r *mux.Router) {
	// Get the public profile of a user.
	r.HandleFunc("/profiles/{username}", s.handleGetProfile).Methods("GET")

	// Follow or unfollow a user.
	r.HandleFunc("/profiles/{username}/follow", s.requireAuth(s.handleFollow)).Methods("POST")
	r.HandleFunc("/profiles/{username}/follow", s.requireAuth(s.handleUnfollow)).Methods("DELETE")
}

// profileResponse wraps a profile view.
type profileResponse struct {
	Profile *domain.Profile `json:"profile"`
}

// handleGetProfile handles the route "GET /api/profiles/{username}".
// The following flag is computed relative to the authed user; anonymous
// viewers always see false.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	profile, err := s.fls.ProfileByUsername(r.Context(), auth.GetUserID(r.Context()), username)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(&profileResponse{Profile: profile}); err != nil {
		errs.LogError(r, err)
	}
}

// handleFollow handles the route "POST /api/profiles/{username}/follow".
func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	profile, err := s.fls.Follow(r.Context(), auth.GetUserID(r.Context()), username)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(&profileResponse{Profile: profile}); err != nil {
		errs.LogError(r, err)
	}
}

// handleUnfollow handles the route "DELETE /api/profiles/{username}/follow".
func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	profile, err := s.fls.Unfollow(r.Context(), auth.GetUserID(r.Context()), username)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(&profileResponse{Profile: profile}); err != nil {
		errs.LogError(r, err)
	}
}
