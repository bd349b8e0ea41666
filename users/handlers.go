package users

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/user/board-go/apperror"
	"github.com/user/board-go/auth"
	"github.com/user/board-go/httpx"
)

// Handlers exposes the user directory over HTTP.
type Handlers struct {
	service *Service
}

// NewHandlers creates Handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

func principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		httpx.WriteError(w, apperror.NewAuthError("authentication required", nil))
		return auth.Principal{}, false
	}
	return *p, true
}

// HandleSignUp creates an account from a username and password.
func (h *Handlers) HandleSignUp() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignUpRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		user, err := h.service.SignUp(r.Context(), req.Username, req.Password)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, user)
	}
}

// HandleAuthenticate verifies credentials and returns a bearer token.
func (h *Handlers) HandleAuthenticate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AuthenticateRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		resp, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, resp)
	}
}

// HandleGetUsers lists accounts, optionally filtered by the query substring.
func (h *Handlers) HandleGetUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := principal(w, r)
		if !ok {
			return
		}

		users, err := h.service.GetUsers(r.Context(), r.URL.Query().Get("query"), caller)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, users)
	}
}

// HandleGetUser returns a single account.
func (h *Handlers) HandleGetUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := principal(w, r)
		if !ok {
			return
		}

		user, err := h.service.GetUser(r.Context(), chi.URLParam(r, "username"), caller)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, user)
	}
}

// HandleUpdateUser applies a partial update to the caller's own account.
func (h *Handlers) HandleUpdateUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := principal(w, r)
		if !ok {
			return
		}

		var patch PatchRequest
		if err := httpx.DecodeJSON(r, &patch); err != nil {
			httpx.WriteError(w, err)
			return
		}

		user, err := h.service.Update(r.Context(), chi.URLParam(r, "username"), patch, caller)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, user)
	}
}

// HandleFollow creates a follow edge from the caller to the named account.
func (h *Handlers) HandleFollow() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := principal(w, r)
		if !ok {
			return
		}

		user, err := h.service.Follow(r.Context(), chi.URLParam(r, "username"), caller)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, user)
	}
}

// HandleUnfollow removes the caller's follow edge to the named account.
func (h *Handlers) HandleUnfollow() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := principal(w, r)
		if !ok {
			return
		}

		user, err := h.service.Unfollow(r.Context(), chi.URLParam(r, "username"), caller)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, user)
	}
}

// HandleGetFollowers lists the named account's followers.
func (h *Handlers) HandleGetFollowers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := principal(w, r)
		if !ok {
			return
		}

		followers, err := h.service.Followers(r.Context(), chi.URLParam(r, "username"), caller)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, followers)
	}
}

// HandleGetFollowings lists the accounts the named account follows.
func (h *Handlers) HandleGetFollowings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := principal(w, r)
		if !ok {
			return
		}

		followings, err := h.service.Followings(r.Context(), chi.URLParam(r, "username"), caller)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, followings)
	}
}

// HandleGetLikedUsersByPost lists the accounts that liked a post.
func (h *Handlers) HandleGetLikedUsersByPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := principal(w, r)
		if !ok {
			return
		}

		postID, err := strconv.ParseInt(chi.URLParam(r, "postId"), 10, 64)
		if err != nil {
			httpx.WriteError(w, apperror.NewBadRequestError("invalid post id", err))
			return
		}

		likedUsers, err := h.service.LikedUsersByPost(r.Context(), postID, caller)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, likedUsers)
	}
}

// HandleGetLikedUsersByUser lists every account that liked any of the named
// account's posts.
func (h *Handlers) HandleGetLikedUsersByUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := principal(w, r)
		if !ok {
			return
		}

		likedUsers, err := h.service.LikedUsersByUser(r.Context(), chi.URLParam(r, "username"), caller)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, likedUsers)
	}
}
