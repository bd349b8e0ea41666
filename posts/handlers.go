package posts

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/user/board-go/apperror"
	"github.com/user/board-go/auth"
	"github.com/user/board-go/httpx"
)

// Handlers exposes the post ledger over HTTP.
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

func postID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		httpx.WriteError(w, apperror.NewBadRequestError("invalid post id", err))
		return 0, false
	}
	return id, true
}

// HandleGetPosts lists every post.
func (h *Handlers) HandleGetPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := principal(w, r)
		if !ok {
			return
		}

		posts, err := h.service.GetPosts(r.Context(), caller)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, posts)
	}
}

// HandleGetPost returns a single post.
func (h *Handlers) HandleGetPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := principal(w, r)
		if !ok {
			return
		}
		id, ok := postID(w, r, "postId")
		if !ok {
			return
		}

		post, err := h.service.GetPost(r.Context(), id, caller)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, post)
	}
}

// HandleCreatePost creates a post owned by the caller.
func (h *Handlers) HandleCreatePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := principal(w, r)
		if !ok {
			return
		}

		var req CreateRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		post, err := h.service.Create(r.Context(), req.Body, caller)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, post)
	}
}

// HandleUpdatePost replaces the body of the caller's own post.
func (h *Handlers) HandleUpdatePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := principal(w, r)
		if !ok {
			return
		}
		id, ok := postID(w, r, "postId")
		if !ok {
			return
		}

		var req PatchRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		post, err := h.service.Update(r.Context(), id, req.Body, caller)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, post)
	}
}

// HandleDeletePost soft-deletes the caller's own post.
func (h *Handlers) HandleDeletePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := principal(w, r)
		if !ok {
			return
		}
		id, ok := postID(w, r, "postId")
		if !ok {
			return
		}

		if err := h.service.Delete(r.Context(), id, caller); err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.NoContent(w)
	}
}

// HandleToggleLike flips the caller's like on a post.
func (h *Handlers) HandleToggleLike() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := principal(w, r)
		if !ok {
			return
		}
		id, ok := postID(w, r, "postId")
		if !ok {
			return
		}

		post, err := h.service.ToggleLike(r.Context(), id, caller)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, post)
	}
}

// HandleGetPostsByUsername lists the named account's posts.
func (h *Handlers) HandleGetPostsByUsername() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := principal(w, r)
		if !ok {
			return
		}

		posts, err := h.service.GetPostsByUsername(r.Context(), chi.URLParam(r, "username"), caller)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, posts)
	}
}
