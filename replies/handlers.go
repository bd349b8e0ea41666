package replies

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/user/board-go/apperror"
	"github.com/user/board-go/auth"
	"github.com/user/board-go/httpx"
)

// Handlers exposes the reply ledger over HTTP.
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

func pathID(w http.ResponseWriter, r *http.Request, param, what string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		httpx.WriteError(w, apperror.NewBadRequestError("invalid "+what+" id", err))
		return 0, false
	}
	return id, true
}

// HandleGetReplies lists a post's replies.
func (h *Handlers) HandleGetReplies() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, ok := pathID(w, r, "postId", "post")
		if !ok {
			return
		}

		replies, err := h.service.GetRepliesByPost(r.Context(), postID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, replies)
	}
}

// HandleCreateReply creates a reply under a post.
func (h *Handlers) HandleCreateReply() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := principal(w, r)
		if !ok {
			return
		}
		postID, ok := pathID(w, r, "postId", "post")
		if !ok {
			return
		}

		var req CreateRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		reply, err := h.service.Create(r.Context(), postID, req.Body, caller)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, reply)
	}
}

// HandleUpdateReply replaces the body of the caller's own reply.
func (h *Handlers) HandleUpdateReply() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := principal(w, r)
		if !ok {
			return
		}
		postID, ok := pathID(w, r, "postId", "post")
		if !ok {
			return
		}
		replyID, ok := pathID(w, r, "replyId", "reply")
		if !ok {
			return
		}

		var req PatchRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		reply, err := h.service.Update(r.Context(), postID, replyID, req.Body, caller)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, reply)
	}
}

// HandleDeleteReply soft-deletes the caller's own reply.
func (h *Handlers) HandleDeleteReply() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := principal(w, r)
		if !ok {
			return
		}
		postID, ok := pathID(w, r, "postId", "post")
		if !ok {
			return
		}
		replyID, ok := pathID(w, r, "replyId", "reply")
		if !ok {
			return
		}

		if err := h.service.Delete(r.Context(), postID, replyID, caller); err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.NoContent(w)
	}
}

// HandleGetRepliesByUsername lists every reply authored by the named account.
func (h *Handlers) HandleGetRepliesByUsername() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		replies, err := h.service.GetRepliesByUser(r.Context(), chi.URLParam(r, "username"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, replies)
	}
}
