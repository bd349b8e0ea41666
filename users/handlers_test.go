package users

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/user/board-go/apperror"
	"github.com/user/board-go/auth"
)

// newTestRouter wires the user routes the way main does, full authentication
// gate included, over the in-memory store.
func newTestRouter() (*chi.Mux, *Service) {
	svc := newTestService(newFakeStore())
	handlers := NewHandlers(svc)

	r := chi.NewRouter()
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(auth.Middleware(svc.tokens, svc))

		r.Post("/", handlers.HandleSignUp())
		r.Post("/authenticate", handlers.HandleAuthenticate())

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)

			r.Get("/", handlers.HandleGetUsers())
			r.Get("/{username}", handlers.HandleGetUser())
			r.Patch("/{username}", handlers.HandleUpdateUser())
			r.Post("/{username}/follows", handlers.HandleFollow())
			r.Delete("/{username}/follows", handlers.HandleUnfollow())
			r.Get("/{username}/followers", handlers.HandleGetFollowers())
		})
	})
	return r, svc
}

func doJSON(t *testing.T, router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func authenticate(t *testing.T, router http.Handler, username string) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/v1/users/authenticate", "",
		`{"username":"`+username+`","password":"password"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticate %s: status = %d, body = %s", username, rec.Code, rec.Body.String())
	}
	var resp AuthenticateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	return resp.AccessToken
}

func TestSignUpAndAuthenticateFlow(t *testing.T) {
	router, _ := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/users", "",
		`{"username":"alice","password":"password"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("sign up: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created User
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Username != "alice" || created.UserID == 0 {
		t.Fatalf("created = %+v", created)
	}

	// Same username again conflicts.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/users", "",
		`{"username":"alice","password":"other"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate sign up: status = %d", rec.Code)
	}
	var errBody apperror.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &errBody); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if errBody.Error == "" {
		t.Fatalf("error payload should carry a message")
	}

	token := authenticate(t, router, "alice")

	rec = doJSON(t, router, http.MethodGet, "/api/v1/users/alice", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get user: status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router, _ := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/api/v1/users", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/users", "not-a-token", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestFollowOverHTTP(t *testing.T) {
	router, _ := newTestRouter()

	for _, username := range []string{"alice", "bob"} {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/users", "",
			`{"username":"`+username+`","password":"password"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("sign up %s: status = %d", username, rec.Code)
		}
	}
	token := authenticate(t, router, "alice")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/users/bob/follows", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("follow: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var followed User
	if err := json.Unmarshal(rec.Body.Bytes(), &followed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if followed.FollowersCount != 1 || followed.IsFollowing == nil || !*followed.IsFollowing {
		t.Fatalf("followed = %+v", followed)
	}

	// Following again conflicts; self-follow is a bad request.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/users/bob/follows", token, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("double follow: status = %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodPost, "/api/v1/users/alice/follows", token, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("self follow: status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/users/bob/followers", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("followers: status = %d", rec.Code)
	}
	var followers []Follower
	if err := json.Unmarshal(rec.Body.Bytes(), &followers); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(followers) != 1 || followers[0].Username != "alice" {
		t.Fatalf("followers = %+v", followers)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/users/bob/follows", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unfollow: status = %d", rec.Code)
	}
	var unfollowed User
	if err := json.Unmarshal(rec.Body.Bytes(), &unfollowed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if unfollowed.FollowersCount != 0 {
		t.Fatalf("followers count = %d, want 0", unfollowed.FollowersCount)
	}
}
