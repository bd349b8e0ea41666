package posts

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/user/board-go/apperror"
	"github.com/user/board-go/auth"
	"github.com/user/board-go/users"
)

type likeKey struct {
	accountID, postID int64
}

// fakeStore is an in-memory Store with the same soft-delete and counter
// semantics as the real one.
type fakeStore struct {
	nextID   int64
	records  map[int64]*PostRecord
	deleted  map[int64]bool
	likes    map[likeKey]bool
	accounts map[string]*users.AccountRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:  make(map[int64]*PostRecord),
		deleted:  make(map[int64]bool),
		likes:    make(map[likeKey]bool),
		accounts: make(map[string]*users.AccountRecord),
	}
}

func (f *fakeStore) addAccount(id int64, username string) *users.AccountRecord {
	now := time.Now().UTC()
	rec := &users.AccountRecord{ID: id, Username: username, CreatedDateTime: now, UpdatedDateTime: now}
	f.accounts[username] = rec
	return rec
}

func (f *fakeStore) AccountByUsername(_ context.Context, username string) (*users.AccountRecord, error) {
	rec, ok := f.accounts[username]
	if !ok {
		return nil, apperror.NewNotFoundError(fmt.Sprintf("user %q not found", username), nil)
	}
	return rec, nil
}

func (f *fakeStore) Posts(_ context.Context) ([]PostRecord, error) {
	var recs []PostRecord
	for id, rec := range f.records {
		if !f.deleted[id] {
			recs = append(recs, *rec)
		}
	}
	return recs, nil
}

func (f *fakeStore) PostByID(_ context.Context, id int64) (*PostRecord, error) {
	rec, ok := f.records[id]
	if !ok || f.deleted[id] {
		return nil, apperror.NewNotFoundError(fmt.Sprintf("post %d not found", id), nil)
	}
	return rec, nil
}

func (f *fakeStore) CreatePost(_ context.Context, accountID int64, body string) (*PostRecord, error) {
	var account *users.AccountRecord
	for _, a := range f.accounts {
		if a.ID == accountID {
			account = a
		}
	}
	if account == nil {
		return nil, apperror.NewNotFoundError("account not found", nil)
	}
	f.nextID++
	now := time.Now().UTC()
	rec := &PostRecord{
		ID:              f.nextID,
		Body:            body,
		Account:         *account,
		CreatedDateTime: now,
		UpdatedDateTime: now,
	}
	f.records[rec.ID] = rec
	return rec, nil
}

func (f *fakeStore) UpdateBody(ctx context.Context, id int64, body string) (*PostRecord, error) {
	rec, err := f.PostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Body = body
	rec.UpdatedDateTime = time.Now().UTC()
	return rec, nil
}

func (f *fakeStore) SoftDelete(ctx context.Context, id int64) error {
	if _, err := f.PostByID(ctx, id); err != nil {
		return err
	}
	f.deleted[id] = true
	return nil
}

func (f *fakeStore) PostsByAccount(_ context.Context, accountID int64) ([]PostRecord, error) {
	var recs []PostRecord
	for id, rec := range f.records {
		if rec.Account.ID == accountID && !f.deleted[id] {
			recs = append(recs, *rec)
		}
	}
	return recs, nil
}

func (f *fakeStore) HasLike(_ context.Context, accountID, postID int64) (bool, error) {
	return f.likes[likeKey{accountID, postID}], nil
}

func (f *fakeStore) ToggleLike(ctx context.Context, accountID, postID int64) (*PostRecord, bool, error) {
	rec, err := f.PostByID(ctx, postID)
	if err != nil {
		return nil, false, err
	}
	key := likeKey{accountID, postID}
	if f.likes[key] {
		delete(f.likes, key)
		if rec.LikesCount > 0 {
			rec.LikesCount--
		}
		return rec, false, nil
	}
	f.likes[key] = true
	rec.LikesCount++
	return rec, true, nil
}

func newTestService(t *testing.T) (*Service, *fakeStore, auth.Principal, auth.Principal) {
	t.Helper()
	store := newFakeStore()
	store.addAccount(1, "alice")
	store.addAccount(2, "bob")
	svc := NewService(store, store)
	return svc, store, auth.Principal{ID: 1, Username: "alice"}, auth.Principal{ID: 2, Username: "bob"}
}

func TestCreatePost(t *testing.T) {
	svc, _, alice, _ := newTestService(t)

	p, err := svc.Create(context.Background(), "hello world", alice)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Body != "hello world" || p.User.Username != "alice" {
		t.Fatalf("post = %+v", p)
	}
	if p.RepliesCount != 0 || p.LikesCount != 0 {
		t.Fatalf("fresh post should have zero counters")
	}
}

func TestCreatePostEmptyBody(t *testing.T) {
	svc, _, alice, _ := newTestService(t)

	if _, err := svc.Create(context.Background(), "", alice); err == nil {
		t.Fatalf("expected validation error for empty body")
	}
}

func TestGetPostAnnotatesLikeStatus(t *testing.T) {
	svc, _, alice, bob := newTestService(t)

	created, err := svc.Create(context.Background(), "hello", alice)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	p, err := svc.GetPost(context.Background(), created.PostID, bob)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.IsLiking == nil || *p.IsLiking {
		t.Fatalf("unliked post should report isLiking=false")
	}
}

func TestUpdatePostOwnership(t *testing.T) {
	svc, _, alice, bob := newTestService(t)

	created, err := svc.Create(context.Background(), "hello", alice)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(context.Background(), created.PostID, "edited", alice)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Body != "edited" {
		t.Fatalf("body = %q", updated.Body)
	}

	if _, err := svc.Update(context.Background(), created.PostID, "hijack", bob); !apperror.IsForbidden(err) {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}
}

func TestDeletePost(t *testing.T) {
	svc, _, alice, bob := newTestService(t)

	created, err := svc.Create(context.Background(), "hello", alice)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(context.Background(), created.PostID, bob); !apperror.IsForbidden(err) {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}

	if err := svc.Delete(context.Background(), created.PostID, alice); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// A soft-deleted post reads as missing, even for its owner.
	if _, err := svc.GetPost(context.Background(), created.PostID, alice); !apperror.IsNotFound(err) {
		t.Fatalf("expected NotFoundError after delete, got %v", err)
	}
	if _, err := svc.Update(context.Background(), created.PostID, "late edit", alice); !apperror.IsNotFound(err) {
		t.Fatalf("expected NotFoundError after delete, got %v", err)
	}
	if _, err := svc.ToggleLike(context.Background(), created.PostID, bob); !apperror.IsNotFound(err) {
		t.Fatalf("expected NotFoundError after delete, got %v", err)
	}
}

func TestToggleLike(t *testing.T) {
	svc, _, alice, bob := newTestService(t)

	created, err := svc.Create(context.Background(), "hello", alice)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	liked, err := svc.ToggleLike(context.Background(), created.PostID, bob)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if liked.LikesCount != 1 {
		t.Fatalf("likes = %d, want 1", liked.LikesCount)
	}
	if liked.IsLiking == nil || !*liked.IsLiking {
		t.Fatalf("first toggle should report isLiking=true")
	}

	// A second toggle undoes the first.
	unliked, err := svc.ToggleLike(context.Background(), created.PostID, bob)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if unliked.LikesCount != 0 {
		t.Fatalf("likes = %d, want 0", unliked.LikesCount)
	}
	if unliked.IsLiking == nil || *unliked.IsLiking {
		t.Fatalf("second toggle should report isLiking=false")
	}
}

func TestGetPostsByUsername(t *testing.T) {
	svc, _, alice, bob := newTestService(t)

	if _, err := svc.Create(context.Background(), "first", alice); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(context.Background(), "second", alice); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(context.Background(), "other", bob); err != nil {
		t.Fatalf("create: %v", err)
	}

	mine, err := svc.GetPostsByUsername(context.Background(), "alice", bob)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("len = %d, want 2", len(mine))
	}

	if _, err := svc.GetPostsByUsername(context.Background(), "nobody", bob); !apperror.IsNotFound(err) {
		t.Fatalf("expected NotFoundError for unknown user, got %v", err)
	}
}
