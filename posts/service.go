package posts

import (
	"context"

	"github.com/user/board-go/apperror"
	"github.com/user/board-go/auth"
	"github.com/user/board-go/users"
)

// AccountSource resolves usernames to account records. The user store
// satisfies it; the narrow interface keeps the post ledger from depending on
// the whole user directory.
type AccountSource interface {
	AccountByUsername(ctx context.Context, username string) (*users.AccountRecord, error)
}

// Service holds the post ledger's business logic. Ownership checks live
// here; persistence, counters and the like-toggle transaction live in the
// Store.
type Service struct {
	store    Store
	accounts AccountSource
}

// NewService creates a Service.
func NewService(store Store, accounts AccountSource) *Service {
	return &Service{store: store, accounts: accounts}
}

func (s *Service) postWithLikeStatus(ctx context.Context, rec *PostRecord, caller auth.Principal) (Post, error) {
	isLiking, err := s.store.HasLike(ctx, caller.ID, rec.ID)
	if err != nil {
		return Post{}, err
	}
	return PostWithLiking(rec, isLiking), nil
}

// GetPosts lists every post, newest first, annotated with the caller's like
// status.
func (s *Service) GetPosts(ctx context.Context, caller auth.Principal) ([]Post, error) {
	recs, err := s.store.Posts(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Post, 0, len(recs))
	for i := range recs {
		p, err := s.postWithLikeStatus(ctx, &recs[i], caller)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, nil
}

// GetPost returns one post annotated with the caller's like status.
func (s *Service) GetPost(ctx context.Context, id int64, caller auth.Principal) (*Post, error) {
	rec, err := s.store.PostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.postWithLikeStatus(ctx, rec, caller)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create persists a new post owned by the caller, with both counters at
// zero.
func (s *Service) Create(ctx context.Context, body string, caller auth.Principal) (*Post, error) {
	if body == "" {
		return nil, apperror.NewValidationError("post body is required", nil)
	}

	rec, err := s.store.CreatePost(ctx, caller.ID, body)
	if err != nil {
		return nil, err
	}
	p := PostFrom(rec)
	return &p, nil
}

// Update replaces the post's body. Only the post's owner may update it.
func (s *Service) Update(ctx context.Context, id int64, body string, caller auth.Principal) (*Post, error) {
	rec, err := s.store.PostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Account.ID != caller.ID {
		return nil, apperror.NewForbiddenError("cannot update another user's post", nil)
	}

	updated, err := s.store.UpdateBody(ctx, id, body)
	if err != nil {
		return nil, err
	}
	p := PostFrom(updated)
	return &p, nil
}

// Delete soft-deletes the post. Only the post's owner may delete it.
func (s *Service) Delete(ctx context.Context, id int64, caller auth.Principal) error {
	rec, err := s.store.PostByID(ctx, id)
	if err != nil {
		return err
	}
	if rec.Account.ID != caller.ID {
		return apperror.NewForbiddenError("cannot delete another user's post", nil)
	}
	return s.store.SoftDelete(ctx, id)
}

// ToggleLike flips the caller's like on the post and returns the post with
// its refreshed counter and like status.
func (s *Service) ToggleLike(ctx context.Context, id int64, caller auth.Principal) (*Post, error) {
	rec, liked, err := s.store.ToggleLike(ctx, caller.ID, id)
	if err != nil {
		return nil, err
	}
	p := PostWithLiking(rec, liked)
	return &p, nil
}

// GetPostsByUsername lists the named account's posts annotated with the
// caller's like status.
func (s *Service) GetPostsByUsername(ctx context.Context, username string, caller auth.Principal) ([]Post, error) {
	account, err := s.accounts.AccountByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	recs, err := s.store.PostsByAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	result := make([]Post, 0, len(recs))
	for i := range recs {
		p, err := s.postWithLikeStatus(ctx, &recs[i], caller)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, nil
}
