package replies

import (
	"context"
	"fmt"

	"github.com/user/board-go/apperror"
	"github.com/user/board-go/auth"
	"github.com/user/board-go/users"
)

// AccountSource resolves usernames to account records; the user store
// satisfies it.
type AccountSource interface {
	AccountByUsername(ctx context.Context, username string) (*users.AccountRecord, error)
}

// Service holds the reply ledger's business logic. The post id on update and
// delete is a validity guard only: replies are looked up by their own id, but
// mutating a reply under a vanished post makes no sense and fails with
// NotFound.
type Service struct {
	store    Store
	accounts AccountSource
}

// NewService creates a Service.
func NewService(store Store, accounts AccountSource) *Service {
	return &Service{store: store, accounts: accounts}
}

func (s *Service) requirePost(ctx context.Context, postID int64) error {
	exists, err := s.store.PostExists(ctx, postID)
	if err != nil {
		return err
	}
	if !exists {
		return apperror.NewNotFoundError(fmt.Sprintf("post %d not found", postID), nil)
	}
	return nil
}

// GetRepliesByPost lists a post's replies, oldest first.
func (s *Service) GetRepliesByPost(ctx context.Context, postID int64) ([]Reply, error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}

	recs, err := s.store.RepliesByPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	result := make([]Reply, 0, len(recs))
	for i := range recs {
		result = append(result, ReplyFrom(&recs[i]))
	}
	return result, nil
}

// Create persists a reply owned by the caller under the post and increments
// the post's reply counter.
func (s *Service) Create(ctx context.Context, postID int64, body string, caller auth.Principal) (*Reply, error) {
	if body == "" {
		return nil, apperror.NewValidationError("reply body is required", nil)
	}

	rec, err := s.store.CreateReply(ctx, postID, caller.ID, body)
	if err != nil {
		return nil, err
	}
	reply := ReplyFrom(rec)
	return &reply, nil
}

// Update replaces the reply's body. Only the reply's owner may update it.
func (s *Service) Update(ctx context.Context, postID, replyID int64, body string, caller auth.Principal) (*Reply, error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}

	rec, err := s.store.ReplyByID(ctx, replyID)
	if err != nil {
		return nil, err
	}
	if rec.Account.ID != caller.ID {
		return nil, apperror.NewForbiddenError("cannot update another user's reply", nil)
	}

	updated, err := s.store.UpdateBody(ctx, replyID, body)
	if err != nil {
		return nil, err
	}
	reply := ReplyFrom(updated)
	return &reply, nil
}

// Delete soft-deletes the reply and decrements the post's reply counter.
// Only the reply's owner may delete it.
func (s *Service) Delete(ctx context.Context, postID, replyID int64, caller auth.Principal) error {
	if err := s.requirePost(ctx, postID); err != nil {
		return err
	}

	rec, err := s.store.ReplyByID(ctx, replyID)
	if err != nil {
		return err
	}
	if rec.Account.ID != caller.ID {
		return apperror.NewForbiddenError("cannot delete another user's reply", nil)
	}

	return s.store.SoftDeleteReply(ctx, replyID, postID)
}

// GetRepliesByUser lists every reply authored by the named account.
func (s *Service) GetRepliesByUser(ctx context.Context, username string) ([]Reply, error) {
	account, err := s.accounts.AccountByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	recs, err := s.store.RepliesByAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	result := make([]Reply, 0, len(recs))
	for i := range recs {
		result = append(result, ReplyFrom(&recs[i]))
	}
	return result, nil
}
