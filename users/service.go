package users

import (
	"context"
	"fmt"
	"math/rand"

	"golang.org/x/crypto/bcrypt"

	"github.com/user/board-go/apperror"
	"github.com/user/board-go/auth"
)

// Service holds the user directory's business logic: sign-up and
// authentication, profile reads and updates, follow edges, and the
// liked-user fan-outs. Ownership and self-follow rules live here; persistence
// and counter bookkeeping live in the Store.
type Service struct {
	store  Store
	tokens *auth.TokenService
}

// NewService creates a Service.
func NewService(store Store, tokens *auth.TokenService) *Service {
	return &Service{store: store, tokens: tokens}
}

// SignUp creates a new account with a bcrypt-hashed password and a randomly
// assigned profile image. It fails with a conflict when the username is
// taken.
func (s *Service) SignUp(ctx context.Context, username, password string) (*User, error) {
	if username == "" || password == "" {
		return nil, apperror.NewValidationError("username and password are required", nil)
	}

	_, err := s.store.AccountByUsername(ctx, username)
	if err == nil {
		return nil, apperror.NewConflictError(fmt.Sprintf("username %q already exists", username), nil)
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.NewInternalError("failed to hash password", err)
	}

	profile := fmt.Sprintf("https://avatar.iran.liara.run/public/%d", rand.Intn(100))
	rec, err := s.store.CreateAccount(ctx, username, string(hashed), profile)
	if err != nil {
		return nil, err
	}

	u := UserFrom(rec)
	return &u, nil
}

// Authenticate verifies the credentials and returns a freshly issued bearer
// token. An unknown username surfaces as not-found; a wrong password as an
// authentication failure.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*AuthenticateResponse, error) {
	rec, err := s.store.AccountByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)); err != nil {
		return nil, apperror.NewAuthError("invalid credentials", nil)
	}

	token, err := s.tokens.Issue(rec.Username)
	if err != nil {
		return nil, err
	}
	return &AuthenticateResponse{AccessToken: token}, nil
}

// PrincipalByUsername resolves a token subject to its account. It implements
// auth.PrincipalSource for the authentication gate.
func (s *Service) PrincipalByUsername(ctx context.Context, username string) (*auth.Principal, error) {
	rec, err := s.store.AccountByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return &auth.Principal{ID: rec.ID, Username: rec.Username}, nil
}

func (s *Service) userWithFollowStatus(ctx context.Context, rec *AccountRecord, caller auth.Principal) (User, error) {
	isFollowing, err := s.store.HasFollow(ctx, caller.ID, rec.ID)
	if err != nil {
		return User{}, err
	}
	return UserWithFollowing(rec, isFollowing), nil
}

// GetUsers lists every account, or those whose username contains query, each
// annotated with the caller's follow status.
func (s *Service) GetUsers(ctx context.Context, query string, caller auth.Principal) ([]User, error) {
	recs, err := s.store.Accounts(ctx, query)
	if err != nil {
		return nil, err
	}

	result := make([]User, 0, len(recs))
	for i := range recs {
		u, err := s.userWithFollowStatus(ctx, &recs[i], caller)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, nil
}

// GetUser returns a single account annotated with the caller's follow status.
func (s *Service) GetUser(ctx context.Context, username string, caller auth.Principal) (*User, error) {
	rec, err := s.store.AccountByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	u, err := s.userWithFollowStatus(ctx, rec, caller)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Update applies the non-nil fields of patch to the named account. Only the
// account owner may update it.
func (s *Service) Update(ctx context.Context, username string, patch PatchRequest, caller auth.Principal) (*User, error) {
	rec, err := s.store.AccountByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if rec.ID != caller.ID {
		return nil, apperror.NewForbiddenError("cannot update another user's account", nil)
	}

	if patch.Description != nil {
		rec, err = s.store.UpdateDescription(ctx, rec.ID, *patch.Description)
		if err != nil {
			return nil, err
		}
	}

	u := UserFrom(rec)
	return &u, nil
}

// Follow creates a follow edge from the caller to the named account and
// returns the followed account with its refreshed counters.
func (s *Service) Follow(ctx context.Context, username string, caller auth.Principal) (*User, error) {
	target, err := s.store.AccountByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.ID == caller.ID {
		return nil, apperror.NewBadRequestError("a user cannot follow themselves", nil)
	}

	exists, err := s.store.HasFollow(ctx, caller.ID, target.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.NewConflictError(fmt.Sprintf("already following %q", username), nil)
	}

	followed, err := s.store.CreateFollow(ctx, caller.ID, target.ID)
	if err != nil {
		return nil, err
	}
	u := UserWithFollowing(followed, true)
	return &u, nil
}

// Unfollow removes the caller's follow edge to the named account.
func (s *Service) Unfollow(ctx context.Context, username string, caller auth.Principal) (*User, error) {
	target, err := s.store.AccountByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.ID == caller.ID {
		return nil, apperror.NewBadRequestError("a user cannot unfollow themselves", nil)
	}

	followed, err := s.store.DeleteFollow(ctx, caller.ID, target.ID)
	if err != nil {
		return nil, err
	}
	u := UserWithFollowing(followed, false)
	return &u, nil
}

// Followers lists the accounts following the named account, each annotated
// with the caller's own follow status toward that follower and the time the
// edge was created.
func (s *Service) Followers(ctx context.Context, username string, caller auth.Principal) ([]Follower, error) {
	rec, err := s.store.AccountByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	edges, err := s.store.Followers(ctx, rec.ID)
	if err != nil {
		return nil, err
	}

	result := make([]Follower, 0, len(edges))
	for i := range edges {
		u, err := s.userWithFollowStatus(ctx, &edges[i].Account, caller)
		if err != nil {
			return nil, err
		}
		result = append(result, Follower{User: u, FollowedDateTime: edges[i].FollowedDateTime})
	}
	return result, nil
}

// Followings lists the accounts the named account follows, annotated with
// the caller's follow status.
func (s *Service) Followings(ctx context.Context, username string, caller auth.Principal) ([]User, error) {
	rec, err := s.store.AccountByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	edges, err := s.store.Followings(ctx, rec.ID)
	if err != nil {
		return nil, err
	}

	result := make([]User, 0, len(edges))
	for i := range edges {
		u, err := s.userWithFollowStatus(ctx, &edges[i].Account, caller)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, nil
}

func (s *Service) likedUsers(ctx context.Context, edges []LikeEdge, caller auth.Principal) ([]LikedUser, error) {
	result := make([]LikedUser, 0, len(edges))
	for i := range edges {
		u, err := s.userWithFollowStatus(ctx, &edges[i].Account, caller)
		if err != nil {
			return nil, err
		}
		result = append(result, LikedUser{
			User:          u,
			LikedPostID:   edges[i].PostID,
			LikedDateTime: edges[i].LikedDateTime,
		})
	}
	return result, nil
}

// LikedUsersByPost lists the accounts that liked the given post.
func (s *Service) LikedUsersByPost(ctx context.Context, postID int64, caller auth.Principal) ([]LikedUser, error) {
	exists, err := s.store.PostExists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.NewNotFoundError(fmt.Sprintf("post %d not found", postID), nil)
	}

	edges, err := s.store.LikesByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return s.likedUsers(ctx, edges, caller)
}

// LikedUsersByUser lists every account that liked any post owned by the
// named account.
func (s *Service) LikedUsersByUser(ctx context.Context, username string, caller auth.Principal) ([]LikedUser, error) {
	rec, err := s.store.AccountByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	edges, err := s.store.LikesByAccountPosts(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	return s.likedUsers(ctx, edges, caller)
}
