package posts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/board-go/apperror"
	"github.com/user/board-go/users"
)

// PostRecord is a post row joined with its owning account.
type PostRecord struct {
	ID              int64
	Body            string
	RepliesCount    int64
	LikesCount      int64
	Account         users.AccountRecord
	CreatedDateTime time.Time
	UpdatedDateTime time.Time
}

// Store is the persistence boundary of the post ledger. Soft-deleted posts
// are invisible to every method, and ToggleLike is atomic per post.
type Store interface {
	Posts(ctx context.Context) ([]PostRecord, error)
	PostByID(ctx context.Context, id int64) (*PostRecord, error)
	CreatePost(ctx context.Context, accountID int64, body string) (*PostRecord, error)
	UpdateBody(ctx context.Context, id int64, body string) (*PostRecord, error)
	SoftDelete(ctx context.Context, id int64) error
	PostsByAccount(ctx context.Context, accountID int64) ([]PostRecord, error)

	HasLike(ctx context.Context, accountID, postID int64) (bool, error)
	ToggleLike(ctx context.Context, accountID, postID int64) (*PostRecord, bool, error)
}

// PgStore implements Store on a pgx connection pool.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

const postSelect = `SELECT p.post_id, p.body, p.replies_count, p.likes_count,
		p.created_datetime, p.updated_datetime,
		a.account_id, a.username, a.password, a.profile, a.description,
		a.followers_count, a.followings_count, a.created_datetime, a.updated_datetime
	FROM post p
	JOIN "account" a ON a.account_id = p.account_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*PostRecord, error) {
	var rec PostRecord
	err := row.Scan(
		&rec.ID,
		&rec.Body,
		&rec.RepliesCount,
		&rec.LikesCount,
		&rec.CreatedDateTime,
		&rec.UpdatedDateTime,
		&rec.Account.ID,
		&rec.Account.Username,
		&rec.Account.PasswordHash,
		&rec.Account.Profile,
		&rec.Account.Description,
		&rec.Account.FollowersCount,
		&rec.Account.FollowingsCount,
		&rec.Account.CreatedDateTime,
		&rec.Account.UpdatedDateTime,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *PgStore) queryPosts(ctx context.Context, query string, args ...any) ([]PostRecord, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list posts", err)
	}
	defer rows.Close()

	var recs []PostRecord
	for rows.Next() {
		rec, err := scanPost(rows)
		if err != nil {
			return nil, apperror.NewDatabaseError("failed to scan post", err)
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to list posts", err)
	}
	return recs, nil
}

func (s *PgStore) Posts(ctx context.Context) ([]PostRecord, error) {
	query := postSelect + `
		WHERE p.deleted_datetime IS NULL
		ORDER BY p.created_datetime DESC`
	return s.queryPosts(ctx, query)
}

func (s *PgStore) PostByID(ctx context.Context, id int64) (*PostRecord, error) {
	query := postSelect + `
		WHERE p.post_id = $1 AND p.deleted_datetime IS NULL`
	rec, err := scanPost(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError(fmt.Sprintf("post %d not found", id), nil)
		}
		return nil, apperror.NewDatabaseError("failed to get post", err)
	}
	return rec, nil
}

func (s *PgStore) CreatePost(ctx context.Context, accountID int64, body string) (*PostRecord, error) {
	now := time.Now().UTC()
	var id int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO post (body, account_id, created_datetime, updated_datetime)
		 VALUES ($1, $2, $3, $3)
		 RETURNING post_id`, body, accountID, now).Scan(&id)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to create post", err)
	}
	return s.PostByID(ctx, id)
}

func (s *PgStore) UpdateBody(ctx context.Context, id int64, body string) (*PostRecord, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE post SET body = $2, updated_datetime = $3
		 WHERE post_id = $1 AND deleted_datetime IS NULL`,
		id, body, time.Now().UTC())
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to update post", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperror.NewNotFoundError(fmt.Sprintf("post %d not found", id), nil)
	}
	return s.PostByID(ctx, id)
}

// SoftDelete marks the post deleted; the row stays and every read filters
// it out.
func (s *PgStore) SoftDelete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE post SET deleted_datetime = $2
		 WHERE post_id = $1 AND deleted_datetime IS NULL`,
		id, time.Now().UTC())
	if err != nil {
		return apperror.NewDatabaseError("failed to delete post", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFoundError(fmt.Sprintf("post %d not found", id), nil)
	}
	return nil
}

func (s *PgStore) PostsByAccount(ctx context.Context, accountID int64) ([]PostRecord, error) {
	query := postSelect + `
		WHERE p.account_id = $1 AND p.deleted_datetime IS NULL
		ORDER BY p.created_datetime DESC`
	return s.queryPosts(ctx, query, accountID)
}

func (s *PgStore) HasLike(ctx context.Context, accountID, postID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (
		SELECT 1 FROM "like" WHERE account_id = $1 AND post_id = $2
	)`
	if err := s.db.QueryRow(ctx, query, accountID, postID).Scan(&exists); err != nil {
		return false, apperror.NewDatabaseError("failed to check like", err)
	}
	return exists, nil
}

// ToggleLike flips the caller's like on a post. The whole read-modify-write
// runs in one transaction with the post row locked, so concurrent toggles
// cannot lose counter updates. It returns the refreshed post and whether the
// caller likes it afterwards.
func (s *PgStore) ToggleLike(ctx context.Context, accountID, postID int64) (*PostRecord, bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, false, apperror.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	var lockedID int64
	err = tx.QueryRow(ctx,
		`SELECT post_id FROM post
		 WHERE post_id = $1 AND deleted_datetime IS NULL
		 FOR UPDATE`, postID).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, apperror.NewNotFoundError(fmt.Sprintf("post %d not found", postID), nil)
		}
		return nil, false, apperror.NewDatabaseError("failed to lock post", err)
	}

	now := time.Now().UTC()
	var liked bool

	var likeID int64
	err = tx.QueryRow(ctx,
		`SELECT like_id FROM "like" WHERE account_id = $1 AND post_id = $2`,
		accountID, postID).Scan(&likeID)
	switch {
	case err == nil:
		if _, err := tx.Exec(ctx, `DELETE FROM "like" WHERE like_id = $1`, likeID); err != nil {
			return nil, false, apperror.NewDatabaseError("failed to remove like", err)
		}
		_, err = tx.Exec(ctx,
			`UPDATE post SET likes_count = GREATEST(likes_count - 1, 0), updated_datetime = $2
			 WHERE post_id = $1`, postID, now)
		if err != nil {
			return nil, false, apperror.NewDatabaseError("failed to update like count", err)
		}
		liked = false
	case errors.Is(err, pgx.ErrNoRows):
		_, err = tx.Exec(ctx,
			`INSERT INTO "like" (account_id, post_id, created_datetime) VALUES ($1, $2, $3)`,
			accountID, postID, now)
		if err != nil {
			return nil, false, apperror.NewDatabaseError("failed to create like", err)
		}
		_, err = tx.Exec(ctx,
			`UPDATE post SET likes_count = likes_count + 1, updated_datetime = $2
			 WHERE post_id = $1`, postID, now)
		if err != nil {
			return nil, false, apperror.NewDatabaseError("failed to update like count", err)
		}
		liked = true
	default:
		return nil, false, apperror.NewDatabaseError("failed to check like", err)
	}

	rec, err := scanPost(tx.QueryRow(ctx, postSelect+` WHERE p.post_id = $1`, postID))
	if err != nil {
		return nil, false, apperror.NewDatabaseError("failed to reload post", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, apperror.NewDatabaseError("failed to commit like toggle", err)
	}
	return rec, liked, nil
}
