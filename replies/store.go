package replies

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/board-go/apperror"
	"github.com/user/board-go/posts"
	"github.com/user/board-go/users"
)

// ReplyRecord is a reply row joined with its author and its parent post.
type ReplyRecord struct {
	ID              int64
	Body            string
	Account         users.AccountRecord
	Post            posts.PostRecord
	CreatedDateTime time.Time
	UpdatedDateTime time.Time
}

// Store is the persistence boundary of the reply ledger. Soft-deleted
// replies are invisible, and the create/delete mutations that touch the
// parent post's reply counter are atomic.
type Store interface {
	PostExists(ctx context.Context, postID int64) (bool, error)
	RepliesByPost(ctx context.Context, postID int64) ([]ReplyRecord, error)
	ReplyByID(ctx context.Context, replyID int64) (*ReplyRecord, error)
	CreateReply(ctx context.Context, postID, accountID int64, body string) (*ReplyRecord, error)
	UpdateBody(ctx context.Context, replyID int64, body string) (*ReplyRecord, error)
	SoftDeleteReply(ctx context.Context, replyID, postID int64) error
	RepliesByAccount(ctx context.Context, accountID int64) ([]ReplyRecord, error)
}

// PgStore implements Store on a pgx connection pool.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

const replySelect = `SELECT r.reply_id, r.body, r.created_datetime, r.updated_datetime,
		ra.account_id, ra.username, ra.password, ra.profile, ra.description,
		ra.followers_count, ra.followings_count, ra.created_datetime, ra.updated_datetime,
		p.post_id, p.body, p.replies_count, p.likes_count, p.created_datetime, p.updated_datetime,
		pa.account_id, pa.username, pa.password, pa.profile, pa.description,
		pa.followers_count, pa.followings_count, pa.created_datetime, pa.updated_datetime
	FROM reply r
	JOIN "account" ra ON ra.account_id = r.account_id
	JOIN post p ON p.post_id = r.post_id
	JOIN "account" pa ON pa.account_id = p.account_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReply(row rowScanner) (*ReplyRecord, error) {
	var rec ReplyRecord
	err := row.Scan(
		&rec.ID,
		&rec.Body,
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
		&rec.Post.ID,
		&rec.Post.Body,
		&rec.Post.RepliesCount,
		&rec.Post.LikesCount,
		&rec.Post.CreatedDateTime,
		&rec.Post.UpdatedDateTime,
		&rec.Post.Account.ID,
		&rec.Post.Account.Username,
		&rec.Post.Account.PasswordHash,
		&rec.Post.Account.Profile,
		&rec.Post.Account.Description,
		&rec.Post.Account.FollowersCount,
		&rec.Post.Account.FollowingsCount,
		&rec.Post.Account.CreatedDateTime,
		&rec.Post.Account.UpdatedDateTime,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *PgStore) queryReplies(ctx context.Context, query string, args ...any) ([]ReplyRecord, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list replies", err)
	}
	defer rows.Close()

	var recs []ReplyRecord
	for rows.Next() {
		rec, err := scanReply(rows)
		if err != nil {
			return nil, apperror.NewDatabaseError("failed to scan reply", err)
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to list replies", err)
	}
	return recs, nil
}

func (s *PgStore) PostExists(ctx context.Context, postID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (
		SELECT 1 FROM post WHERE post_id = $1 AND deleted_datetime IS NULL
	)`
	if err := s.db.QueryRow(ctx, query, postID).Scan(&exists); err != nil {
		return false, apperror.NewDatabaseError("failed to check post", err)
	}
	return exists, nil
}

func (s *PgStore) RepliesByPost(ctx context.Context, postID int64) ([]ReplyRecord, error) {
	query := replySelect + `
		WHERE r.post_id = $1 AND r.deleted_datetime IS NULL
		ORDER BY r.created_datetime`
	return s.queryReplies(ctx, query, postID)
}

func (s *PgStore) ReplyByID(ctx context.Context, replyID int64) (*ReplyRecord, error) {
	query := replySelect + `
		WHERE r.reply_id = $1 AND r.deleted_datetime IS NULL`
	rec, err := scanReply(s.db.QueryRow(ctx, query, replyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError(fmt.Sprintf("reply %d not found", replyID), nil)
		}
		return nil, apperror.NewDatabaseError("failed to get reply", err)
	}
	return rec, nil
}

// CreateReply inserts the reply and bumps the parent post's reply counter in
// one transaction. A missing or soft-deleted post fails with NotFound.
func (s *PgStore) CreateReply(ctx context.Context, postID, accountID int64, body string) (*ReplyRecord, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	tag, err := tx.Exec(ctx,
		`UPDATE post SET replies_count = replies_count + 1, updated_datetime = $2
		 WHERE post_id = $1 AND deleted_datetime IS NULL`, postID, now)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to update reply count", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperror.NewNotFoundError(fmt.Sprintf("post %d not found", postID), nil)
	}

	var replyID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO reply (body, account_id, post_id, created_datetime, updated_datetime)
		 VALUES ($1, $2, $3, $4, $4)
		 RETURNING reply_id`, body, accountID, postID, now).Scan(&replyID)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to create reply", err)
	}

	rec, err := scanReply(tx.QueryRow(ctx, replySelect+` WHERE r.reply_id = $1`, replyID))
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to reload reply", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.NewDatabaseError("failed to commit reply", err)
	}
	return rec, nil
}

func (s *PgStore) UpdateBody(ctx context.Context, replyID int64, body string) (*ReplyRecord, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE reply SET body = $2, updated_datetime = $3
		 WHERE reply_id = $1 AND deleted_datetime IS NULL`,
		replyID, body, time.Now().UTC())
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to update reply", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperror.NewNotFoundError(fmt.Sprintf("reply %d not found", replyID), nil)
	}
	return s.ReplyByID(ctx, replyID)
}

// SoftDeleteReply marks the reply deleted and decrements the parent post's
// reply counter, clamped at zero, in one transaction.
func (s *PgStore) SoftDeleteReply(ctx context.Context, replyID, postID int64) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return apperror.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	tag, err := tx.Exec(ctx,
		`UPDATE reply SET deleted_datetime = $2
		 WHERE reply_id = $1 AND deleted_datetime IS NULL`, replyID, now)
	if err != nil {
		return apperror.NewDatabaseError("failed to delete reply", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFoundError(fmt.Sprintf("reply %d not found", replyID), nil)
	}

	_, err = tx.Exec(ctx,
		`UPDATE post SET replies_count = GREATEST(replies_count - 1, 0), updated_datetime = $2
		 WHERE post_id = $1`, postID, now)
	if err != nil {
		return apperror.NewDatabaseError("failed to update reply count", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperror.NewDatabaseError("failed to commit reply deletion", err)
	}
	return nil
}

func (s *PgStore) RepliesByAccount(ctx context.Context, accountID int64) ([]ReplyRecord, error) {
	query := replySelect + `
		WHERE r.account_id = $1 AND r.deleted_datetime IS NULL AND p.deleted_datetime IS NULL
		ORDER BY r.created_datetime DESC`
	return s.queryReplies(ctx, query, accountID)
}
