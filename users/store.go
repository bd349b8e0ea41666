package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/board-go/apperror"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const pgUniqueViolation = "23505"

// AccountRecord is an account row as the store sees it, password hash
// included. Services map it to the client-facing User before it leaves the
// package.
type AccountRecord struct {
	ID              int64
	Username        string
	PasswordHash    string
	Profile         *string
	Description     *string
	FollowersCount  int64
	FollowingsCount int64
	CreatedDateTime time.Time
	UpdatedDateTime time.Time
}

// FollowEdge is one side of a follow relation: the account on the other end
// of the edge and when the edge was created.
type FollowEdge struct {
	Account          AccountRecord
	FollowedDateTime time.Time
}

// LikeEdge is a like row joined with the liking account.
type LikeEdge struct {
	Account       AccountRecord
	PostID        int64
	LikedDateTime time.Time
}

// Store is the persistence boundary of the user directory. Rows marked
// deleted are invisible to every method, and the multi-row mutations
// (follow edge plus its two counters) are atomic.
type Store interface {
	CreateAccount(ctx context.Context, username, passwordHash, profile string) (*AccountRecord, error)
	AccountByUsername(ctx context.Context, username string) (*AccountRecord, error)
	Accounts(ctx context.Context, query string) ([]AccountRecord, error)
	UpdateDescription(ctx context.Context, accountID int64, description string) (*AccountRecord, error)

	HasFollow(ctx context.Context, followerID, followingID int64) (bool, error)
	CreateFollow(ctx context.Context, followerID, followingID int64) (*AccountRecord, error)
	DeleteFollow(ctx context.Context, followerID, followingID int64) (*AccountRecord, error)
	Followers(ctx context.Context, accountID int64) ([]FollowEdge, error)
	Followings(ctx context.Context, accountID int64) ([]FollowEdge, error)

	PostExists(ctx context.Context, postID int64) (bool, error)
	LikesByPost(ctx context.Context, postID int64) ([]LikeEdge, error)
	LikesByAccountPosts(ctx context.Context, accountID int64) ([]LikeEdge, error)
}

// PgStore implements Store on a pgx connection pool.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

const accountColumns = `account_id, username, password, profile, description,
	followers_count, followings_count, created_datetime, updated_datetime`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*AccountRecord, error) {
	var rec AccountRecord
	err := row.Scan(
		&rec.ID,
		&rec.Username,
		&rec.PasswordHash,
		&rec.Profile,
		&rec.Description,
		&rec.FollowersCount,
		&rec.FollowingsCount,
		&rec.CreatedDateTime,
		&rec.UpdatedDateTime,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *PgStore) CreateAccount(ctx context.Context, username, passwordHash, profile string) (*AccountRecord, error) {
	now := time.Now().UTC()
	query := `INSERT INTO "account" (username, password, profile, created_datetime, updated_datetime)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING ` + accountColumns
	rec, err := scanAccount(s.db.QueryRow(ctx, query, username, passwordHash, profile, now))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, apperror.NewConflictError(fmt.Sprintf("username %q already exists", username), err)
		}
		return nil, apperror.NewDatabaseError("failed to create account", err)
	}
	return rec, nil
}

func (s *PgStore) AccountByUsername(ctx context.Context, username string) (*AccountRecord, error) {
	query := `SELECT ` + accountColumns + ` FROM "account"
		WHERE username = $1 AND deleted_datetime IS NULL`
	rec, err := scanAccount(s.db.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError(fmt.Sprintf("user %q not found", username), nil)
		}
		return nil, apperror.NewDatabaseError("failed to get account", err)
	}
	return rec, nil
}

func (s *PgStore) Accounts(ctx context.Context, query string) ([]AccountRecord, error) {
	sql := `SELECT ` + accountColumns + ` FROM "account"
		WHERE deleted_datetime IS NULL`
	args := []any{}
	if query != "" {
		// Case-sensitive substring match on the username.
		sql += ` AND username LIKE '%' || $1 || '%'`
		args = append(args, query)
	}
	sql += ` ORDER BY account_id`

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list accounts", err)
	}
	defer rows.Close()

	var recs []AccountRecord
	for rows.Next() {
		rec, err := scanAccount(rows)
		if err != nil {
			return nil, apperror.NewDatabaseError("failed to scan account", err)
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to list accounts", err)
	}
	return recs, nil
}

func (s *PgStore) UpdateDescription(ctx context.Context, accountID int64, description string) (*AccountRecord, error) {
	query := `UPDATE "account"
		SET description = $2, updated_datetime = $3
		WHERE account_id = $1 AND deleted_datetime IS NULL
		RETURNING ` + accountColumns
	rec, err := scanAccount(s.db.QueryRow(ctx, query, accountID, description, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("user not found", nil)
		}
		return nil, apperror.NewDatabaseError("failed to update account", err)
	}
	return rec, nil
}

func (s *PgStore) HasFollow(ctx context.Context, followerID, followingID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (
		SELECT 1 FROM follow WHERE follower_id = $1 AND following_id = $2
	)`
	if err := s.db.QueryRow(ctx, query, followerID, followingID).Scan(&exists); err != nil {
		return false, apperror.NewDatabaseError("failed to check follow edge", err)
	}
	return exists, nil
}

// CreateFollow inserts the edge and bumps both counters in one transaction,
// then returns the refreshed followed account.
func (s *PgStore) CreateFollow(ctx context.Context, followerID, followingID int64) (*AccountRecord, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	_, err = tx.Exec(ctx,
		`INSERT INTO follow (follower_id, following_id, created_datetime) VALUES ($1, $2, $3)`,
		followerID, followingID, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, apperror.NewConflictError("follow already exists", err)
		}
		return nil, apperror.NewDatabaseError("failed to create follow edge", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE "account" SET followings_count = followings_count + 1, updated_datetime = $2
		 WHERE account_id = $1`, followerID, now)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to update followings count", err)
	}

	followed, err := scanAccount(tx.QueryRow(ctx,
		`UPDATE "account" SET followers_count = followers_count + 1, updated_datetime = $2
		 WHERE account_id = $1
		 RETURNING `+accountColumns, followingID, now))
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to update followers count", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.NewDatabaseError("failed to commit follow", err)
	}
	return followed, nil
}

// DeleteFollow removes the edge and decrements both counters, clamped at
// zero, in one transaction. It fails with NotFound when no edge exists.
func (s *PgStore) DeleteFollow(ctx context.Context, followerID, followingID int64) (*AccountRecord, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`DELETE FROM follow WHERE follower_id = $1 AND following_id = $2`,
		followerID, followingID)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to delete follow edge", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperror.NewNotFoundError("follow not found", nil)
	}

	now := time.Now().UTC()
	_, err = tx.Exec(ctx,
		`UPDATE "account" SET followings_count = GREATEST(followings_count - 1, 0), updated_datetime = $2
		 WHERE account_id = $1`, followerID, now)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to update followings count", err)
	}

	followed, err := scanAccount(tx.QueryRow(ctx,
		`UPDATE "account" SET followers_count = GREATEST(followers_count - 1, 0), updated_datetime = $2
		 WHERE account_id = $1
		 RETURNING `+accountColumns, followingID, now))
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to update followers count", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.NewDatabaseError("failed to commit unfollow", err)
	}
	return followed, nil
}

func (s *PgStore) followEdges(ctx context.Context, query string, accountID int64) ([]FollowEdge, error) {
	rows, err := s.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list follow edges", err)
	}
	defer rows.Close()

	var edges []FollowEdge
	for rows.Next() {
		var edge FollowEdge
		err := rows.Scan(
			&edge.Account.ID,
			&edge.Account.Username,
			&edge.Account.PasswordHash,
			&edge.Account.Profile,
			&edge.Account.Description,
			&edge.Account.FollowersCount,
			&edge.Account.FollowingsCount,
			&edge.Account.CreatedDateTime,
			&edge.Account.UpdatedDateTime,
			&edge.FollowedDateTime,
		)
		if err != nil {
			return nil, apperror.NewDatabaseError("failed to scan follow edge", err)
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to list follow edges", err)
	}
	return edges, nil
}

// Followers lists the accounts following accountID.
func (s *PgStore) Followers(ctx context.Context, accountID int64) ([]FollowEdge, error) {
	query := `SELECT a.account_id, a.username, a.password, a.profile, a.description,
			a.followers_count, a.followings_count, a.created_datetime, a.updated_datetime,
			f.created_datetime
		FROM follow f
		JOIN "account" a ON a.account_id = f.follower_id
		WHERE f.following_id = $1 AND a.deleted_datetime IS NULL
		ORDER BY f.created_datetime DESC`
	return s.followEdges(ctx, query, accountID)
}

// Followings lists the accounts that accountID follows.
func (s *PgStore) Followings(ctx context.Context, accountID int64) ([]FollowEdge, error) {
	query := `SELECT a.account_id, a.username, a.password, a.profile, a.description,
			a.followers_count, a.followings_count, a.created_datetime, a.updated_datetime,
			f.created_datetime
		FROM follow f
		JOIN "account" a ON a.account_id = f.following_id
		WHERE f.follower_id = $1 AND a.deleted_datetime IS NULL
		ORDER BY f.created_datetime DESC`
	return s.followEdges(ctx, query, accountID)
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

func (s *PgStore) likeEdges(ctx context.Context, query string, arg int64) ([]LikeEdge, error) {
	rows, err := s.db.Query(ctx, query, arg)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list likes", err)
	}
	defer rows.Close()

	var edges []LikeEdge
	for rows.Next() {
		var edge LikeEdge
		err := rows.Scan(
			&edge.Account.ID,
			&edge.Account.Username,
			&edge.Account.PasswordHash,
			&edge.Account.Profile,
			&edge.Account.Description,
			&edge.Account.FollowersCount,
			&edge.Account.FollowingsCount,
			&edge.Account.CreatedDateTime,
			&edge.Account.UpdatedDateTime,
			&edge.PostID,
			&edge.LikedDateTime,
		)
		if err != nil {
			return nil, apperror.NewDatabaseError("failed to scan like", err)
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to list likes", err)
	}
	return edges, nil
}

// LikesByPost lists the accounts that liked a post.
func (s *PgStore) LikesByPost(ctx context.Context, postID int64) ([]LikeEdge, error) {
	query := `SELECT a.account_id, a.username, a.password, a.profile, a.description,
			a.followers_count, a.followings_count, a.created_datetime, a.updated_datetime,
			l.post_id, l.created_datetime
		FROM "like" l
		JOIN "account" a ON a.account_id = l.account_id
		WHERE l.post_id = $1 AND a.deleted_datetime IS NULL
		ORDER BY l.created_datetime DESC`
	return s.likeEdges(ctx, query, postID)
}

// LikesByAccountPosts lists every like on any of the account's posts.
func (s *PgStore) LikesByAccountPosts(ctx context.Context, accountID int64) ([]LikeEdge, error) {
	query := `SELECT a.account_id, a.username, a.password, a.profile, a.description,
			a.followers_count, a.followings_count, a.created_datetime, a.updated_datetime,
			l.post_id, l.created_datetime
		FROM "like" l
		JOIN post p ON p.post_id = l.post_id
		JOIN "account" a ON a.account_id = l.account_id
		WHERE p.account_id = $1 AND p.deleted_datetime IS NULL AND a.deleted_datetime IS NULL
		ORDER BY l.created_datetime DESC`
	return s.likeEdges(ctx, query, accountID)
}
