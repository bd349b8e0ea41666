// Package users implements the user directory: accounts and credentials,
// substring search, follow edges with their denormalized counters, and the
// liked-user listings that fan out from posts.
package users

import (
	"time"
)

// User is the client-facing representation of an account. IsFollowing is only
// present when the listing was computed relative to a caller; password hashes
// never appear here.
type User struct {
	UserID          int64     `json:"userId"`
	Username        string    `json:"username"`
	Profile         *string   `json:"profile,omitempty"`
	Description     *string   `json:"description,omitempty"`
	FollowersCount  int64     `json:"followersCount"`
	FollowingsCount int64     `json:"followingsCount"`
	CreatedDateTime time.Time `json:"createdDateTime"`
	UpdatedDateTime time.Time `json:"updatedDateTime"`
	IsFollowing     *bool     `json:"isFollowing,omitempty"`
}

// Follower is a user in someone's follower list, together with the moment
// the follow edge was created.
type Follower struct {
	User
	FollowedDateTime time.Time `json:"followedDateTime"`
}

// LikedUser is a user that liked a particular post.
type LikedUser struct {
	User
	LikedPostID   int64     `json:"likedPostId"`
	LikedDateTime time.Time `json:"likedDateTime"`
}

// UserFrom maps an account record to its client representation without
// follow-status annotation.
func UserFrom(rec *AccountRecord) User {
	return User{
		UserID:          rec.ID,
		Username:        rec.Username,
		Profile:         rec.Profile,
		Description:     rec.Description,
		FollowersCount:  rec.FollowersCount,
		FollowingsCount: rec.FollowingsCount,
		CreatedDateTime: rec.CreatedDateTime,
		UpdatedDateTime: rec.UpdatedDateTime,
	}
}

// UserWithFollowing maps an account record and annotates it with whether the
// caller currently follows it.
func UserWithFollowing(rec *AccountRecord, isFollowing bool) User {
	u := UserFrom(rec)
	u.IsFollowing = &isFollowing
	return u
}
