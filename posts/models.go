// Package posts implements the post ledger: post CRUD with soft deletion,
// like toggling, and the denormalized reply and like counters kept in step
// with the rows they summarize.
package posts

import (
	"time"

	"github.com/user/board-go/users"
)

// Post is the client-facing representation of a post. IsLiking is present
// only when the post was read relative to a caller.
type Post struct {
	PostID          int64      `json:"postId"`
	Body            string     `json:"body"`
	RepliesCount    int64      `json:"repliesCount"`
	LikesCount      int64      `json:"likesCount"`
	User            users.User `json:"user"`
	CreatedDateTime time.Time  `json:"createdDateTime"`
	UpdatedDateTime time.Time  `json:"updatedDateTime"`
	IsLiking        *bool      `json:"isLiking,omitempty"`
}

// PostFrom maps a post record to its client representation without
// like-status annotation.
func PostFrom(rec *PostRecord) Post {
	return Post{
		PostID:          rec.ID,
		Body:            rec.Body,
		RepliesCount:    rec.RepliesCount,
		LikesCount:      rec.LikesCount,
		User:            users.UserFrom(&rec.Account),
		CreatedDateTime: rec.CreatedDateTime,
		UpdatedDateTime: rec.UpdatedDateTime,
	}
}

// PostWithLiking maps a post record and annotates it with whether the caller
// currently likes it.
func PostWithLiking(rec *PostRecord, isLiking bool) Post {
	p := PostFrom(rec)
	p.IsLiking = &isLiking
	return p
}
