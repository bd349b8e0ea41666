// Package replies implements the reply ledger: reply CRUD scoped to a parent
// post, keeping the post's denormalized reply counter in step.
package replies

import (
	"time"

	"github.com/user/board-go/posts"
	"github.com/user/board-go/users"
)

// Reply is the client-facing representation of a reply, carrying its author
// and the post it belongs to.
type Reply struct {
	ReplyID         int64      `json:"replyId"`
	Body            string     `json:"body"`
	User            users.User `json:"user"`
	Post            posts.Post `json:"post"`
	CreatedDateTime time.Time  `json:"createdDateTime"`
	UpdatedDateTime time.Time  `json:"updatedDateTime"`
}

// ReplyFrom maps a reply record to its client representation.
func ReplyFrom(rec *ReplyRecord) Reply {
	return Reply{
		ReplyID:         rec.ID,
		Body:            rec.Body,
		User:            users.UserFrom(&rec.Account),
		Post:            posts.PostFrom(&rec.Post),
		CreatedDateTime: rec.CreatedDateTime,
		UpdatedDateTime: rec.UpdatedDateTime,
	}
}
