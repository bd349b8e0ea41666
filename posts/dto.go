package posts

// CreateRequest is the payload for creating a post.
type CreateRequest struct {
	Body string `json:"body"`
}

// PatchRequest replaces a post's body text.
type PatchRequest struct {
	Body string `json:"body"`
}
