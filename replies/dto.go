package replies

// CreateRequest is the payload for creating a reply.
type CreateRequest struct {
	Body string `json:"body"`
}

// PatchRequest replaces a reply's body text.
type PatchRequest struct {
	Body string `json:"body"`
}
