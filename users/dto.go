package users

// SignUpRequest is the payload for account creation.
type SignUpRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthenticateRequest is the login payload.
type AuthenticateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthenticateResponse carries the issued bearer token.
type AuthenticateResponse struct {
	AccessToken string `json:"accessToken"`
}

// PatchRequest is a partial account update. Only non-nil fields are applied;
// currently that is the profile description.
type PatchRequest struct {
	Description *string `json:"description"`
}
