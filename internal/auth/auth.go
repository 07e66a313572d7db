package auth

import "context"

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Authenticator resolves the caller behind a credential (session cookie or
// bearer token). It returns (nil, nil) when the credential is missing,
// expired or revoked, so callers treat "no user" uniformly.
type Authenticator interface {
	CurrentUser(ctx context.Context, credential string) (*User, error)
}
