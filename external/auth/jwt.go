package auth

import (
	"context"
	"log/slog"

	"github.com/foxseedlab/mensetsu/internal/auth"
	"github.com/golang-jwt/jwt/v5"
)

type userClaims struct {
	jwt.RegisteredClaims
	Name  string `json:"name"`
	Email string `json:"email"`
}

// JWTAuthenticator accepts HS256 bearer tokens whose subject is the user id.
type JWTAuthenticator struct {
	secret []byte
}

func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret)}
}

func (a *JWTAuthenticator) CurrentUser(_ context.Context, credential string) (*auth.User, error) {
	if credential == "" {
		return nil, nil
	}
	claims := &userClaims{}
	tok, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || tok == nil || !tok.Valid {
		slog.Debug("bearer token rejected", "error", err)
		return nil, nil
	}
	if claims.Subject == "" {
		return nil, nil
	}
	return &auth.User{ID: claims.Subject, Name: claims.Name, Email: claims.Email}, nil
}
