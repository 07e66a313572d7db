package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims userClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func validClaims() userClaims {
	now := time.Now().UTC()
	return userClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Name:  "Aiko",
		Email: "aiko@example.com",
	}
}

func TestJWTAuthenticatorAcceptsValidToken(t *testing.T) {
	a := NewJWTAuthenticator(testSecret)
	token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims())

	user, err := a.CurrentUser(context.Background(), token)
	if err != nil {
		t.Fatalf("CurrentUser returned error: %v", err)
	}
	if user == nil {
		t.Fatal("expected user")
	}
	if user.ID != "user-1" || user.Name != "Aiko" || user.Email != "aiko@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestJWTAuthenticatorRejectsInvalidTokens(t *testing.T) {
	a := NewJWTAuthenticator(testSecret)

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noSubject := validClaims()
	noSubject.Subject = ""

	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"wrong secret": signToken(t, jwt.SigningMethodHS256, []byte("other"), validClaims()),
		"wrong method": signToken(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims()),
		"expired":      signToken(t, jwt.SigningMethodHS256, []byte(testSecret), expired),
		"no subject":   signToken(t, jwt.SigningMethodHS256, []byte(testSecret), noSubject),
		"no expiry":    signToken(t, jwt.SigningMethodHS256, []byte(testSecret), noExpiry),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			user, err := a.CurrentUser(context.Background(), token)
			if err != nil {
				t.Fatalf("CurrentUser returned error: %v", err)
			}
			if user != nil {
				t.Fatalf("expected no user, got %+v", user)
			}
		})
	}
}
