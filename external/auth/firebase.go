package auth

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/foxseedlab/mensetsu/internal/auth"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const usersCollection = "users"

type userDoc struct {
	Name  string `firestore:"name"`
	Email string `firestore:"email"`
}

// FirebaseAuthenticator verifies Firebase session cookies and loads the
// profile from the users collection.
type FirebaseAuthenticator struct {
	auth  *fbauth.Client
	store *firestore.Client
}

func NewFirebaseAuthenticator(authClient *fbauth.Client, store *firestore.Client) *FirebaseAuthenticator {
	return &FirebaseAuthenticator{auth: authClient, store: store}
}

func (a *FirebaseAuthenticator) CurrentUser(ctx context.Context, credential string) (*auth.User, error) {
	if credential == "" {
		return nil, nil
	}
	token, err := a.auth.VerifySessionCookieAndCheckRevoked(ctx, credential)
	if err != nil {
		slog.Debug("session cookie rejected", "error", err)
		return nil, nil
	}

	snap, err := a.store.Collection(usersCollection).Doc(token.UID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", token.UID, err)
	}
	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", token.UID, err)
	}
	return &auth.User{ID: snap.Ref.ID, Name: doc.Name, Email: doc.Email}, nil
}
