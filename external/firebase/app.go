package firebase

import (
	"context"
	"fmt"

	fb "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// NewApp builds the Firebase app shared by the Firestore repository and
// session-cookie authentication.
func NewApp(ctx context.Context, projectID, credentialsJSON string) (*fb.App, error) {
	conf := &fb.Config{ProjectID: projectID}
	app, err := fb.NewApp(ctx, conf, option.WithCredentialsJSON([]byte(credentialsJSON)))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	return app, nil
}
