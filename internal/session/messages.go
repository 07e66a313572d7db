package session

import (
	"fmt"

	"github.com/foxseedlab/mensetsu/internal/apperr"
)

const (
	navigateHome            = "/"
	feedbackPathFormat      = "/interview/%s/feedback"
	messageCallConnected    = "Call connected!"
	messageCallEnded        = "Call ended"
	messageCallError        = "Call error occurred"
	messageStartFailed      = "Failed to start the call"
	messageFeedbackSaved    = "Feedback is ready"
	messageFeedbackFailed   = "Feedback is unavailable. Please try the interview again."
	messageServerShutdown   = "The interview server is shutting down"
	messageNotAuthenticated = "Please sign in to start an interview"
)

func feedbackPath(interviewID string) string {
	return fmt.Sprintf(feedbackPathFormat, interviewID)
}

// startFailureMessage picks the notice shown when a call could not be
// placed.
func startFailureMessage(err error) string {
	switch apperr.CodeOf(err) {
	case apperr.CodeUnauthenticated:
		return messageNotAuthenticated
	case apperr.CodeConfiguration, apperr.CodeNotFound, apperr.CodeInvalidArgument, apperr.CodeConflict:
		return apperr.Message(err, messageStartFailed)
	default:
		return messageStartFailed
	}
}
