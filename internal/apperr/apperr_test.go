package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsCode_FindsWrappedAppError(t *testing.T) {
	base := E(CodeConfiguration, "Machine.Start", "question list is empty", nil)
	wrapped := fmt.Errorf("start session: %w", base)

	if !IsCode(wrapped, CodeConfiguration) {
		t.Fatal("expected configuration code through wrapping")
	}
	if IsCode(wrapped, CodeTransport) {
		t.Fatal("did not expect transport code")
	}
	if CodeOf(errors.New("plain")) != CodeInternal {
		t.Fatal("expected plain errors to map to internal")
	}
}

func TestError_Format(t *testing.T) {
	err := E(CodePersistence, "Gateway.Upsert", "failed to write feedback", errors.New("boom"))
	if got := err.Error(); got != "Gateway.Upsert: failed to write feedback: boom" {
		t.Fatalf("unexpected error string: %q", got)
	}
	if got := Message(err, "fallback"); got != "failed to write feedback" {
		t.Fatalf("unexpected message: %q", got)
	}
	if got := Message(errors.New("x"), "fallback"); got != "fallback" {
		t.Fatalf("unexpected fallback message: %q", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidArgument:    http.StatusBadRequest,
		CodeParse:              http.StatusBadRequest,
		CodeUnauthenticated:    http.StatusUnauthorized,
		CodeNotFound:           http.StatusNotFound,
		CodeTransport:          http.StatusBadGateway,
		CodeFeedbackGeneration: http.StatusBadGateway,
		CodeConfiguration:      http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := HTTPStatus(E(code, "op", "msg", nil)); got != want {
			t.Fatalf("code %s: expected %d, got %d", code, want, got)
		}
	}
}
