package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Generator is the model capability used for question generation and
// feedback scoring. GenerateStructured returns the raw JSON document the
// model produced under the request schema; callers decode it with
// GenerateObject.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateStructured(ctx context.Context, req StructuredRequest) ([]byte, error)
}

type StructuredRequest struct {
	System string
	Prompt string
	Schema *Schema
}

// SchemaError reports a model response that does not satisfy the schema.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "schema violation: " + e.Reason
	}
	return fmt.Sprintf("schema violation at %s: %s", e.Path, e.Reason)
}

// GenerateObject runs a structured generation, validates the response
// against req.Schema and decodes it into T.
func GenerateObject[T any](ctx context.Context, g Generator, req StructuredRequest) (T, error) {
	var out T
	if req.Schema == nil {
		return out, fmt.Errorf("structured request has no schema")
	}
	raw, err := g.GenerateStructured(ctx, req)
	if err != nil {
		return out, err
	}
	raw = []byte(StripCodeFence(string(raw)))
	if err := req.Schema.Validate(raw); err != nil {
		return out, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&out); err != nil {
		return out, &SchemaError{Reason: err.Error()}
	}
	return out, nil
}
