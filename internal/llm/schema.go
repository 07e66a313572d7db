package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
)

type Type string

const (
	TypeObject  Type = "object"
	TypeArray   Type = "array"
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
)

// Schema is the subset of JSON Schema that both the model adapters and the
// local validator understand. Zero MinItems/MaxItems mean unbounded.
type Schema struct {
	Type        Type
	Description string
	Properties  map[string]*Schema
	Required    []string
	Items       *Schema
	Enum        []string
	Minimum     *float64
	Maximum     *float64
	MinItems    int
	MaxItems    int
}

func Float(v float64) *float64 { return &v }

func (s *Schema) Validate(raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return &SchemaError{Reason: "response is not valid JSON: " + err.Error()}
	}
	return s.validate("$", v)
}

func (s *Schema) validate(path string, v any) error {
	switch s.Type {
	case TypeObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return &SchemaError{Path: path, Reason: "expected object"}
		}
		for _, name := range s.Required {
			if _, ok := obj[name]; !ok {
				return &SchemaError{Path: path, Reason: fmt.Sprintf("missing required property %q", name)}
			}
		}
		for name, prop := range s.Properties {
			child, ok := obj[name]
			if !ok {
				continue
			}
			if err := prop.validate(path+"."+name, child); err != nil {
				return err
			}
		}
	case TypeArray:
		arr, ok := v.([]any)
		if !ok {
			return &SchemaError{Path: path, Reason: "expected array"}
		}
		if s.MinItems > 0 && len(arr) < s.MinItems {
			return &SchemaError{Path: path, Reason: fmt.Sprintf("expected at least %d items, got %d", s.MinItems, len(arr))}
		}
		if s.MaxItems > 0 && len(arr) > s.MaxItems {
			return &SchemaError{Path: path, Reason: fmt.Sprintf("expected at most %d items, got %d", s.MaxItems, len(arr))}
		}
		if s.Items == nil {
			return nil
		}
		for i, item := range arr {
			if err := s.Items.validate(path+"["+strconv.Itoa(i)+"]", item); err != nil {
				return err
			}
		}
	case TypeString:
		str, ok := v.(string)
		if !ok {
			return &SchemaError{Path: path, Reason: "expected string"}
		}
		if len(s.Enum) > 0 && !slices.Contains(s.Enum, str) {
			return &SchemaError{Path: path, Reason: fmt.Sprintf("value %q is not one of the allowed values", str)}
		}
	case TypeInteger, TypeNumber:
		num, ok := v.(json.Number)
		if !ok {
			return &SchemaError{Path: path, Reason: "expected " + string(s.Type)}
		}
		f, err := num.Float64()
		if err != nil {
			return &SchemaError{Path: path, Reason: "invalid number " + num.String()}
		}
		if s.Type == TypeInteger && f != math.Trunc(f) {
			return &SchemaError{Path: path, Reason: "expected integer, got " + num.String()}
		}
		if s.Minimum != nil && f < *s.Minimum {
			return &SchemaError{Path: path, Reason: fmt.Sprintf("%s is below minimum %v", num.String(), *s.Minimum)}
		}
		if s.Maximum != nil && f > *s.Maximum {
			return &SchemaError{Path: path, Reason: fmt.Sprintf("%s is above maximum %v", num.String(), *s.Maximum)}
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return &SchemaError{Path: path, Reason: "expected boolean"}
		}
	}
	return nil
}
