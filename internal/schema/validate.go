// Package schema compiles and caches JSON schemas and reports the first
// failing leaf of a validation error.
package schema

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var cache sync.Map // key -> *jsonschema.Schema

func cacheKey(name string, schema []byte) string {
	sum := sha256.Sum256(schema)
	return name + ":" + hex.EncodeToString(sum[:])
}

// Compile returns the compiled schema, reusing a cached copy when the same
// name and bytes were compiled before.
func Compile(name string, schema []byte) (*jsonschema.Schema, error) {
	key := cacheKey(name, schema)
	if v, ok := cache.Load(key); ok {
		return v.(*jsonschema.Schema), nil
	}
	s, err := jsonschema.CompileString(name+".json", string(schema))
	if err != nil {
		return nil, err
	}
	cache.Store(key, s)
	return s, nil
}

func firstLeafValidationError(err *jsonschema.ValidationError) *jsonschema.ValidationError {
	if err == nil {
		return nil
	}
	if len(err.Causes) == 0 {
		return err
	}
	for _, c := range err.Causes {
		if leaf := firstLeafValidationError(c); leaf != nil {
			return leaf
		}
	}
	return err
}

// ValidateJSON decodes doc and validates it against schema.
func ValidateJSON(name string, schema []byte, doc []byte) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("%s: decode: %w", name, err)
	}
	return Validate(name, schema, v)
}

// Validate checks an already decoded JSON value (maps, slices, json.Number,
// strings, bools, nil) against schema.
func Validate(name string, schema []byte, v any) error {
	if len(schema) == 0 {
		return nil
	}
	s, err := Compile(name, schema)
	if err != nil {
		return fmt.Errorf("invalid schema for %s: %w", name, err)
	}
	if err := s.Validate(v); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			leaf := firstLeafValidationError(ve)
			loc := leaf.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			msg := leaf.Message
			if msg == "" {
				msg = leaf.Error()
			}
			return fmt.Errorf("schema validation failed for %s at %s: %s", name, loc, msg)
		}
		return fmt.Errorf("schema validation failed for %s: %v", name, err)
	}
	return nil
}
