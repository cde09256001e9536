package queue

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/wordtrail/syncore/internal/learner"
)

// Payload schemas per action kind. Payloads are kind-specific but always
// JSON-serializable scalars/maps; the remote rejects anything else, so
// validating at enqueue time catches bad payloads before they sit in the
// durable queue.
var payloadSchemas = map[learner.Kind]map[string]any{
	learner.KindStartEntity: {
		"type": "object",
		"properties": map[string]any{
			"source": map[string]any{"type": "string"},
		},
		"additionalProperties": false,
	},
	learner.KindCompleteVerification: {
		"type":     "object",
		"required": []any{"score"},
		"properties": map[string]any{
			"score":    map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			"attempts": map[string]any{"type": "integer", "minimum": 1},
		},
		"additionalProperties": false,
	},
	learner.KindUpdateProgress: {
		"type":     "object",
		"required": []any{"mastery_level"},
		"properties": map[string]any{
			"mastery_level": map[string]any{"type": "integer", "minimum": 0},
			"srs_level":     map[string]any{"type": "integer", "minimum": 0},
		},
		"additionalProperties": false,
	},
}

// schemaCache caches compiled payload schemas by kind.
var schemaCache sync.Map // map[learner.Kind]*jsonschema.Schema

// ErrInvalidPayload reports a payload that failed kind-specific validation.
type ErrInvalidPayload struct {
	Kind learner.Kind
	Err  error
}

func (e *ErrInvalidPayload) Error() string {
	return fmt.Sprintf("invalid %s payload: %v", e.Kind, e.Err)
}

func (e *ErrInvalidPayload) Unwrap() error { return e.Err }

// validatePayload checks payload against the kind's schema.
func validatePayload(kind learner.Kind, payload map[string]any) error {
	if !kind.Valid() {
		return &ErrInvalidPayload{Kind: kind, Err: fmt.Errorf("unknown kind")}
	}

	compiled, err := compiledSchema(kind)
	if err != nil {
		return &ErrInvalidPayload{Kind: kind, Err: err}
	}

	// Round-trip through JSON so numeric types match what the validator
	// expects regardless of how the caller built the map.
	b, err := json.Marshal(payload)
	if err != nil {
		return &ErrInvalidPayload{Kind: kind, Err: fmt.Errorf("marshal payload: %w", err)}
	}
	var parsed any
	if err := json.Unmarshal(b, &parsed); err != nil {
		return &ErrInvalidPayload{Kind: kind, Err: fmt.Errorf("parse payload: %w", err)}
	}
	if parsed == nil {
		parsed = map[string]any{}
	}

	if err := compiled.Validate(parsed); err != nil {
		return &ErrInvalidPayload{Kind: kind, Err: err}
	}
	return nil
}

// compiledSchema returns a cached compiled schema or compiles and caches it.
func compiledSchema(kind learner.Kind) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(kind); ok {
		return cached.(*jsonschema.Schema), nil
	}

	def, ok := payloadSchemas[kind]
	if !ok {
		return nil, fmt.Errorf("no schema for kind %s", kind)
	}

	// The jsonschema library expects a parsed JSON value (any), not raw
	// bytes. Marshal then unmarshal to get a clean any representation.
	defBytes, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	schemaURL := fmt.Sprintf("schema://%s.json", kind)
	if err := c.AddResource(schemaURL, defParsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}

	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(kind, compiled)
	return compiled, nil
}
