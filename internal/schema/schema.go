// Package schema holds the JSON schemas of the classification API and
// validates payloads against them.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/doc-classifier/internal/classifier"
	"github.com/joseph-ayodele/doc-classifier/internal/common"
)

var point = map[string]any{
	"type":     "array",
	"items":    map[string]any{"type": "number"},
	"minItems": 2,
	"maxItems": 2,
}

var textBlock = map[string]any{
	"type":     "object",
	"required": []any{"box", "text", "confidence"},
	"properties": map[string]any{
		"box": map[string]any{
			"type":     "array",
			"items":    point,
			"minItems": 4,
			"maxItems": 4,
		},
		"text":       map[string]any{"type": "string"},
		"confidence": map[string]any{"type": "number"},
	},
}

// ClassificationResult returns the schema every stored or returned result must satisfy.
func ClassificationResult() map[string]any {
	return map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"file_class", "confidence", "is_valid", "detected_fields", "missing_fields", "metadata"},
		"properties": map[string]any{
			"file_class":      map[string]any{"type": "string", "pattern": "^[a-z][a-z0-9_]*$"},
			"confidence":      map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			"is_valid":        map[string]any{"type": "boolean"},
			"detected_fields": map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "string"}},
			"missing_fields":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"metadata":        map[string]any{"type": "object"},
			"error":           map[string]any{"type": "string"},
		},
	}
}

// ClassifyRequest returns the schema of a synchronous {text, text_blocks} request.
func ClassifyRequest() map[string]any {
	return map[string]any{
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"type":     "object",
		"required": []any{"text"},
		"properties": map[string]any{
			"text":        map[string]any{"type": "string"},
			"text_blocks": map[string]any{"type": "array", "items": textBlock},
		},
	}
}

var (
	compileOnce    sync.Once
	resultSchema   *jsonschema.Schema
	requestSchema  *jsonschema.Schema
	compileFailure error
)

func compiled() (*jsonschema.Schema, *jsonschema.Schema, error) {
	compileOnce.Do(func() {
		resultSchema, compileFailure = compile("result.json", ClassificationResult())
		if compileFailure != nil {
			return
		}
		requestSchema, compileFailure = compile("request.json", ClassifyRequest())
	})
	return resultSchema, requestSchema, compileFailure
}

func compile(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	s, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return s, nil
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	s, err := compile("schema.json", schemaMap)
	if err != nil {
		return err
	}
	return validate(s, data)
}

func validate(s *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return common.NewAppError("INVALID_JSON", "unmarshal data", errWrap(err))
	}
	if err := s.Validate(v); err != nil {
		return common.NewAppError("SCHEMA_MISMATCH", "json does not match schema", errWrap(err))
	}
	return nil
}

// errWrap keeps the cause text while marking the error as a validation failure.
func errWrap(err error) error {
	return fmt.Errorf("%w: %v", common.ErrValidation, err)
}

// ValidateResult checks a result against the ClassificationResult schema.
func ValidateResult(res classifier.ClassificationResult) error {
	s, _, err := compiled()
	if err != nil {
		return err
	}
	b, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return validate(s, b)
}

// ValidateClassifyRequest checks a raw {text, text_blocks} request body.
func ValidateClassifyRequest(data []byte) error {
	_, s, err := compiled()
	if err != nil {
		return err
	}
	return validate(s, data)
}

// ClassifyRequestBody is the decoded form of a synchronous classification request.
type ClassifyRequestBody struct {
	Text       string                 `json:"text"`
	TextBlocks []classifier.TextBlock `json:"text_blocks"`
}

// DecodeClassifyRequest validates data against the request schema and decodes it.
func DecodeClassifyRequest(data []byte) (ClassifyRequestBody, error) {
	var req ClassifyRequestBody
	if err := ValidateClassifyRequest(data); err != nil {
		return req, err
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, common.NewAppError("INVALID_JSON", "decode classify request", errWrap(err))
	}
	return req, nil
}
