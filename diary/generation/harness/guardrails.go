package harness

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// GenerateRequestSchema describes the body accepted by POST /api/generate.
// Presence of summary and credentials is checked by the orchestrator so the
// caller gets the specific message for each.
const GenerateRequestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "summary": {"type": ["string", "null"]},
    "api_key": {"type": ["string", "null"]}
  }
}`

// Guardrails validates inbound payloads and masks secrets in outbound text.
type Guardrails struct {
	outputFilters []*regexp.Regexp // patterns masked by Redact
	jsonValidator *JSONValidator
}

// NewGuardrails creates guardrails with the default secret filters.
func NewGuardrails() *Guardrails {
	return &Guardrails{
		outputFilters: []*regexp.Regexp{
			regexp.MustCompile(`sk-[A-Za-z0-9_\-*]{4,}`),
			regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._\-*]+`),
			regexp.MustCompile(`(?i)api[_-]?key[:=]\s*\S+`),
			regexp.MustCompile(`(?i)password[:=]\s*\S+`),
			regexp.MustCompile(`(?i)secret[:=]\s*\S+`),
		},
		jsonValidator: NewJSONValidator(),
	}
}

// Redact masks credentials that upstream error messages sometimes echo back.
func (g *Guardrails) Redact(text string) string {
	for _, filter := range g.outputFilters {
		text = filter.ReplaceAllString(text, "[REDACTED]")
	}
	return text
}

// ValidateJSON validates data against a JSON schema.
func (g *Guardrails) ValidateJSON(data []byte, schema string) error {
	return g.jsonValidator.Validate(data, []byte(schema))
}

// JSONValidator handles JSON schema validation.
type JSONValidator struct{}

// NewJSONValidator creates a new JSON validator.
func NewJSONValidator() *JSONValidator {
	return &JSONValidator{}
}

// Validate checks if JSON data conforms to a schema.
func (v *JSONValidator) Validate(data json.RawMessage, schema []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("request body is not valid JSON")
	}
	if len(schema) == 0 {
		return nil
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return fmt.Errorf("invalid request body: %s", strings.Join(problems, "; "))
	}

	return nil
}
