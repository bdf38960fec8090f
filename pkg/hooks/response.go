package hooks

import (
	"encoding/json"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/tidwall/gjson"
)

// Decision is the verdict of a structured hook response.
type Decision string

// Decisions a hook may return.
const (
	DecisionContinue Decision = "continue"
	DecisionBlock    Decision = "block"
)

// Response is the structured output a hook may print instead of plain text.
type Response struct {
	Decision          Decision `json:"decision" jsonschema:"enum=continue,enum=block,description=Whether the tool call may proceed"`
	Reason            string   `json:"reason,omitempty" jsonschema:"description=Shown to the caller when the call is blocked"`
	AdditionalContext string   `json:"additionalContext,omitempty" jsonschema:"description=Text appended to the session context"`
}

// parseResponse returns the structured response in output, if output is
// exactly one JSON object carrying a known decision.
func parseResponse(output string) (*Response, bool) {
	trimmed := strings.TrimSpace(output)
	if !strings.HasPrefix(trimmed, "{") || !gjson.Valid(trimmed) {
		return nil, false
	}

	result := gjson.Parse(trimmed)
	decision := result.Get("decision")
	if decision.Type != gjson.String {
		return nil, false
	}

	resp := &Response{
		Decision:          Decision(strings.ToLower(decision.String())),
		Reason:            result.Get("reason").String(),
		AdditionalContext: result.Get("additionalContext").String(),
	}
	switch resp.Decision {
	case DecisionContinue, DecisionBlock:
		return resp, true
	default:
		return nil, false
	}
}

// ResponseSchema returns the JSON schema of Response.
func ResponseSchema() ([]byte, error) {
	r := &jsonschema.Reflector{DoNotReference: true}
	schema := r.Reflect(&Response{})
	schema.Title = "Hook response"
	return json.MarshalIndent(schema, "", "  ")
}
