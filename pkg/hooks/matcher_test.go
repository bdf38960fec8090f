package hooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher(t *testing.T) {
	tests := []struct {
		pattern string
		tool    string
		want    bool
	}{
		{"", "Bash", true},
		{"*", "anything", true},
		{"Bash", "Bash", true},
		{"Bash", "BashOutput", false},
		{"Write|Edit", "Edit", true},
		{"Write|Edit", "Read", false},
		{"mcp__github__*", "mcp__github__list_issues", true},
		{"mcp__github__*", "mcp__linear__list_issues", false},
		{" Read | Grep ", "Grep", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.tool, func(t *testing.T) {
			m, err := CompileMatcher(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Match(tt.tool))
		})
	}
}

func TestMatcherInvalid(t *testing.T) {
	_, err := CompileMatcher("Bash[")
	assert.Error(t, err)
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   *Response
	}{
		{"block", `{"decision":"block","reason":"no"}`, &Response{Decision: DecisionBlock, Reason: "no"}},
		{"continue with context", "\n {\"decision\":\"continue\",\"additionalContext\":\"ctx\"}\n", &Response{Decision: DecisionContinue, AdditionalContext: "ctx"}},
		{"upper case decision", `{"decision":"BLOCK"}`, &Response{Decision: DecisionBlock}},
		{"plain text", "all good", nil},
		{"unknown decision", `{"decision":"maybe"}`, nil},
		{"no decision", `{"reason":"x"}`, nil},
		{"two objects", "{\"decision\":\"block\"}\n{\"decision\":\"block\"}", nil},
		{"array", `[{"decision":"block"}]`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseResponse(tt.output)
			assert.Equal(t, tt.want != nil, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResponseSchema(t *testing.T) {
	schema, err := ResponseSchema()
	require.NoError(t, err)
	assert.Contains(t, string(schema), `"decision"`)
	assert.Contains(t, string(schema), `"block"`)
	assert.Contains(t, string(schema), `"additionalContext"`)
	assert.Contains(t, string(schema), `"required"`)
}
