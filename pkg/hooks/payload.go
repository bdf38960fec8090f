package hooks

import (
	"strconv"

	"github.com/jingkaihe/skillkit/pkg/skills"
)

// Payload is written as JSON to the standard input of every hook command.
type Payload struct {
	Event         skills.HookEvent `json:"event"`
	SessionID     string           `json:"session_id"`
	Skill         string           `json:"skill"`
	CWD           string           `json:"cwd"`
	ToolName      string           `json:"tool_name,omitempty"`
	ToolInput     string           `json:"tool_input,omitempty"`
	Preauthorized bool             `json:"tool_preauthorized,omitempty"`
	ToolOutput    string           `json:"tool_output,omitempty"`
	ToolExitCode  *int             `json:"tool_exit_code,omitempty"`
	Prompt        string           `json:"prompt,omitempty"`
}

// env returns the payload as environment variables.
func (p Payload) env(skillDir string) []string {
	env := []string{
		"HOOK_EVENT=" + string(p.Event),
		"SESSION_ID=" + p.SessionID,
		"SKILL_NAME=" + p.Skill,
		"SKILL_DIR=" + skillDir,
		"TOOL_NAME=" + p.ToolName,
		"TOOL_INPUT=" + p.ToolInput,
		"TOOL_OUTPUT=" + p.ToolOutput,
		"TOOL_PREAUTHORIZED=" + strconv.FormatBool(p.Preauthorized),
	}
	if p.ToolExitCode != nil {
		env = append(env, "TOOL_EXIT_CODE="+strconv.Itoa(*p.ToolExitCode))
	}
	if p.Prompt != "" {
		env = append(env, "USER_PROMPT="+p.Prompt)
	}
	return env
}
