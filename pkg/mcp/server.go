// Package mcp serves the skill catalog to MCP clients over stdio. Clients
// discover skills by description, load a body to activate it and then read
// the references that body links to.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/selector"
	"github.com/jingkaihe/skillkit/pkg/session"
	"github.com/jingkaihe/skillkit/pkg/version"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"
)

// ServerName is reported to clients during initialization.
const ServerName = "skillkit"

const instructions = `Skills are instruction bundles. Call select_skills with the user's request
to find relevant skills, load_skill to read a skill's instructions, and read_reference to open a
file that a loaded skill links to.`

// Server exposes one session's worth of skills over MCP.
type Server struct {
	session  *session.Session
	selector *selector.Selector
	mcp      *server.MCPServer
}

// NewServer registers the skill tools. Every load_skill call activates the
// skill in sess.
func NewServer(sess *session.Session, sel *selector.Selector) *Server {
	s := &Server{
		session:  sess,
		selector: sel,
		mcp: server.NewMCPServer(
			ServerName,
			version.Get().Version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
			server.WithInstructions(instructions),
		),
	}

	s.mcp.AddTool(mcpgo.NewTool("list_skills",
		mcpgo.WithDescription("List every registered skill with its description."),
	), s.handleListSkills)

	s.mcp.AddTool(mcpgo.NewTool("select_skills",
		mcpgo.WithDescription("Rank skills against a user request and return those that match."),
		mcpgo.WithString("request", mcpgo.Required(), mcpgo.Description("The user's request")),
		mcpgo.WithBoolean("explain", mcpgo.Description("Return scores for every skill, including non-matches")),
	), s.handleSelectSkills)

	s.mcp.AddTool(mcpgo.NewTool("load_skill",
		mcpgo.WithDescription("Activate a skill and return its instructions and direct references."),
		mcpgo.WithString("name", mcpgo.Required(), mcpgo.Description("Skill name")),
	), s.handleLoadSkill)

	s.mcp.AddTool(mcpgo.NewTool("read_reference",
		mcpgo.WithDescription("Read a file linked directly from a loaded skill."),
		mcpgo.WithString("name", mcpgo.Required(), mcpgo.Description("Skill name")),
		mcpgo.WithString("path", mcpgo.Required(), mcpgo.Description("Reference path as listed by load_skill")),
	), s.handleReadReference)

	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio(ctx context.Context) error {
	logger.G(ctx).WithField("session", s.session.ID()).Info("serving skills over MCP stdio")
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleListSkills(_ context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	type entry struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	all := s.selector.Catalog().All()
	out := make([]entry, 0, len(all))
	for _, d := range all {
		out = append(out, entry{Name: d.Name, Description: d.Description})
	}
	return jsonResult(out)
}

func (s *Server) handleSelectSkills(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	request, err := requireString(req, "request")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	var matches []selector.Match
	if explain, _ := req.GetArguments()["explain"].(bool); explain {
		matches = s.selector.Explain(request)
	} else {
		matches = s.selector.Select(ctx, request)
	}
	if matches == nil {
		matches = []selector.Match{}
	}
	return jsonResult(matches)
}

func (s *Server) handleLoadSkill(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	name, err := requireString(req, "name")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	body, err := s.session.Activate(ctx, name)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString(body.Content)
	if len(body.References) > 0 {
		b.WriteString("\n\n---\nReferences (use read_reference):\n")
		for _, ref := range body.References {
			fmt.Fprintf(&b, "- %s\n", ref)
		}
	}
	return mcpgo.NewToolResultText(b.String()), nil
}

func (s *Server) handleReadReference(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	name, err := requireString(req, "name")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	ref, err := requireString(req, "path")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	doc, err := s.session.ResolveReference(ctx, name, ref)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	return mcpgo.NewToolResultText(doc.Content), nil
}

func requireString(req mcpgo.CallToolRequest, key string) (string, error) {
	v, ok := req.GetArguments()[key].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", errors.Errorf("argument %q is required", key)
	}
	return v, nil
}

func jsonResult(v any) (*mcpgo.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcpgo.NewToolResultText(string(data)), nil
}
