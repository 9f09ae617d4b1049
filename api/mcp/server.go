// Package mcp offers team goals as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/tanpawarit/agent-teams/agent/team"
)

type Server struct {
	httpSrv *mcpserver.StreamableHTTPServer
}

func New(teams *team.Directory, version string) *Server {
	srv := mcpserver.NewMCPServer(
		"agent-teams",
		version,
		mcpserver.WithToolCapabilities(true),
	)
	RegisterTools(srv, teams)

	return &Server{httpSrv: mcpserver.NewStreamableHTTPServer(srv)}
}

// Handler serves the streamable HTTP endpoint.
func (s *Server) Handler() http.Handler {
	return s.httpSrv
}

func RegisterTools(s *mcpserver.MCPServer, teams *team.Directory) {
	s.AddTool(mcpmcp.NewTool("list_goals",
		mcpmcp.WithDescription("List every team with its goals and the capabilities each goal runs."),
		mcpmcp.WithString("team", mcpmcp.Description("Limit the listing to one team")),
	), listGoalsHandler(teams))

	s.AddTool(mcpmcp.NewTool("execute_goal",
		mcpmcp.WithDescription("Run a team goal and return the step results and summary as JSON."),
		mcpmcp.WithString("team", mcpmcp.Required(), mcpmcp.Description("Team name, e.g. bakery")),
		mcpmcp.WithString("goal", mcpmcp.Required(), mcpmcp.Description("Goal name, e.g. plan_production")),
		mcpmcp.WithString("context", mcpmcp.Description("JSON object with the goal's input values")),
	), executeGoalHandler(teams))
}

type goalListing struct {
	Team  string          `json:"team"`
	Goals []team.GoalInfo `json:"goals"`
}

func listGoalsHandler(teams *team.Directory) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		only := mcpmcp.ParseString(req, "team", "")

		var out []goalListing
		for _, l := range teams.All() {
			if only != "" && l.Name() != only {
				continue
			}
			out = append(out, goalListing{Team: l.Name(), Goals: l.Goals()})
		}
		if only != "" && len(out) == 0 {
			return mcpmcp.NewToolResultText("error: team not found"), nil
		}
		return jsonResult(out)
	}
}

func executeGoalHandler(teams *team.Directory) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		teamName := mcpmcp.ParseString(req, "team", "")
		goal := mcpmcp.ParseString(req, "goal", "")
		raw := strings.TrimSpace(mcpmcp.ParseString(req, "context", ""))

		l, ok := teams.Get(teamName)
		if !ok {
			return mcpmcp.NewToolResultText("error: team not found"), nil
		}

		var values map[string]any
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &values); err != nil {
				return mcpmcp.NewToolResultText("error: context must be a JSON object"), nil
			}
		}

		res, err := l.ExecuteGoal(ctx, goal, values)
		if err != nil {
			return mcpmcp.NewToolResultText(fmt.Sprintf("error: %v", err)), nil
		}
		return jsonResult(res)
	}
}

func jsonResult(v any) (*mcpmcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcpmcp.NewToolResultText(string(b)), nil
}
