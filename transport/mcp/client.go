package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/richardl62/richards-old-games-server/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL, version string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer(version)
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer(version string) {
	c.mcpServer = server.NewMCPServer(
		"Game Session Server",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Game Session Server - MCP Interface

This is a thin client that proxies all requests to the REST API server.

Players connect over WebSocket and join sessions; these tools observe and
administer the sessions.

AVAILABLE TOOLS:
- list_sessions: List all live sessions
- create_session: Start a session without members (optional id and kind)
- get_session: Get session details, players and shared state
- get_session_state: Get only the shared state document
- delete_session: Detach the players of a session and remove it
- clear_sessions: Remove every session
- list_kinds: List the configured session kinds

NOTE: A session started here is removed after a period of inactivity unless a player joins it.`),
	)

	c.registerTools()
}

func sessionIDSchema(description string) mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"session_id": map[string]interface{}{
				"type":        "string",
				"description": description,
			},
		},
		Required: []string{"session_id"},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all live sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Start a session without members",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Proposed session ID (optional, allocated when omitted)",
				},
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "Session kind (optional, the configured default when omitted)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: sessionIDSchema("Session ID to retrieve"),
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session_state",
		Description: "Get the shared state document of a session",
		InputSchema: sessionIDSchema("Session ID"),
	}, c.handleGetSessionState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_session",
		Description: "Detach every player from a session and remove it",
		InputSchema: sessionIDSchema("Session ID to remove"),
	}, c.handleDeleteSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "clear_sessions",
		Description: "Remove every session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleClearSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_kinds",
		Description: "List the configured session kinds",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListKinds)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func stringArg(request mcp.CallToolRequest, name string) string {
	args, _ := request.Params.Arguments.(map[string]interface{})
	v, _ := args[name].(string)
	return strings.TrimSpace(v)
}

// Tool handlers

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Live Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		result += fmt.Sprintf("- %s (Kind: %s, Members: %d, Created: %s)\n",
			s.ID, s.Kind, s.Members, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := service.CreateSessionRequest{
		ID:   stringArg(request, "session_id"),
		Kind: stringArg(request, "kind"),
	}

	var session service.SessionInfo
	err := c.apiCall(ctx, "POST", "/api/sessions", body, &session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nKind: %s\n", session.ID, session.Kind)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(request, "session_id")
	if sessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	var session service.SessionInfo
	err := c.apiCall(ctx, "GET", "/api/sessions/"+sessionID, nil, &session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGetSessionState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(request, "session_id")
	if sessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	var doc map[string]interface{}
	err := c.apiCall(ctx, "GET", "/api/sessions/"+sessionID+"/state", nil, &doc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (c *Client) handleDeleteSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(request, "session_id")
	if sessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	if err := c.apiCall(ctx, "DELETE", "/api/sessions/"+sessionID, nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Removed session: %s\n", sessionID)), nil
}

func (c *Client) handleClearSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Cleared int `json:"cleared"`
	}
	if err := c.apiCall(ctx, "DELETE", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Cleared %d sessions\n", response.Cleared)), nil
}

func (c *Client) handleListKinds(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var kinds service.KindsInfo
	if err := c.apiCall(ctx, "GET", "/api/kinds", nil, &kinds); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Default kind: %s\n", kinds.DefaultKind)
	if !kinds.Restricted {
		b.WriteString("Any well-formed kind may be created.\n")
		return mcp.NewToolResultText(b.String()), nil
	}

	b.WriteString("\nKinds:\n")
	for _, k := range kinds.Kinds {
		if k.Description != "" {
			fmt.Fprintf(&b, "- %s: %s\n", k.Name, k.Description)
		} else {
			fmt.Fprintf(&b, "- %s\n", k.Name)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n", session.ID)
	fmt.Fprintf(&b, "Kind: %s\n", session.Kind)
	fmt.Fprintf(&b, "Created: %s\n", session.CreatedAt.Format(time.RFC3339))
	if session.LastActivityAt != nil {
		fmt.Fprintf(&b, "Last activity: %s\n", session.LastActivityAt.Format(time.RFC3339))
	}

	fmt.Fprintf(&b, "\nPlayers (%d):\n", session.Members)
	for _, p := range session.Players {
		fmt.Fprintf(&b, "- %d %s\n", p.PlayerID, p.DisplayName)
	}

	if len(session.State) == 0 {
		b.WriteString("\nState: (empty)\n")
		return b.String()
	}

	keys := make([]string, 0, len(session.State))
	for k := range session.State {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteString("\nState:\n")
	for _, k := range keys {
		v, err := json.Marshal(session.State[k])
		if err != nil {
			v = []byte(fmt.Sprintf("%v", session.State[k]))
		}
		fmt.Fprintf(&b, "  %s: %s\n", k, v)
	}
	return b.String()
}
