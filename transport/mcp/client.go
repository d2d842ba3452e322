package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Client is a thin MCP client that proxies to the relay's REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Spectator Cam Relay",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Spectator Cam Relay - MCP Interface

This is a thin client that proxies all requests to the relay's REST API.

The relay sits between a live match's telemetry feed and the broadcast
overlay. Its camera follows whoever the operator points it at, and can
automatically snap to the next player who deals damage.

AVAILABLE TOOLS:
- swap_cam: arm the automatic swap; the camera follows the next attacker
- change_cam: point the camera at a player (fuzzy-matched) or a POI slot
- list_players: names known from the current match
- relay_status: swap-arm state, roster size, connected clients

POI SLOTS: 1=Next player, 2=Previous player, 3=Kill leader,
4=Closest enemy, 5=Closest player, 6=Last attacker`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "swap_cam",
		Description: "Arm the automatic camera swap; the next qualifying damage event switches the camera to the attacker",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleSwapCam)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "change_cam",
		Description: "Point the spectator camera at a player by (approximate) name, or at a point-of-interest slot",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Player name; typos are resolved against the current roster",
				},
				"poi": map[string]interface{}{
					"type":        "number",
					"description": "Point-of-interest slot 1-6 (overrides name)",
				},
			},
		},
	}, c.handleChangeCam)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_players",
		Description: "List the player names known from the current match",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListPlayers)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "relay_status",
		Description: "Report swap-arm state, roster size, and open connections",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleRelayStatus)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
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

// Tool handlers

func (c *Client) handleSwapCam(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Message string `json:"message"`
	}

	if err := c.apiCall("POST", "/api/swap", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(resp.Message), nil
}

func (c *Client) handleChangeCam(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	name, _ := args["name"].(string)
	poi, _ := args["poi"].(float64)

	body := map[string]interface{}{}
	if poi != 0 {
		body["poi"] = int(poi)
	} else if name != "" {
		body["name"] = name
	} else {
		return mcp.NewToolResultError("either name or poi is required"), nil
	}

	var resp struct {
		Target string `json:"target"`
	}
	if err := c.apiCall("POST", "/api/spectate", body, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Camera switched to: %s", resp.Target)), nil
}

func (c *Client) handleListPlayers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Count   int      `json:"count"`
		Players []string `json:"players"`
	}

	if err := c.apiCall("GET", "/api/players", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if resp.Count == 0 {
		return mcp.NewToolResultText("No players known yet; the roster fills as players connect."), nil
	}

	result := fmt.Sprintf("Known players (%d):\n", resp.Count)
	for _, name := range resp.Players {
		result += fmt.Sprintf("- %s\n", name)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleRelayStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Armed       bool `json:"armed"`
		Players     int  `json:"players"`
		Connections int  `json:"connections"`
	}

	if err := c.apiCall("GET", "/api/status", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	armed := "DISARMED"
	if resp.Armed {
		armed = "ARMED"
	}
	result := fmt.Sprintf("Swap: %s\nPlayers in roster: %d\nOpen connections: %d",
		armed, resp.Players, resp.Connections)
	return mcp.NewToolResultText(result), nil
}
