// Package mcp exposes the relay's operator commands as MCP tools.
//
// The package is a thin proxy: every tool call turns into a request
// against the relay's REST API, so an MCP-speaking assistant can drive
// the spectator camera the same way a chat bot does. It registers four
// tools: swap_cam, change_cam, list_players, and relay_status.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:7777")
//	server.ServeStdio(client.GetMCPServer())
package mcp
