// Package mcp exposes the triviality gate to agents over the Model Context
// Protocol.
//
// The server speaks MCP on stdio using github.com/modelcontextprotocol/go-sdk
// and registers a single tool, classify_exchange, which runs an exchange
// through the gate and returns the same decision the HTTP /classify endpoint
// does.
package mcp
