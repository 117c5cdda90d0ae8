package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CheckArgument defines check_document parameters.
type CheckArgument struct {
	Content string `json:"content" jsonschema_description:"Document body to look up"`
	URL     string `json:"url,omitempty" jsonschema_description:"Canonical URL, part of the fingerprint when present"`
}

// CheckHandler handles the check_document MCP tool.
type CheckHandler struct {
	checker DocumentChecker
}

// NewCheckHandler creates a new check handler.
func NewCheckHandler(checker DocumentChecker) *CheckHandler {
	return &CheckHandler{checker: checker}
}

// Handle reports whether the document fingerprint is already stored.
func (h *CheckHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args CheckArgument) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Content) == "" {
		return errorResult("Content cannot be empty"), nil, nil
	}

	ref := h.checker.Check(ctx, args.Content, args.URL)
	if ref == nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: "Document is not indexed yet"},
			},
		}, nil, nil
	}

	var sb strings.Builder
	sb.WriteString("Document is already indexed\n")
	sb.WriteString(fmt.Sprintf("- id: %s\n", ref.ID))
	sb.WriteString(fmt.Sprintf("- source: %s\n", ref.Source))
	if ref.FilePath != "" {
		sb.WriteString(fmt.Sprintf("- filepath: %s\n", ref.FilePath))
	}
	if ref.LastModified != nil {
		sb.WriteString(fmt.Sprintf("- last_modified: %s\n", ref.LastModified.Format(time.RFC3339)))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: sb.String()},
		},
	}, nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *CheckHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "check_document",
		Description: "Check whether a document with the same normalized content and URL is already indexed",
	}
}

// RegisterCheckTool registers the check tool with an MCP server.
func RegisterCheckTool(server *mcp.Server, checker DocumentChecker) {
	handler := NewCheckHandler(checker)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
