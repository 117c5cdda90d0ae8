package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/afoxnyc3/speedboatAgent-sub001/internal/domain"
	"github.com/afoxnyc3/speedboatAgent-sub001/internal/store"
)

// DefaultMaxResults is used when no result limit is configured.
const DefaultMaxResults = 20

// SearchArgument defines search_documents parameters.
type SearchArgument struct {
	Query  string `json:"query" jsonschema_description:"Full-text search query"`
	Source string `json:"source,omitempty" jsonschema_description:"Filter by source: repository, web or local"`
}

// SearchHandler handles the search_documents MCP tool.
type SearchHandler struct {
	searcher   DocumentSearcher
	maxResults int
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(searcher DocumentSearcher, maxResults int) *SearchHandler {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &SearchHandler{searcher: searcher, maxResults: maxResults}
}

// Handle executes the search and returns formatted results.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgument) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Query) == "" {
		return errorResult("Query cannot be empty"), nil, nil
	}
	if args.Source != "" {
		if _, err := domain.ParseSource(args.Source); err != nil {
			return errorResult(fmt.Sprintf("Invalid source filter: %s", err)), nil, nil
		}
	}

	results, err := h.searcher.Search(ctx, args.Query, args.Source, h.maxResults)
	if err != nil {
		return errorResult(fmt.Sprintf("Search failed: %s", err)), nil, nil
	}

	return formatResults(results, args.Query), nil, nil
}

// formatResults formats search results for an MCP response.
func formatResults(results *store.SearchResults, queryStr string) *mcp.CallToolResult {
	if results.Total == 0 {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("No results found for query: %s", queryStr)},
			},
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d results for '%s':\n\n", results.Total, queryStr))

	for i, hit := range results.Hits {
		location := hit.FilePath
		if hit.URL != "" {
			location = hit.URL
		}
		sb.WriteString(fmt.Sprintf("### %d. [%s] %s\n", i+1, hit.Source, location))
		sb.WriteString(fmt.Sprintf("**ID**: %s  **Score**: %.4f\n\n", hit.ID, hit.Score))
		if hit.Snippet != "" {
			sb.WriteString("```\n")
			sb.WriteString(hit.Snippet)
			sb.WriteString("\n```\n")
		}
		sb.WriteString("\n")
	}

	if results.Total > uint64(len(results.Hits)) {
		sb.WriteString(fmt.Sprintf("... and %d more results\n", results.Total-uint64(len(results.Hits))))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: sb.String()},
		},
	}
}

// GetToolDefinition returns the MCP tool definition.
func (h *SearchHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "search_documents",
		Description: "Full-text search over indexed canonical documents",
	}
}

// RegisterSearchTool registers the search tool with an MCP server.
func RegisterSearchTool(server *mcp.Server, searcher DocumentSearcher, maxResults int) {
	handler := NewSearchHandler(searcher, maxResults)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
