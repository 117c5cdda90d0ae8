package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/afoxnyc3/speedboatAgent-sub001/internal/dedup"
	"github.com/afoxnyc3/speedboatAgent-sub001/internal/domain"
	"github.com/afoxnyc3/speedboatAgent-sub001/internal/store"
)

// DocumentChecker reports whether content is already stored.
type DocumentChecker interface {
	Check(ctx context.Context, content, url string) *domain.ExistingRef
}

// DocumentSearcher runs full-text queries over stored documents.
type DocumentSearcher interface {
	Search(ctx context.Context, query, source string, size int) (*store.SearchResults, error)
}

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name    string
	Version string

	// Pipeline enables deduplicate_documents when set.
	Pipeline *dedup.Pipeline

	// Checker enables check_document when set.
	Checker DocumentChecker

	// Searcher enables search_documents when set.
	Searcher   DocumentSearcher
	MaxResults int
}

// CreateServer creates and configures the MCP server
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	if cfg.Pipeline != nil {
		RegisterDedupTool(s, cfg.Pipeline)
	}
	if cfg.Checker != nil {
		RegisterCheckTool(s, cfg.Checker)
	}
	if cfg.Searcher != nil {
		RegisterSearchTool(s, cfg.Searcher, cfg.MaxResults)
	}

	return s
}

// errorResult builds a tool error result with a single text message.
func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: true,
	}
}
