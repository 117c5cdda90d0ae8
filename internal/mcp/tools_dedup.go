package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/afoxnyc3/speedboatAgent-sub001/internal/dedup"
	"github.com/afoxnyc3/speedboatAgent-sub001/internal/domain"
)

// DocumentArgument is a document as supplied by an MCP client.
type DocumentArgument struct {
	ID           string  `json:"id" jsonschema_description:"Document ID, unique within the request"`
	Content      string  `json:"content" jsonschema_description:"Raw text body"`
	Source       string  `json:"source" jsonschema_description:"Origin system: repository, web or local"`
	FilePath     string  `json:"filepath,omitempty" jsonschema_description:"Origin-relative path or URL path"`
	Priority     float64 `json:"priority,omitempty" jsonschema_description:"Authority weight, defaults to 1.0"`
	URL          string  `json:"url,omitempty" jsonschema_description:"Canonical URL for web documents"`
	LastModified string  `json:"last_modified,omitempty" jsonschema_description:"Last modification time in RFC 3339 format"`
}

// DeduplicateArgument defines deduplicate_documents parameters.
type DeduplicateArgument struct {
	Documents []DocumentArgument `json:"documents" jsonschema_description:"Documents to deduplicate"`
}

// ToDocument validates the argument and converts it to a domain document.
func (a DocumentArgument) ToDocument() (*domain.Document, error) {
	source, err := domain.ParseSource(a.Source)
	if err != nil {
		return nil, fmt.Errorf("document %q: %w", a.ID, err)
	}

	doc := &domain.Document{
		ID:       a.ID,
		Content:  a.Content,
		Source:   source,
		FilePath: a.FilePath,
		Priority: a.Priority,
		Metadata: domain.Metadata{URL: a.URL},
	}
	if a.LastModified != "" {
		t, err := time.Parse(time.RFC3339, a.LastModified)
		if err != nil {
			return nil, fmt.Errorf("document %q: invalid last_modified: %w", a.ID, err)
		}
		doc.Metadata.LastModified = &t
	}
	return doc, nil
}

// DedupHandler handles the deduplicate_documents MCP tool.
type DedupHandler struct {
	pipeline *dedup.Pipeline
}

// NewDedupHandler creates a new deduplication handler.
func NewDedupHandler(pipeline *dedup.Pipeline) *DedupHandler {
	return &DedupHandler{pipeline: pipeline}
}

// Handle runs the pipeline over the supplied documents.
func (h *DedupHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args DeduplicateArgument) (*mcp.CallToolResult, any, error) {
	docs := make([]*domain.Document, 0, len(args.Documents))
	for _, arg := range args.Documents {
		doc, err := arg.ToDocument()
		if err != nil {
			return errorResult(fmt.Sprintf("Invalid document: %s", err)), nil, nil
		}
		docs = append(docs, doc)
	}

	result := h.pipeline.Deduplicate(docs)

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to encode result: %s", err)), nil, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: formatSummary(result)},
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}

// formatSummary renders a short human-readable account of a result.
func formatSummary(result *domain.DeduplicationResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Processed %d documents: %d canonical, %d duplicates in %d groups, %d skipped.\n",
		result.Processed,
		len(result.CanonicalDocuments),
		result.DuplicatesFound,
		len(result.DuplicateGroups),
		len(result.SkippedDocuments),
	))

	for i, group := range result.DuplicateGroups {
		ids := make([]string, len(group.Duplicates))
		for j, d := range group.Duplicates {
			ids[j] = d.ID
		}
		sb.WriteString(fmt.Sprintf("%d. %s kept over [%s] (%s, confidence %.2f)\n",
			i+1, group.CanonicalDocument.ID, strings.Join(ids, ", "), group.Reason, group.Confidence))
	}
	return sb.String()
}

// GetToolDefinition returns the MCP tool definition.
func (h *DedupHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "deduplicate_documents",
		Description: "Group exact, same-URL and near-duplicate documents and pick one canonical document per group",
	}
}

// RegisterDedupTool registers the deduplication tool with an MCP server.
func RegisterDedupTool(server *mcp.Server, pipeline *dedup.Pipeline) {
	handler := NewDedupHandler(pipeline)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
