package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"

	"github.com/afoxnyc3/speedboatAgent-sub001/internal/config"
	"github.com/afoxnyc3/speedboatAgent-sub001/internal/domain"
	"github.com/afoxnyc3/speedboatAgent-sub001/internal/ingest"
	mcputil "github.com/afoxnyc3/speedboatAgent-sub001/internal/mcp"
)

// ErrNoInput is returned when ingest has neither an input file nor a directory
var ErrNoInput = errors.New("an input file or a directory is required")

// RunParams contains dependencies for the run functions
type RunParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	CreateServer      func(*config.Settings) (*mcp.Server, func(), error)
	OpenComponents    func(*config.Settings) (*Components, error)
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO

	// Stdout receives command output; nil means os.Stdout
	Stdout    io.Writer
	// LogOutput receives log records; nil means os.Stderr
	LogOutput io.Writer
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:   config.LoadSettingsWithFlags,
		ValidSettings:  config.ValidateSettings,
		CreateServer:   CreateMCPServer,
		OpenComponents: OpenComponents,
	}
}

func (p RunParams) stdout() io.Writer {
	if p.Stdout != nil {
		return p.Stdout
	}
	return os.Stdout
}

// prepare loads and validates settings and configures logging
func prepare(params RunParams, flags *pflag.FlagSet) (*config.Settings, error) {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if err := params.ValidSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := PipelineConfig(settings).Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Always log to stderr so stdout stays clean for the MCP stream and command output
	logOutput := params.LogOutput
	if logOutput == nil {
		logOutput = os.Stderr
	}
	slog.SetDefault(config.NewLogger(logOutput, settings))

	return settings, nil
}

// RunWithDeps serves MCP over stdio with the provided dependencies
func RunWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	settings, err := prepare(params, flags)
	if err != nil {
		return err
	}

	slog.Info("Starting speedboat MCP server", "version", version)
	config.Log(settings)

	mcpServer, cleanup, err := params.CreateServer(settings)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	// Use custom transport if provided (for testing), otherwise use stdio
	transport := params.CustomIOTransport
	if transport == nil {
		transport = &mcp.StdioTransport{}
	}
	return mcpServer.Run(ctx, transport)
}

// RunDedup deduplicates the documents in input and writes the result as JSON
func RunDedup(ctx context.Context, params RunParams, flags *pflag.FlagSet, input string) error {
	if input == "" {
		return ErrNoInput
	}

	settings, err := prepare(params, flags)
	if err != nil {
		return err
	}

	pipeline, err := NewPipeline(settings)
	if err != nil {
		return err
	}

	loaded, err := ingest.LoadDocuments(input)
	if err != nil {
		return err
	}
	if loaded.Skipped > 0 {
		slog.Warn("Skipped undecodable input records", "input", input, "count", loaded.Skipped)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	result := pipeline.Deduplicate(loaded.Documents)

	enc := json.NewEncoder(params.stdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// RunIngest loads documents from input and dir, deduplicates them against
// the index and stores the canonical ones
func RunIngest(ctx context.Context, params RunParams, flags *pflag.FlagSet, input, dir string) error {
	if input == "" && dir == "" {
		return ErrNoInput
	}

	settings, err := prepare(params, flags)
	if err != nil {
		return err
	}
	config.Log(settings)

	var docs []*domain.Document
	if input != "" {
		loaded, err := ingest.LoadDocuments(input)
		if err != nil {
			return err
		}
		if loaded.Skipped > 0 {
			slog.Warn("Skipped undecodable input records", "input", input, "count", loaded.Skipped)
		}
		docs = append(docs, loaded.Documents...)
	}
	if dir != "" {
		scanner := ingest.NewScanner(ingest.NewPathFilter(), settings.Ingest.MaxFileSize, slog.Default())
		scanned, err := scanner.Scan(ctx, dir)
		if err != nil {
			return err
		}
		docs = append(docs, scanned...)
	}

	comps, err := params.OpenComponents(settings)
	if err != nil {
		return err
	}
	defer func() {
		if err := comps.Close(); err != nil {
			slog.Error("Failed to close components", "error", err)
		}
	}()

	report, err := comps.Service.Ingest(ctx, docs)
	if err != nil {
		return err
	}

	res := report.Result
	_, err = fmt.Fprintf(params.stdout(),
		"Processed %d documents: %d indexed, %d duplicates, %d skipped, %d already indexed\n",
		res.Processed, report.Indexed, res.DuplicatesFound, len(res.SkippedDocuments), len(report.AlreadyIndexed))
	return err
}

// CreateMCPServer creates the MCP server with registered tools
func CreateMCPServer(settings *config.Settings) (*mcp.Server, func(), error) {
	comps, err := OpenComponents(settings)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open components: %w", err)
	}

	cleanup := func() {
		if err := comps.Close(); err != nil {
			slog.Error("Failed to close components", "error", err)
		}
	}

	server := mcputil.CreateServer(mcputil.ServerConfig{
		Name:       "speedboat",
		Version:    "1.0.0",
		Pipeline:   comps.Pipeline,
		Checker:    comps.Service,
		Searcher:   comps.Index,
		MaxResults: settings.Store.MaxResults,
	})

	return server, cleanup, nil
}
