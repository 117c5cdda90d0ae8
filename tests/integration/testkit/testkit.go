package testkit

import (
	"context"
	"fmt"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"

	"github.com/afoxnyc3/speedboatAgent-sub001/internal/app"
	"github.com/afoxnyc3/speedboatAgent-sub001/internal/config"
)

// PropSession is the property holding the *mcp.ClientSession of an MCPService
const PropSession = "mcp.session"

// Service represents a test service that can be started and stopped
type Service interface {
	Start() (map[string]any, error)
	Stop() error
	GetName() string
}

// TestEnvContext provides access to properties collected during environment startup
type TestEnvContext interface {
	GetProperties() map[string]any
	GetProperty(name string) (any, bool)
}

// TestEnv manages the lifecycle of test services
type TestEnv interface {
	Start() (map[string]any, error)
	Stop() error
	GetContext() TestEnvContext
}

type testEnvContextImpl struct {
	properties map[string]any
}

func (c *testEnvContextImpl) GetProperties() map[string]any {
	return c.properties
}

func (c *testEnvContextImpl) GetProperty(name string) (any, bool) {
	val, ok := c.properties[name]
	return val, ok
}

type testEnvImpl struct {
	services []Service
	context  *testEnvContextImpl
}

// NewTestEnv creates a new test environment with the given services
func NewTestEnv(services ...Service) TestEnv {
	return &testEnvImpl{
		services: services,
		context:  &testEnvContextImpl{properties: make(map[string]any)},
	}
}

func (e *testEnvImpl) Start() (map[string]any, error) {
	for _, s := range e.services {
		props, err := s.Start()
		if err != nil {
			return nil, err
		}
		for k, v := range props {
			e.context.properties[k] = v
		}
	}
	return e.context.properties, nil
}

func (e *testEnvImpl) Stop() error {
	var lastErr error
	// Stop in reverse order
	for i := len(e.services) - 1; i >= 0; i-- {
		if err := e.services[i].Stop(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (e *testEnvImpl) GetContext() TestEnvContext {
	return e.context
}

// FlagOptions configures NewTestFlags
type FlagOptions struct {
	BaseDir          string // Uses a temp dir if empty
	ContentThreshold int    // Defaults to 5
	HashAlgorithm    string // Defaults to "sha256"
	IndexName        string // Defaults to "documents"
}

// NewTestFlags creates a parsed pflag.FlagSet with the application flags set
// for testing
func NewTestFlags(t testing.TB, opts *FlagOptions) *pflag.FlagSet {
	t.Helper()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	app.RegisterFlags(flags)

	baseDir := ""
	threshold := 5
	hash := "sha256"
	indexName := "documents"

	if opts != nil {
		baseDir = opts.BaseDir
		if opts.ContentThreshold != 0 {
			threshold = opts.ContentThreshold
		}
		if opts.HashAlgorithm != "" {
			hash = opts.HashAlgorithm
		}
		if opts.IndexName != "" {
			indexName = opts.IndexName
		}
	}

	if baseDir == "" {
		baseDir = t.TempDir()
	}

	args := []string{
		"--base-dir", baseDir,
		"--content-threshold", fmt.Sprintf("%d", threshold),
		"--hash-algorithm", hash,
		"--index-name", indexName,
		"--log-level", "error",
	}
	if err := flags.Parse(args); err != nil {
		t.Fatalf("Failed to parse test flags: %v", err)
	}

	return flags
}

// MCPService runs the application MCP server in process and connects a
// client to it over in-memory transports
type MCPService struct {
	Settings *config.Settings

	cleanup       func()
	serverSession *mcp.ServerSession
	clientSession *mcp.ClientSession
}

// NewMCPService creates an MCPService for the given settings
func NewMCPService(settings *config.Settings) *MCPService {
	return &MCPService{Settings: settings}
}

// Start creates the server, connects a client and publishes the session
// under PropSession
func (s *MCPService) Start() (map[string]any, error) {
	server, cleanup, err := app.CreateMCPServer(s.Settings)
	if err != nil {
		return nil, err
	}
	s.cleanup = cleanup

	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	s.serverSession, err = server.Connect(ctx, serverTransport, nil)
	if err != nil {
		_ = s.Stop()
		return nil, fmt.Errorf("failed to connect server: %w", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "testkit", Version: "1.0.0"}, nil)
	s.clientSession, err = client.Connect(ctx, clientTransport, nil)
	if err != nil {
		_ = s.Stop()
		return nil, fmt.Errorf("failed to connect client: %w", err)
	}

	return map[string]any{PropSession: s.clientSession}, nil
}

// Stop closes both sessions and releases the server components
func (s *MCPService) Stop() error {
	var err error
	if s.clientSession != nil {
		err = s.clientSession.Close()
		s.clientSession = nil
	}
	if s.serverSession != nil {
		_ = s.serverSession.Wait()
		s.serverSession = nil
	}
	if s.cleanup != nil {
		s.cleanup()
		s.cleanup = nil
	}
	return err
}

// GetName returns the service name
func (s *MCPService) GetName() string {
	return "mcp"
}

// MustSession returns the client session published by an MCPService
func MustSession(t testing.TB, env TestEnv) *mcp.ClientSession {
	t.Helper()
	val, ok := env.GetContext().GetProperty(PropSession)
	if !ok {
		t.Fatal("No MCP session in test environment")
	}
	session, ok := val.(*mcp.ClientSession)
	if !ok {
		t.Fatalf("Unexpected session type %T", val)
	}
	return session
}
