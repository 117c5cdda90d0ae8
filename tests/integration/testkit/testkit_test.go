package testkit

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/afoxnyc3/speedboatAgent-sub001/internal/config"
)

// stubService records its lifecycle calls.
type stubService struct {
	name     string
	props    map[string]any
	startErr error
	stopErr  error
	stops    *[]string
}

func (s *stubService) Start() (map[string]any, error) {
	return s.props, s.startErr
}

func (s *stubService) Stop() error {
	if s.stops != nil {
		*s.stops = append(*s.stops, s.name)
	}
	return s.stopErr
}

func (s *stubService) GetName() string {
	return s.name
}

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	settings, err := config.LoadSettingsWithFlags(NewTestFlags(t, nil))
	if err != nil {
		t.Fatalf("LoadSettingsWithFlags failed: %v", err)
	}
	return settings
}

func TestNewTestEnv_Empty(t *testing.T) {
	env := NewTestEnv()

	props, err := env.Start()
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if len(props) != 0 || len(env.GetContext().GetProperties()) != 0 {
		t.Errorf("Expected no properties, got %v", props)
	}
	if err := env.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestTestEnv_PublishesSession(t *testing.T) {
	env := NewTestEnv(
		&stubService{name: "fixtures", props: map[string]any{"corpus": "docs.jsonl"}},
		NewMCPService(testSettings(t)),
	)
	props, err := env.Start()
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = env.Stop() }()

	if props["corpus"] != "docs.jsonl" {
		t.Errorf("Expected stub property to be merged, got %v", props["corpus"])
	}
	if _, ok := props[PropSession].(*mcp.ClientSession); !ok {
		t.Fatalf("Expected %s to hold a client session, got %T", PropSession, props[PropSession])
	}

	val, ok := env.GetContext().GetProperty(PropSession)
	if !ok || val != props[PropSession] {
		t.Error("Expected context to expose the published session")
	}
	if _, ok := env.GetContext().GetProperty("missing"); ok {
		t.Error("Expected unknown property to be absent")
	}

	if _, err := MustSession(t, env).ListTools(context.Background(), &mcp.ListToolsParams{}); err != nil {
		t.Errorf("ListTools over the published session failed: %v", err)
	}
}

func TestTestEnv_StartError(t *testing.T) {
	settings := testSettings(t)
	settings.Dedup.BatchSize = 0

	env := NewTestEnv(&stubService{name: "fixtures"}, NewMCPService(settings))
	_, err := env.Start()
	if err == nil {
		t.Fatal("Expected Start to fail for an invalid pipeline config")
	}
	if !strings.Contains(err.Error(), "batch_size") {
		t.Errorf("Expected batch_size error, got %v", err)
	}
	if _, ok := env.GetContext().GetProperty(PropSession); ok {
		t.Error("Expected no session after a failed start")
	}
}

func TestTestEnv_Stop(t *testing.T) {
	t.Run("reverse order", func(t *testing.T) {
		var stops []string
		env := NewTestEnv(
			&stubService{name: "first", stops: &stops},
			&stubService{name: "second", stops: &stops},
		)
		if err := env.Stop(); err != nil {
			t.Fatalf("Stop failed: %v", err)
		}
		if strings.Join(stops, ",") != "second,first" {
			t.Errorf("Expected second,first, got %v", stops)
		}
	})

	t.Run("earliest service error wins", func(t *testing.T) {
		env := NewTestEnv(
			&stubService{name: "first", stopErr: errors.New("first failed")},
			&stubService{name: "second", stopErr: errors.New("second failed")},
		)
		if err := env.Stop(); err == nil || err.Error() != "first failed" {
			t.Errorf("Expected 'first failed', got %v", err)
		}
	})

	t.Run("mcp service stops twice", func(t *testing.T) {
		svc := NewMCPService(testSettings(t))
		env := NewTestEnv(svc)
		if _, err := env.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if err := env.Stop(); err != nil {
			t.Fatalf("First stop failed: %v", err)
		}
		if err := svc.Stop(); err != nil {
			t.Errorf("Second stop should be a no-op, got %v", err)
		}
	})
}

func TestNewTestFlags(t *testing.T) {
	t.Run("default options", func(t *testing.T) {
		flags := NewTestFlags(t, nil)

		baseDir, _ := flags.GetString("base-dir")
		if baseDir == "" {
			t.Error("Expected a temp base dir")
		}

		threshold, _ := flags.GetInt("content-threshold")
		if threshold != 5 {
			t.Errorf("Expected content-threshold 5, got %d", threshold)
		}

		hash, _ := flags.GetString("hash-algorithm")
		if hash != "sha256" {
			t.Errorf("Expected hash-algorithm 'sha256', got %s", hash)
		}
	})

	t.Run("custom options", func(t *testing.T) {
		dir := t.TempDir()
		flags := NewTestFlags(t, &FlagOptions{
			BaseDir:          dir,
			ContentThreshold: 42,
			HashAlgorithm:    "xxhash",
			IndexName:        "custom",
		})

		baseDir, _ := flags.GetString("base-dir")
		if baseDir != dir {
			t.Errorf("Expected base-dir %s, got %s", dir, baseDir)
		}

		threshold, _ := flags.GetInt("content-threshold")
		if threshold != 42 {
			t.Errorf("Expected content-threshold 42, got %d", threshold)
		}

		indexName, _ := flags.GetString("index-name")
		if indexName != "custom" {
			t.Errorf("Expected index-name 'custom', got %s", indexName)
		}
	})

	t.Run("flags load into settings", func(t *testing.T) {
		settings, err := config.LoadSettingsWithFlags(NewTestFlags(t, &FlagOptions{HashAlgorithm: "xxhash"}))
		if err != nil {
			t.Fatalf("LoadSettingsWithFlags failed: %v", err)
		}
		if settings.Dedup.HashAlgorithm != "xxhash" || settings.Dedup.ContentThreshold != 5 {
			t.Errorf("Unexpected dedup settings: %+v", settings.Dedup)
		}
	})
}

func TestMCPService(t *testing.T) {
	env := NewTestEnv(NewMCPService(testSettings(t)))
	if _, err := env.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() {
		if err := env.Stop(); err != nil {
			t.Errorf("Stop failed: %v", err)
		}
	}()

	session := MustSession(t, env)
	tools, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}

	names := make(map[string]bool)
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"deduplicate_documents", "check_document", "search_documents"} {
		if !names[want] {
			t.Errorf("Expected tool %q to be registered", want)
		}
	}
}
