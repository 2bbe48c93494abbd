package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/morikuni/failure/v2"
	"github.com/stretchr/testify/require"
	"github.com/stylusport/handbook-mcp/scaffold"
	"github.com/stylusport/handbook-mcp/search"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for key := range versionEnv(&scaffold.Versions{}) {
		t.Setenv(key, "")
	}
	for _, key := range []string{"STYLUSPORT_WORKERS", "STYLUSPORT_CORPUS_DIR", "STYLUSPORT_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, 4, cfg.Server.Workers)
	require.Equal(t, "auto", cfg.Server.Framing)
	require.Equal(t, 5, cfg.Search.DefaultLimit)
	require.Equal(t, 50, cfg.Search.MaxLimit)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "=0.9.0", cfg.Scaffold.Versions.StylusSDK)
	require.NoError(t, cfg.Validate())

	p, err := cfg.SearchParams()
	require.NoError(t, err)
	require.Equal(t, search.DefaultParams(), p)
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	t.Setenv("HANDBOOK_DIR", "/srv/handbook")
	t.Setenv("STYLUSPORT_TEST_LEVEL", "")

	path := writeConfig(t, `
server:
  workers: 8
  framing: header
search:
  k1: 1.5
  default_limit: 3
  fields:
    - name: title
      weight: 3
      b: 0.5
    - name: code
      mode: code
      weight: 1
      b: 0.25
corpus:
  dir: ${HANDBOOK_DIR}
scaffold:
  versions:
    motsu: "0.11.0"
log:
  level: ${STYLUSPORT_TEST_LEVEL:-debug}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8, cfg.Server.Workers)
	require.Equal(t, "header", cfg.Server.Framing)
	require.Equal(t, "/srv/handbook", cfg.Corpus.Dir)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "0.11.0", cfg.Scaffold.Versions.Motsu)
	require.Equal(t, "0.3.0", cfg.Scaffold.Versions.OpenZeppelinStylus)

	p, err := cfg.SearchParams()
	require.NoError(t, err)
	require.Equal(t, search.Params{
		K1: 1.5,
		Fields: []search.FieldSpec{
			{Name: "title", Mode: search.Prose, Weight: 3, B: 0.5},
			{Name: "code", Mode: search.Code, Weight: 1, B: 0.25},
		},
	}, p)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STYLUSPORT_MCP_STYLUS_SDK_VERSION", "=0.10.0")
	t.Setenv("STYLUSPORT_WORKERS", "2")
	t.Setenv("STYLUSPORT_CORPUS_DIR", "/tmp/chapters")
	t.Setenv("STYLUSPORT_LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, "server:\n  workers: 16\n"))
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Server.Workers)
	require.Equal(t, "/tmp/chapters", cfg.Corpus.Dir)
	require.Equal(t, "warn", cfg.Log.Level)
	require.Equal(t, "=0.10.0", cfg.Scaffold.Versions.StylusSDK)
	require.Equal(t, "=0.8.20", cfg.Scaffold.Versions.AlloyPrimitives)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		env      map[string]string
		wantCode ErrorCode
	}{
		{name: "malformed yaml", content: "server: [", wantCode: InvalidConfig},
		{name: "unknown framing", content: "server:\n  framing: websocket\n", wantCode: InvalidConfig},
		{name: "unknown log level", content: "log:\n  level: loud\n", wantCode: InvalidConfig},
		{name: "limit above max", content: "search:\n  default_limit: 80\n", wantCode: InvalidConfig},
		{name: "unknown field mode", content: "search:\n  fields:\n    - name: body\n      mode: regex\n      weight: 1\n", wantCode: InvalidConfig},
		{name: "b out of range", content: "search:\n  fields:\n    - name: body\n      weight: 1\n      b: 2\n", wantCode: InvalidConfig},
		{name: "bad workers env", content: "", env: map[string]string{"STYLUSPORT_WORKERS": "many"}, wantCode: InvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			require.True(t, failure.Is(err, tt.wantCode), "error = %v", err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.True(t, failure.Is(err, ReadFailure), "error = %v", err)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("STYLUSPORT_TEST_SET", "value")
	t.Setenv("STYLUSPORT_TEST_EMPTY", "")

	got := expandEnvVars([]byte("a=${STYLUSPORT_TEST_SET} b=${STYLUSPORT_TEST_EMPTY:-fallback} c=${STYLUSPORT_TEST_EMPTY}"))
	require.Equal(t, "a=value b=fallback c=", string(got))
}
