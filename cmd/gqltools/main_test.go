package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	config "github.com/hanpama/gqltools/internal/config"
	eventbus "github.com/hanpama/gqltools/internal/eventbus"
	logging "github.com/hanpama/gqltools/internal/logging"
	metrics "github.com/hanpama/gqltools/internal/metrics"
	server "github.com/hanpama/gqltools/internal/server"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func schemaDir(t *testing.T) string {
	dir := t.TempDir()
	writeFile(t, dir, "query.graphql", "type Query { shelf: Shelf }\n")
	writeFile(t, dir, "types/shelf.graphqls", "type Shelf { label: String count: Int }\n")
	writeFile(t, dir, "README.md", "not a schema")
	return dir
}

func TestCompileToStdout(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"compile", "--schema", schemaDir(t)}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "type Query")
	assert.Contains(t, out.String(), "type Shelf")
}

func TestCompileToFile(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.graphql", "type Query { a: String }")
	b := writeFile(t, dir, "b.graphql", "extend type Query { b: Int }")
	outFile := filepath.Join(dir, "schema.graphql")

	var out bytes.Buffer
	require.NoError(t, run([]string{"compile", "-s", a, "-s", b, "--out", outFile}, &out))
	assert.Empty(t, out.String())

	sdl, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(sdl), "a: String")
	assert.Contains(t, string(sdl), "b: Int")
}

func TestCheck(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"check", "--schema", schemaDir(t)}, &out))
	assert.Equal(t, "ok: 2 types\n", out.String())

	bad := writeFile(t, t.TempDir(), "bad.graphql", "type Query { a: Missing }")
	err := run([]string{"check", "--schema", bad}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Missing")
}

func TestSchemaFromEnvironment(t *testing.T) {
	t.Setenv("GQLTOOLS_SCHEMA", schemaDir(t))
	var out bytes.Buffer
	require.NoError(t, run([]string{"check"}, &out))
	assert.Equal(t, "ok: 2 types\n", out.String())
}

func TestMissingSchema(t *testing.T) {
	err := run([]string{"check"}, &bytes.Buffer{})
	assert.EqualError(t, err, "at least one --schema is required")
}

func TestLoadSourcesOrder(t *testing.T) {
	dir := schemaDir(t)
	sources, err := loadSources([]string{dir})
	require.NoError(t, err)
	var names []string
	for _, s := range sources {
		names = append(names, strings.TrimPrefix(s.Name, dir))
	}
	sep := string(filepath.Separator)
	assert.Equal(t, []string{sep + "query.graphql", sep + "types" + sep + "shelf.graphqls"}, names)
}

func TestServeRoutes(t *testing.T) {
	dir := schemaDir(t)
	mocks := writeFile(t, dir, "mocks.yaml", "Shelf.label: fiction\n")
	cfg := &config.Config{
		Schemas:       []string{dir},
		Mocks:         mocks,
		Introspection: true,
	}

	bus := eventbus.New()
	eventbus.Use(bus)
	t.Cleanup(func() { eventbus.Use(nil) })
	m := metrics.New()
	t.Cleanup(m.Subscribe(bus))

	s, err := buildMockSchema(context.Background(), cfg, logging.New(&bytes.Buffer{}, "debug"))
	require.NoError(t, err)
	h, err := server.New(s)
	require.NoError(t, err)
	srv := httptest.NewServer(newRouter(h, m))
	t.Cleanup(srv.Close)
	t.Cleanup(http.DefaultClient.CloseIdleConnections)

	resp, err := http.Post(srv.URL+"/graphql", "application/json",
		strings.NewReader(`{"query":"{ shelf { label count } __schema { queryType { name } } }"}`))
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, map[string]any{
		"shelf":    map[string]any{"label": "fiction", "count": 42.0},
		"__schema": map[string]any{"queryType": map[string]any{"name": "Query"}},
	}, body["data"])

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	var metricsBody bytes.Buffer
	_, _ = metricsBody.ReadFrom(resp.Body)
	resp.Body.Close()
	assert.Contains(t, metricsBody.String(), "gqltools_schema_types 2")

	resp, err = http.Post(srv.URL+"/healthz", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
