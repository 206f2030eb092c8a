package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.Addr)
	assert.True(t, c.Introspection)
	assert.Equal(t, 10*time.Second, c.Timeout)
	assert.Equal(t, 1000, c.QueryCacheSize)
	assert.Empty(t, c.Schemas)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GQLTOOLS_ADDR", ":9999")
	t.Setenv("GQLTOOLS_SCHEMA", "a.graphql,b.graphql")
	t.Setenv("GQLTOOLS_INTROSPECTION", "false")
	t.Setenv("GQLTOOLS_TIMEOUT", "3s")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", c.Addr)
	assert.Equal(t, []string{"a.graphql", "b.graphql"}, c.Schemas)
	assert.False(t, c.Introspection)
	assert.Equal(t, 3*time.Second, c.Timeout)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("GQLTOOLS_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(file, []byte("GQLTOOLS_ADDR=:7070\n"), 0o600))
	t.Setenv("GQLTOOLS_ADDR", "")

	logger, hook := logtest.NewNullLogger()
	LoadEnv(logger, file, filepath.Join(t.TempDir(), "missing.env"))
	assert.Empty(t, hook.AllEntries())

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7070", c.Addr)
}
