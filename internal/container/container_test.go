package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/credentialing/internal/application/service"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "cred.db")
	cfg.Templates.Dir = filepath.Join("..", "..", "templates")
	cfg.Templates.ImportOnBoot = true
	return cfg
}

func TestContainer_Lifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.Addr = mr.Addr()

	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	assert.True(t, c.Ready())
	assert.Error(t, c.Start(context.Background()), "second start must fail")

	templates, err := c.Services().Templates.List(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, templates)

	result, err := c.Services().Generation.Generate(context.Background(), service.GenerateRequest{
		ProviderID: "prov-1",
		PayerIDs:   []string{templates[0].PayerID},
		Actor:      "ops",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ApplicationsCreated)

	entries, err := mr.Stream(cfg.Redis.Stream)
	require.NoError(t, err)
	assert.NotEmpty(t, entries, "events should be published to the stream")

	health := c.Health(context.Background())
	assert.True(t, health.Overall, "%+v", health.Components)
	assert.Contains(t, health.Components, "redis")

	server, err := c.HTTPServer()
	require.NoError(t, err)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "credentialing_generation_outcomes_total"))

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close())
}

func TestContainer_StartFailures(t *testing.T) {
	t.Run("unreachable redis", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Redis.Addr = "127.0.0.1:1"
		c, err := NewContainer(cfg, zap.NewNop())
		require.NoError(t, err)
		assert.Error(t, c.Start(context.Background()))
	})

	t.Run("missing template dir", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Templates.Dir = filepath.Join(t.TempDir(), "missing")
		c, err := NewContainer(cfg, zap.NewNop())
		require.NoError(t, err)
		assert.Error(t, c.Start(context.Background()))
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Database.Path = ""
		_, err := NewContainer(cfg, zap.NewNop())
		assert.Error(t, err)
	})
}

func TestContainer_MetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false
	cfg.Templates.ImportOnBoot = false

	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	assert.Nil(t, c.MetricsRegistry())
	server, err := c.HTTPServer()
	require.NoError(t, err)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestContainer_Workers(t *testing.T) {
	cfg := testConfig(t)
	cfg.Templates.ImportOnBoot = false

	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Error(t, c.StartWorkers(context.Background()), "workers need a started container")

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, 1, c.workers.Count())
	require.NoError(t, c.StartWorkers(context.Background()))
	assert.True(t, c.workers.IsRunning())
	require.NoError(t, c.Close())

	disabled := testConfig(t)
	disabled.Templates.ImportOnBoot = false
	disabled.Workers.OverdueInterval = 0
	c, err = NewContainer(disabled, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()
	assert.Equal(t, 0, c.workers.Count())
	assert.NoError(t, c.StartWorkers(context.Background()))
}
