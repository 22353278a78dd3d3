package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/annel0/oreforged/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutPathReturnsDefaults(t *testing.T) {
	t.Setenv("WORLDGEN_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, world.DefaultConfig(), cfg.World.ToWorldConfig())
	assert.Equal(t, 1, cfg.World.NegativePadding)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worldgen.yaml")
	content := `
server:
  rest_port: 9090
world:
  seed: 42
  size: 16
  ore_mult: 2.5
eventbus:
  url: nats://localhost:4222
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.GetRESTPort())
	assert.Equal(t, uint32(42), cfg.World.Seed)
	assert.Equal(t, 16, cfg.World.Size)
	assert.Equal(t, 32, cfg.World.Height, "незаданные поля остаются по умолчанию")
	assert.Equal(t, 2.5, cfg.World.OreMult)
	assert.Equal(t, "nats://localhost:4222", cfg.EventBus.URL)
	assert.Equal(t, "WORLDGEN", cfg.EventBus.Stream)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.yaml")
	require.NoError(t, os.WriteFile(path, []byte("world:\n  height: 48\n"), 0o644))
	t.Setenv("WORLDGEN_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 48, cfg.World.Height)
}

func TestLoadRejectsInvalidWorld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("world:\n  size: 0\n"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidWorld)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateWorld(t *testing.T) {
	assert.NoError(t, ValidateWorld(world.DefaultConfig()))

	bad := []world.WorldConfig{
		{Size: 0, Height: 32, IslandFactor: 1},
		{Size: 32, Height: -1, IslandFactor: 1},
		{Size: 32, Height: 32, OreMult: -1, IslandFactor: 1},
		{Size: 32, Height: 32, IslandFactor: 0},
	}
	for _, wc := range bad {
		assert.ErrorIs(t, ValidateWorld(wc), ErrInvalidWorld, "%+v", wc)
	}
}

func TestRESTPortFallback(t *testing.T) {
	s := ServerConfig{}

	t.Setenv("WORLDGEN_REST_PORT", "")
	assert.Equal(t, 8088, s.GetRESTPort())

	t.Setenv("WORLDGEN_REST_PORT", "7000")
	assert.Equal(t, 7000, s.GetRESTPort())

	t.Setenv("WORLDGEN_REST_PORT", "abc")
	assert.Equal(t, 8088, s.GetRESTPort())
}

func TestStorageSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.yaml")
	content := `
storage:
  backend: redis
  redis_addr: localhost:6379
  chunk_dir: /var/lib/worldgen
cache:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StorageRedis, cfg.Storage.Backend)
	assert.Equal(t, "/var/lib/worldgen", cfg.Storage.ChunkDir)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 300, cfg.Cache.TTLSeconds)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("storage:\n  backend: cassandra\n"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)
}
