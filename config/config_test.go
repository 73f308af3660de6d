package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithEnvOverride(t *testing.T) {
	t.Setenv("IDEAGRAPH_JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("IDEAGRAPH_DATABASE_DRIVER", "sqlite")
	t.Setenv("IDEAGRAPH_DATABASE_DSN", "file::memory:")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 5, cfg.Feed.RecentCapacity)
	assert.Equal(t, 50, cfg.Feed.DefaultLimit)
	assert.Equal(t, "log", cfg.Push.Provider)
}

func TestValidate(t *testing.T) {
	base := Config{
		JWT:      JWTConfig{Secret: "0123456789abcdef"},
		Database: DatabaseConfig{Driver: "postgres", DSN: "dsn"},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Feed:     FeedConfig{RecentCapacity: 5},
	}
	require.NoError(t, base.Validate())

	short := base
	short.JWT.Secret = "short"
	assert.Error(t, short.Validate())

	badDriver := base
	badDriver.Database.Driver = "mysql"
	assert.Error(t, badDriver.Validate())

	noRedis := base
	noRedis.Redis.Addr = ""
	assert.Error(t, noRedis.Validate())
}
