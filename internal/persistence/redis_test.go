package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/config"
)

func TestRedisOptions(t *testing.T) {
	t.Run("host and port", func(t *testing.T) {
		opts, err := redisOptions(config.RedisConfig{Addr: "cache:6379", DB: 2, Password: "pw"})
		require.NoError(t, err)
		assert.Equal(t, "cache:6379", opts.Addr)
		assert.Equal(t, 2, opts.DB)
		assert.Equal(t, "pw", opts.Password)
		assert.Equal(t, 2*time.Second, opts.DialTimeout)
	})
	t.Run("url", func(t *testing.T) {
		opts, err := redisOptions(config.RedisConfig{Addr: "redis://:secret@cache:6380/3"})
		require.NoError(t, err)
		assert.Equal(t, "cache:6380", opts.Addr)
		assert.Equal(t, 3, opts.DB)
		assert.Equal(t, "secret", opts.Password)
	})
	t.Run("bad url", func(t *testing.T) {
		_, err := redisOptions(config.RedisConfig{Addr: "redis://cache:6379/notadb"})
		assert.Error(t, err)
	})
}

func TestNewRedis_DisabledWithoutAddr(t *testing.T) {
	r, err := NewRedis(config.RedisConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.Nil(t, r.ClientHandle())
	assert.Error(t, r.Ping(context.Background()))
	r.Close()
}
