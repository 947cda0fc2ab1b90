package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"persona-studio-server/modules/common/config"
)

func TestOptions(t *testing.T) {
	cfg := &config.Config{
		RedisHost:     "cache.internal",
		RedisPort:     "6380",
		RedisUsername: "default",
		RedisPassword: "secret",
		RedisUseTLS:   true,
	}

	opts := options(cfg)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, "default", opts.Username)
	assert.Equal(t, "secret", opts.Password)
	require.NotNil(t, opts.TLSConfig)
	assert.Equal(t, "cache.internal", opts.TLSConfig.ServerName)

	cfg.RedisUseTLS = false
	assert.Nil(t, options(cfg).TLSConfig)
}
