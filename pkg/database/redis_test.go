package database

import (
	"strconv"
	"studyplan_backend/internal/config"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	rdb, err := InitRedis(&config.RedisConfig{Host: mr.Host(), Port: port, PoolSize: 4, MinIdleConns: 1})
	require.NoError(t, err)
	defer rdb.Close()
	assert.Equal(t, 4, rdb.Options().PoolSize)

	mr.Close()
	_, err = InitRedis(&config.RedisConfig{Host: mr.Host(), Port: port})
	assert.ErrorContains(t, err, "ping redis")
}
