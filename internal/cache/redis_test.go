package cache

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRedisRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := NewRedis("redis://"+mr.Addr(), zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestRedisBadURL(t *testing.T) {
	_, err := NewRedis("not-a-url", zap.NewNop())
	require.Error(t, err)
}
