package cache

import (
	"context"
	"testing"

	"footballsocial/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRedis_ConnectsAndCloses(t *testing.T) {
	mr := miniredis.RunT(t)

	InitRedis(mr.Addr())
	require.NotNil(t, GetClient())
	assert.NoError(t, GetClient().Ping(context.Background()).Err())

	assert.NoError(t, Close())
	assert.Nil(t, GetClient())
	assert.NoError(t, Close())
}

func TestInitRedis_URLForm(t *testing.T) {
	mr := miniredis.RunT(t)

	InitRedis("redis://" + mr.Addr() + "/0")
	require.NotNil(t, GetClient())
	t.Cleanup(func() { _ = Close() })
}

func TestInitRedis_UnreachableLeavesNilClient(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	InitRedis(addr)
	assert.Nil(t, GetClient())

	InitRedis("redis://%zz")
	assert.Nil(t, GetClient())
}

func TestMetricsHook_CountsErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewClient(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	mr.SetError("READONLY forced failure")
	before := testutil.ToFloat64(middleware.RedisErrors.WithLabelValues("incr"))
	_ = c.Incr(context.Background(), "k").Err()
	assert.Equal(t, before+1, testutil.ToFloat64(middleware.RedisErrors.WithLabelValues("incr")))
}
