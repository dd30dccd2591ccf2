package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T, ttl time.Duration) (*RedisService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	svc := NewRedisServiceWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), ttl)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, mr
}

func TestRedisServiceStagedRoundTrip(t *testing.T) {
	svc, mr := newTestRedis(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, svc.Ping(ctx))

	key := "test-md5:bedroom:modern"
	require.NoError(t, svc.SetStaged(ctx, key, []byte("jpeg")))
	got, err := svc.GetStaged(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(got))

	assert.True(t, mr.Exists("staged:"+key))
	assert.Equal(t, time.Minute, mr.TTL("staged:"+key))
}

func TestRedisServiceMissReturnsNil(t *testing.T) {
	svc, _ := newTestRedis(t, time.Minute)

	missing, err := svc.GetStaged(context.Background(), "test-md5:none:none")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRedisServiceEntriesExpire(t *testing.T) {
	svc, mr := newTestRedis(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, svc.SetStaged(ctx, "k", []byte("jpeg")))
	mr.FastForward(time.Hour + time.Second)

	got, err := svc.GetStaged(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisServiceReportsConnectionErrors(t *testing.T) {
	svc, mr := newTestRedis(t, time.Minute)
	mr.Close()

	_, err := svc.GetStaged(context.Background(), "k")
	assert.Error(t, err)
}
