package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresigner struct {
	gets    int
	puts    int
	lastTTL time.Duration
	err     error
}

func (f *fakePresigner) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	f.gets++
	f.lastTTL = ttl
	if f.err != nil {
		return "", f.err
	}
	return "https://bucket.example/" + key + "?sig=1", nil
}

func (f *fakePresigner) PresignPut(_ context.Context, key, contentType string, ttl time.Duration) (string, error) {
	f.puts++
	f.lastTTL = ttl
	if f.err != nil {
		return "", f.err
	}
	return "https://bucket.example/" + key + "?put=" + contentType, nil
}

func newMiniRedisCache(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisCache(client)
}

func TestResolvePassesThroughAbsoluteURLs(t *testing.T) {
	p := &fakePresigner{}
	r := NewResolver(p, nil, time.Hour, 0)

	url, err := r.Resolve(context.Background(), "https://cdn.example/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/a.jpg", url)
	assert.Zero(t, p.gets)
}

func TestResolveUsesCache(t *testing.T) {
	mr, cache := newMiniRedisCache(t)
	p := &fakePresigner{}
	r := NewResolver(p, cache, time.Hour, 50*time.Minute)
	ctx := context.Background()

	first, err := r.Resolve(ctx, "proposals/c1/a.jpg")
	require.NoError(t, err)
	second, err := r.Resolve(ctx, "proposals/c1/a.jpg")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, p.gets)
	assert.Equal(t, time.Hour, p.lastTTL)
	assert.True(t, mr.Exists(urlKeyPrefix+"proposals/c1/a.jpg"))
	assert.Equal(t, 50*time.Minute, mr.TTL(urlKeyPrefix+"proposals/c1/a.jpg"))

	mr.FastForward(51 * time.Minute)
	_, err = r.Resolve(ctx, "proposals/c1/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, 2, p.gets)
}

func TestResolveSurvivesCacheOutage(t *testing.T) {
	mr, cache := newMiniRedisCache(t)
	mr.Close()

	p := &fakePresigner{}
	r := NewResolver(p, cache, time.Hour, time.Minute)

	url, err := r.Resolve(context.Background(), "k.jpg")
	require.NoError(t, err)
	assert.Contains(t, url, "k.jpg")
}

func TestResolveAllStopsOnError(t *testing.T) {
	p := &fakePresigner{err: errors.New("boom")}
	r := NewResolver(p, nil, time.Hour, 0)

	_, err := r.ResolveAll(context.Background(), []string{"a.jpg", "b.jpg"})
	require.Error(t, err)
	assert.Equal(t, 1, p.gets)

	_, err = NewResolver(nil, nil, 0, 0).Resolve(context.Background(), "a.jpg")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestCacheTTLClampedBelowURLTTL(t *testing.T) {
	r := NewResolver(&fakePresigner{}, nil, time.Hour, 2*time.Hour)
	assert.Equal(t, 50*time.Minute, r.cacheTTL)
}

func TestUploadURL(t *testing.T) {
	p := &fakePresigner{}
	r := NewResolver(p, nil, 10*time.Minute, 0)

	target, err := r.UploadURL(context.Background(), "couple-1", "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(target.Key, "proposals/couple-1/"))
	assert.True(t, strings.HasSuffix(target.Key, ".png"))
	assert.Equal(t, 600, target.ExpiresIn)
	assert.Contains(t, target.UploadURL, target.Key)

	_, err = r.UploadURL(context.Background(), "couple-1", "application/pdf")
	assert.ErrorIs(t, err, ErrUnsupportedMimeType)
}
