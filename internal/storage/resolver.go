// Package storage resolves image storage keys to fetchable URLs and
// issues upload URLs for new proposal images.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotConfigured       = errors.New("object storage is not configured")
	ErrUnsupportedMimeType = errors.New("unsupported content type")
)

var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/heic": "heic",
}

// UploadTarget is a presigned PUT and the key the object will live under
type UploadTarget struct {
	UploadURL string `json:"upload_url"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expires_in"`
}

// Resolver turns storage keys into presigned URLs, caching the result for
// less than the URL lifetime.
type Resolver struct {
	presigner Presigner
	cache     Cache
	urlTTL    time.Duration
	cacheTTL  time.Duration
}

// NewResolver creates a resolver. presigner may be nil when no bucket is
// configured; cache may be nil to disable caching.
func NewResolver(presigner Presigner, cache Cache, urlTTL, cacheTTL time.Duration) *Resolver {
	if urlTTL <= 0 {
		urlTTL = time.Hour
	}
	if cacheTTL <= 0 || cacheTTL >= urlTTL {
		cacheTTL = urlTTL * 5 / 6
	}
	return &Resolver{
		presigner: presigner,
		cache:     cache,
		urlTTL:    urlTTL,
		cacheTTL:  cacheTTL,
	}
}

// Resolve returns a fetchable URL for key. Keys that already are absolute
// http(s) URLs are returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, key string) (string, error) {
	if strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
		return key, nil
	}
	if r.presigner == nil {
		return "", ErrNotConfigured
	}

	if r.cache != nil {
		url, err := r.cache.Get(ctx, key)
		if err == nil {
			return url, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			log.Warn().Err(err).Str("key", key).Msg("Image URL cache read failed")
		}
	}

	url, err := r.presigner.PresignGet(ctx, key, r.urlTTL)
	if err != nil {
		return "", err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, url, r.cacheTTL); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Image URL cache write failed")
		}
	}
	return url, nil
}

// ResolveAll resolves keys in order and stops at the first failure
func (r *Resolver) ResolveAll(ctx context.Context, keys []string) ([]string, error) {
	urls := make([]string, 0, len(keys))
	for _, key := range keys {
		url, err := r.Resolve(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", key, err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// UploadURL presigns a PUT for a new image under prefix
func (r *Resolver) UploadURL(ctx context.Context, prefix, contentType string) (*UploadTarget, error) {
	if r.presigner == nil {
		return nil, ErrNotConfigured
	}
	ext, ok := imageExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMimeType, contentType)
	}

	key := fmt.Sprintf("proposals/%s/%s.%s", prefix, uuid.New().String(), ext)
	url, err := r.presigner.PresignPut(ctx, key, contentType, r.urlTTL)
	if err != nil {
		return nil, err
	}

	return &UploadTarget{
		UploadURL: url,
		Key:       key,
		ExpiresIn: int(r.urlTTL.Seconds()),
	}, nil
}
