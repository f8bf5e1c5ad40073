package redis

import (
	"context"
	"testing"
)

func TestTokenCacheLocalOnly(t *testing.T) {
	cache := NewTokenCache(nil)
	ctx := context.Background()

	if cache.Contains(ctx, "0xaa") {
		t.Error("empty cache should miss")
	}
	cache.Add(ctx, "0xaa")
	if !cache.Contains(ctx, "0xaa") {
		t.Error("added address should hit")
	}
}

func TestTokenCacheClearForgetsEverything(t *testing.T) {
	cache := NewTokenCache(nil)
	ctx := context.Background()

	cache.Add(ctx, "0xaa")
	cache.Add(ctx, "0xbb")
	cache.Clear(ctx)

	if cache.Contains(ctx, "0xaa") || cache.Contains(ctx, "0xbb") {
		t.Error("cleared cache should miss every address")
	}
}
