package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/presence-app/presence/pkg/models"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	// Create a mini Redis server for testing
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	cache, err := NewCache(mr.Host(), mr.Server().Addr().Port, "", 0)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create cache: %v", err)
	}

	return cache, mr
}

func TestNewCache(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	if err := cache.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestCache_MeditationOperations(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	// Miss before anything is cached
	missed, err := cache.GetMeditation(ctx, "quote-1")
	if err != nil {
		t.Fatalf("GetMeditation failed: %v", err)
	}
	if missed != nil {
		t.Fatal("Expected cache miss")
	}

	m := &models.Meditation{
		ID:       "meditation-1",
		QuoteID:  "quote-1",
		Content:  "Take a slow breath and let the words settle.",
		Language: models.MeditationLanguageEN,
	}

	if err := cache.SetMeditation(ctx, m, 24*time.Hour); err != nil {
		t.Fatalf("SetMeditation failed: %v", err)
	}

	retrieved, err := cache.GetMeditation(ctx, "quote-1")
	if err != nil {
		t.Fatalf("GetMeditation failed: %v", err)
	}
	if retrieved == nil {
		t.Fatal("Retrieved meditation should not be nil")
	}
	if retrieved.Content != m.Content {
		t.Errorf("Expected content %q, got %q", m.Content, retrieved.Content)
	}
	if retrieved.Language != models.MeditationLanguageEN {
		t.Errorf("Expected language en, got %s", retrieved.Language)
	}
}

func TestCache_QuoteOperations(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	quote := &models.Quote{
		ID:       "quote-1",
		Text:     "Be the change you wish to see",
		Author:   "Gandhi",
		IsPublic: true,
	}

	if err := cache.SetQuote(ctx, quote, 5*time.Minute); err != nil {
		t.Fatalf("SetQuote failed: %v", err)
	}

	retrieved, err := cache.GetQuote(ctx, quote.ID)
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if retrieved == nil || retrieved.Text != quote.Text {
		t.Errorf("Unexpected cached quote: %+v", retrieved)
	}

	if err := cache.DeleteQuote(ctx, quote.ID); err != nil {
		t.Fatalf("DeleteQuote failed: %v", err)
	}

	gone, err := cache.GetQuote(ctx, quote.ID)
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if gone != nil {
		t.Error("Expected quote to be evicted")
	}
}

func TestCache_CheckRateLimit(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	// Allowed up to the limit
	for i := 0; i < 3; i++ {
		allowed, err := cache.CheckRateLimit(ctx, "auth:203.0.113.9", 3, time.Minute)
		if err != nil {
			t.Fatalf("CheckRateLimit failed: %v", err)
		}
		if !allowed {
			t.Fatalf("Request %d should be allowed", i+1)
		}
	}

	// Fourth request in the window is rejected
	allowed, err := cache.CheckRateLimit(ctx, "auth:203.0.113.9", 3, time.Minute)
	if err != nil {
		t.Fatalf("CheckRateLimit failed: %v", err)
	}
	if allowed {
		t.Error("Expected request over the limit to be rejected")
	}

	// A fresh window allows requests again
	mr.FastForward(2 * time.Minute)

	allowed, err = cache.CheckRateLimit(ctx, "auth:203.0.113.9", 3, time.Minute)
	if err != nil {
		t.Fatalf("CheckRateLimit failed: %v", err)
	}
	if !allowed {
		t.Error("Expected request in a new window to be allowed")
	}
}
