package cache_test

import (
	"testing"
	"time"

	"github.com/docledger/docledger-go/internal/domain"
	"github.com/docledger/docledger-go/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[domain.Snapshot](5 * time.Minute)

	c.Set("ledger", domain.Snapshot{Accounts: []domain.Account{{ID: "acc-1"}}})
	snap, ok := c.Get("ledger")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if len(snap.Accounts) != 1 || snap.Accounts[0].ID != "acc-1" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[domain.Snapshot](5 * time.Minute)

	_, ok := c.Get("nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	c.Set("key1", "value1")
	c.Delete("key1")

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected key to be deleted")
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Len())
	}
}
