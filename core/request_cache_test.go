package core

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRequestCachePutTake(t *testing.T) {
	c := NewRequestCache(time.Minute, 10, nopLogger{})
	defer c.Close()

	id := uuid.New()
	req := PutRequest{MessageID: id, Name: "obj"}
	c.Put(id, req)

	got, err := c.Take(id)
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	if got.Name != "obj" {
		t.Fatalf("expected name obj, got %s", got.Name)
	}

	if _, err := c.Take(id); !errors.Is(err, ErrCachedRequestMissing) {
		t.Fatalf("expected ErrCachedRequestMissing on second take, got %v", err)
	}
}

func TestRequestCacheTakeMissing(t *testing.T) {
	c := NewRequestCache(time.Minute, 10, nopLogger{})
	defer c.Close()
	if _, err := c.Take(uuid.New()); !errors.Is(err, ErrCachedRequestMissing) {
		t.Fatalf("expected ErrCachedRequestMissing, got %v", err)
	}
}

func TestRequestCacheCapacityEvictsOldest(t *testing.T) {
	c := NewRequestCache(time.Minute, 2, nopLogger{})
	defer c.Close()

	first := uuid.New()
	second := uuid.New()
	third := uuid.New()

	c.Put(first, PutRequest{MessageID: first})
	time.Sleep(time.Millisecond)
	c.Put(second, PutRequest{MessageID: second})
	time.Sleep(time.Millisecond)
	c.Put(third, PutRequest{MessageID: third})

	if _, err := c.Take(first); !errors.Is(err, ErrCachedRequestMissing) {
		t.Fatalf("expected oldest entry evicted, got err=%v", err)
	}
	if _, err := c.Take(second); err != nil {
		t.Fatalf("expected second entry to survive: %v", err)
	}
	if _, err := c.Take(third); err != nil {
		t.Fatalf("expected third entry to survive: %v", err)
	}
}

func TestRequestCacheReaperExpiresEntries(t *testing.T) {
	c := NewRequestCache(20*time.Millisecond, 10, nopLogger{})
	defer c.Close()

	id := uuid.New()
	c.Put(id, PutRequest{MessageID: id})

	time.Sleep(150 * time.Millisecond)

	if _, err := c.Take(id); !errors.Is(err, ErrCachedRequestMissing) {
		t.Fatalf("expected entry reaped after TTL elapsed, got err=%v", err)
	}
}
