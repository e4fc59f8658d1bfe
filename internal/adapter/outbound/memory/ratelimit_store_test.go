package memory

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestRateLimitStoreIncrementWithExpire(t *testing.T) {
	s := NewRateLimitStore(nil)
	count, err := s.IncrementWithExpire(context.Background(), "bucket-1", 60, 1000)
	if err != nil {
		t.Fatalf("IncrementWithExpire: %v", err)
	}
	if count != 1 {
		t.Fatalf("first increment = %d, want 1", count)
	}
	count, err = s.IncrementWithExpire(context.Background(), "bucket-1", 60, 1000)
	if err != nil {
		t.Fatalf("IncrementWithExpire: %v", err)
	}
	if count != 2 {
		t.Fatalf("second increment = %d, want 2", count)
	}
}

func TestRateLimitStoreExpiredBucketResets(t *testing.T) {
	s := NewRateLimitStore(nil)
	if _, err := s.IncrementWithExpire(context.Background(), "bucket-1", 10, 1000); err != nil {
		t.Fatalf("IncrementWithExpire: %v", err)
	}
	count, err := s.IncrementWithExpire(context.Background(), "bucket-1", 10, 1011)
	if err != nil {
		t.Fatalf("IncrementWithExpire: %v", err)
	}
	if count != 1 {
		t.Fatalf("increment after expiry = %d, want reset to 1", count)
	}
}

func TestRateLimitStoreCleanupEvictsExpiredBuckets(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewRateLimitStoreWithInterval(nil, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	s.StartCleanup(ctx)

	if _, err := s.IncrementWithExpire(context.Background(), "bucket-1", 0, time.Now().Unix()-1); err != nil {
		t.Fatalf("IncrementWithExpire: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Size() == 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if s.Size() != 0 {
		t.Fatalf("Size() = %d after cleanup, want 0", s.Size())
	}

	cancel()
	s.Stop()
}

func TestRateLimitStoreStopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewRateLimitStore(nil)
	s.StartCleanup(context.Background())
	s.Stop()
	s.Stop()
}
