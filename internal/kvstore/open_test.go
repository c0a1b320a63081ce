package kvstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestOpenMemory(t *testing.T) {
	s, closeFn, err := Open(context.Background(), "memory", "", "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer closeFn()
	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("got %T, want *MemoryStore", s)
	}
}

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	s, closeFn, err := Open(ctx, "redis", "redis://"+mr.Addr()+"/0", "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer closeFn()

	if err := s.Set(ctx, "cartId", "cart_1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := mr.Get(KeyPrefix + "cartId"); got != "cart_1" {
		t.Errorf("stored value: got %q, want cart_1", got)
	}
}

func TestOpenRedisUnreachable(t *testing.T) {
	if _, _, err := Open(context.Background(), "redis", "redis://127.0.0.1:1/0", ""); err == nil {
		t.Fatal("expected error for unreachable redis")
	}
}

func TestOpenUnknown(t *testing.T) {
	if _, _, err := Open(context.Background(), "etcd", "", ""); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
