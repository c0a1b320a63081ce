package kvstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- Mock DBTX ---

type mockRow struct {
	value string
	err   error
}

func (r mockRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.value
	return nil
}

type mockDB struct {
	execFn     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return m.execFn(ctx, sql, args...)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return m.queryRowFn(ctx, sql, args...)
}

func TestPostgresStore_Get(t *testing.T) {
	db := &mockDB{
		queryRowFn: func(_ context.Context, sql string, args ...any) pgx.Row {
			if args[0] == "cartId" {
				return mockRow{value: "cart_1_abc"}
			}
			return mockRow{err: pgx.ErrNoRows}
		},
	}
	store := NewPostgresStore(db)

	v, err := store.Get(context.Background(), "cartId")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != "cart_1_abc" {
		t.Errorf("value: got %q", v)
	}

	if _, err := store.Get(context.Background(), "cart"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing key: got %v, want ErrNotFound", err)
	}
}

func TestPostgresStore_SetUpserts(t *testing.T) {
	var gotSQL string
	var gotArgs []any
	db := &mockDB{
		execFn: func(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			gotSQL, gotArgs = sql, args
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		},
	}

	if err := NewPostgresStore(db).Set(context.Background(), "cart", `[{"id":"1"}]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !strings.Contains(gotSQL, "ON CONFLICT (key) DO UPDATE") {
		t.Errorf("expected upsert, got %q", gotSQL)
	}
	if len(gotArgs) != 2 || gotArgs[0] != "cart" {
		t.Errorf("unexpected args: %v", gotArgs)
	}
}

func TestPostgresStore_ExecErrorWrapped(t *testing.T) {
	db := &mockDB{
		execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, errors.New("connection refused")
		},
	}

	err := NewPostgresStore(db).Remove(context.Background(), "cart")
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if pe.Op != "remove" {
		t.Errorf("op: got %q, want remove", pe.Op)
	}
}
