package storage

import (
	"context"
	"path/filepath"
	"sort"
	"testing"
)

// conformanceBackends returns every backend this test environment can
// exercise without a live network service. PostgresBackend is covered
// separately (it implements the same Database interface against a real
// server) since it needs a running instance to open.
func conformanceBackends(t *testing.T) map[string]Database {
	t.Helper()
	session, err := NewSessionBackend(filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("NewSessionBackend: %v", err)
	}
	t.Cleanup(func() { session.Close() })

	return map[string]Database{
		"volatile": NewVolatileBackend(),
		"session":  session,
	}
}

func TestDatabaseGetPutRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, db := range conformanceBackends(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := db.Get(ctx, "missing"); err != nil || ok {
				t.Fatalf("Get(missing) = ok=%v err=%v, want ok=false err=nil", ok, err)
			}
			if err := db.Put(ctx, "k1", []byte("v1")); err != nil {
				t.Fatalf("Put: %v", err)
			}
			v, ok, err := db.Get(ctx, "k1")
			if err != nil || !ok || string(v) != "v1" {
				t.Fatalf("Get(k1) = %q ok=%v err=%v, want v1/true/nil", v, ok, err)
			}
		})
	}
}

func TestDatabaseBatchAtomicOrdering(t *testing.T) {
	ctx := context.Background()
	for name, db := range conformanceBackends(t) {
		t.Run(name, func(t *testing.T) {
			ops := []Op{
				PutOp("a", []byte("1")),
				PutOp("b", []byte("2")),
				PutOp("a", []byte("3")),
				DeleteOp("b"),
			}
			if err := db.Batch(ctx, ops); err != nil {
				t.Fatalf("Batch: %v", err)
			}
			v, ok, err := db.Get(ctx, "a")
			if err != nil || !ok || string(v) != "3" {
				t.Fatalf("Get(a) = %q ok=%v err=%v, want 3/true/nil (later put wins)", v, ok, err)
			}
			if _, ok, err := db.Get(ctx, "b"); err != nil || ok {
				t.Fatalf("Get(b) = ok=%v err=%v, want ok=false (deleted within same batch)", ok, err)
			}
		})
	}
}

func TestDatabaseKeysPrefix(t *testing.T) {
	ctx := context.Background()
	for name, db := range conformanceBackends(t) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []string{"tree:0:1", "tree:0:2", "other:0:1"} {
				if err := db.Put(ctx, k, []byte{1}); err != nil {
					t.Fatalf("Put(%s): %v", k, err)
				}
			}
			keys, err := db.Keys(ctx, "tree:")
			if err != nil {
				t.Fatalf("Keys: %v", err)
			}
			sort.Strings(keys)
			want := []string{"tree:0:1", "tree:0:2"}
			if len(keys) != len(want) || keys[0] != want[0] || keys[1] != want[1] {
				t.Fatalf("Keys(tree:) = %v, want %v", keys, want)
			}
		})
	}
}

func TestDatabasePutOverwrites(t *testing.T) {
	ctx := context.Background()
	for name, db := range conformanceBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := db.Put(ctx, "k", []byte("first")); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := db.Put(ctx, "k", []byte("second")); err != nil {
				t.Fatalf("Put: %v", err)
			}
			v, ok, err := db.Get(ctx, "k")
			if err != nil || !ok || string(v) != "second" {
				t.Fatalf("Get(k) = %q ok=%v err=%v, want second/true/nil", v, ok, err)
			}
		})
	}
}
