package cache

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cache", "bundles.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPutGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	key := Key("1 + 2")

	if _, err := store.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Put(ctx, key, []byte("first")); err != nil {
		t.Fatal(err)
	}
	data, err := store.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte("first")) {
		t.Errorf("expected %q, got %q", "first", data)
	}

	if err := store.Put(ctx, key, []byte("second")); err != nil {
		t.Fatal(err)
	}
	data, err = store.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte("second")) {
		t.Errorf("expected upsert to replace data, got %q", data)
	}

	n, err := store.Len(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 bundle, got %d", n)
	}
}

func TestPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundles.db")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if store.Path() != path {
		t.Errorf("expected path %q, got %q", path, store.Path())
	}
	if err := store.Put(ctx, "k", []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	data, err := reopened.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte{1, 2, 3}) {
		t.Errorf("unexpected data %v", data)
	}
}

func TestKey(t *testing.T) {
	if Key("1") == Key("2") {
		t.Error("different sources share a key")
	}
	if Key("1") != Key("1") {
		t.Error("key is not stable")
	}
	if len(Key("")) != 64 {
		t.Errorf("expected hex sha-256, got %q", Key(""))
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := Key(string(rune('a' + i)))
			if err := store.Put(ctx, key, []byte{byte(i)}); err != nil {
				errs <- err
				return
			}
			if _, err := store.Get(ctx, key); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
