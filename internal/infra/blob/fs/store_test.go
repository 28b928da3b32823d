package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"roomcore/internal/blob/core"
)

func TestStoreLifecycle(t *testing.T) {
	root := filepath.Join(t.TempDir(), "blobs")
	store, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	if store.Driver() != core.DriverFilesystem {
		t.Fatalf("expected fs driver")
	}

	if _, err := store.Put(ctx, "rooms/main.json", bytes.NewReader([]byte("first")), core.PutOptions{ContentType: "application/json"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	info, err := store.Put(ctx, "rooms/main.json", bytes.NewReader([]byte("second")), core.PutOptions{ContentType: "application/json"})
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if info.Size != 6 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}

	got, rc, err := store.Get(ctx, "rooms/main.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "second" || got.ContentType != "application/json" || got.ETag != info.ETag {
		t.Fatalf("unexpected blob %q %+v", data, got)
	}

	list, err := store.List(ctx, "rooms/")
	if err != nil || len(list) != 1 || list[0].Key != "rooms/main.json" {
		t.Fatalf("list: %v %+v", err, list)
	}

	if ok, err := store.Delete(ctx, "rooms/main.json"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := store.Delete(ctx, "rooms/main.json"); err != nil || ok {
		t.Fatalf("second delete: %v %v", ok, err)
	}
	if _, _, err := store.Get(ctx, "rooms/main.json"); !errors.Is(err, core.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "rooms", "main.json.meta")); !os.IsNotExist(err) {
		t.Fatalf("sidecar should be removed, got %v", err)
	}
}

func TestStoreRejectsUnsafeKeys(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, key := range []string{"", "   ", "../escape", "/abs", "a/../../b", "x.meta"} {
		if _, err := store.Put(context.Background(), key, bytes.NewReader(nil), core.PutOptions{}); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
}
