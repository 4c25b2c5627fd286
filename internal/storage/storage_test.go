package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/room-relay/backend/internal/model"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir(), "/media")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestLocalStorePut(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	info, err := store.Put(ctx, "recordings/abc.webm", strings.NewReader("audio"), "audio/webm")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if info.URL != "/media/recordings/abc.webm" || info.Size != 5 {
		t.Errorf("unexpected info %+v", info)
	}

	data, err := os.ReadFile(filepath.Join(store.Root(), "recordings", "abc.webm"))
	if err != nil {
		t.Fatalf("failed to read stored file: %v", err)
	}
	if string(data) != "audio" {
		t.Errorf("expected audio, got %s", data)
	}

	if err := store.Delete(ctx, "recordings/abc.webm"); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "recordings/abc.webm"); err != nil {
		t.Errorf("Delete of missing object failed: %v", err)
	}
}

func TestLocalStorePutKeepsExistingObject(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Put(ctx, "chat/photo.png", strings.NewReader("first"), "image/png")
	if err != nil {
		t.Fatalf("first Put failed: %v", err)
	}
	second, err := store.Put(ctx, "chat/photo.png", strings.NewReader("second"), "image/png")
	if err != nil {
		t.Fatalf("second Put failed: %v", err)
	}

	if first.Name != "chat/photo.png" {
		t.Errorf("expected first object to keep its name, got %s", first.Name)
	}
	if second.Name == first.Name || second.URL == first.URL {
		t.Fatalf("expected a distinct name for the second object, got %s", second.Name)
	}
	if !strings.HasPrefix(second.Name, "chat/photo_") || !strings.HasSuffix(second.Name, ".png") {
		t.Errorf("unexpected alternative name %s", second.Name)
	}

	for name, want := range map[string]string{first.Name: "first", second.Name: "second"} {
		data, err := os.ReadFile(filepath.Join(store.Root(), filepath.FromSlash(name)))
		if err != nil {
			t.Fatalf("failed to read %s: %v", name, err)
		}
		if string(data) != want {
			t.Errorf("%s: expected %q, got %q", name, want, data)
		}
	}

	entries, err := os.ReadDir(filepath.Join(store.Root(), "chat"))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected no temporary files left behind, got %d entries", len(entries))
	}
}

func TestLocalStoreRejectsEscapingNames(t *testing.T) {
	store := newTestStore(t)
	for _, name := range []string{"../x", "a/../../x", "", "/abs", "a//b"} {
		if _, err := store.Put(context.Background(), name, strings.NewReader("x"), ""); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Put(%q): expected ErrInvalidName, got %v", name, err)
		}
	}
}

func TestLocalStorePutCanceled(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Put(ctx, "chat/x.bin", strings.NewReader("data"), ""); err == nil {
		t.Fatal("expected canceled put to fail")
	}
	entries, _ := os.ReadDir(filepath.Join(store.Root(), "chat"))
	if len(entries) != 0 {
		t.Errorf("expected no leftovers, got %d entries", len(entries))
	}
}

func TestSafeName(t *testing.T) {
	tests := map[string]string{
		"photo.png":         "photo.png",
		"../../etc/passwd":  "passwd",
		`C:\\Users\\a.txt`: "a.txt",
		"..":                "",
		"":                  "",
	}
	for in, want := range tests {
		if got := SafeName(in); got != want {
			t.Errorf("SafeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestChunkAssembler(t *testing.T) {
	store := newTestStore(t)
	a := NewChunkAssembler(store, "uploads")
	ctx := context.Background()

	parts := []string{"hello ", "chunked ", "world"}
	for i, p := range parts {
		res, err := a.Append(ctx, "big.bin", i, len(parts), strings.NewReader(p))
		if err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
		if i < len(parts)-1 {
			if res.Completed || res.Received != i {
				t.Errorf("chunk %d: unexpected result %+v", i, res)
			}
			continue
		}
		if !res.Completed || res.URL != "/media/uploads/big.bin" {
			t.Errorf("expected completed upload, got %+v", res)
		}
	}

	data, err := os.ReadFile(filepath.Join(store.Root(), "uploads", "big.bin"))
	if err != nil {
		t.Fatalf("failed to read assembled file: %v", err)
	}
	if !bytes.Equal(data, []byte("hello chunked world")) {
		t.Errorf("unexpected content %q", data)
	}
	if _, err := os.Stat(filepath.Join(store.Root(), "uploads", "big.bin.part")); !os.IsNotExist(err) {
		t.Error("expected part file to be gone")
	}
}

func TestChunkAssemblerRestartsOnFirstChunk(t *testing.T) {
	store := newTestStore(t)
	a := NewChunkAssembler(store, "uploads")
	ctx := context.Background()

	a.Append(ctx, "f.txt", 0, 2, strings.NewReader("stale"))
	a.Append(ctx, "f.txt", 0, 2, strings.NewReader("fresh-"))
	if _, err := a.Append(ctx, "f.txt", 1, 2, strings.NewReader("end")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	data, _ := os.ReadFile(filepath.Join(store.Root(), "uploads", "f.txt"))
	if string(data) != "fresh-end" {
		t.Errorf("expected fresh-end, got %q", data)
	}
}

func TestChunkAssemblerValidation(t *testing.T) {
	a := NewChunkAssembler(newTestStore(t), "uploads")
	ctx := context.Background()

	cases := []struct {
		name         string
		index, total int
	}{
		{"", 0, 1},
		{"../x", 0, 1},
		{"x", -1, 1},
		{"x", 0, 0},
		{"x", 2, 2},
	}
	for _, c := range cases {
		if _, err := a.Append(ctx, c.name, c.index, c.total, strings.NewReader("x")); !errors.Is(err, model.ErrInvalidChunk) {
			t.Errorf("Append(%q, %d, %d): expected ErrInvalidChunk, got %v", c.name, c.index, c.total, err)
		}
	}
}
