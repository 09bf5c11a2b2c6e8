package cache

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/pyapi/csig/internal/extract"
)

func setupTestCache(t *testing.T) (*Cache, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "csig-cache-test-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}

	cache, err := Open(tmpDir)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("open cache: %v", err)
	}

	cleanup := func() {
		cache.Close()
		os.RemoveAll(tmpDir)
	}

	return cache, cleanup
}

var testSignatures = []extract.Signature{
	{Name: "PyErr_Format", ReturnType: "PyObject*", Params: []string{"PyObject*", "const char*", "..."}},
	{Name: "Py_IsInitialized", ReturnType: "int"},
	{Name: "add", ReturnType: "int", Params: []string{"int", "int"}},
}

func TestCacheOpenClose(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "csig-cache-test-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	cache, err := Open(tmpDir)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}

	expectedPath := filepath.Join(tmpDir, "cache.db")
	if cache.Path() != expectedPath {
		t.Errorf("path = %q, want %q", cache.Path(), expectedPath)
	}


	if err := cache.Close(); err != nil {
		t.Errorf("close: %v", err)
	}

	// Reopen should work
	cache2, err := Open(tmpDir)
	if err != nil {
		t.Fatalf("reopen cache: %v", err)
	}
	defer cache2.Close()
}

func TestOpenCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".csig")

	cache, err := Open(dir)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer cache.Close()

	if _, err := os.Stat(cache.Path()); err != nil {
		t.Errorf("database file missing: %v", err)
	}
}

func TestSnapshotSaveAndLoad(t *testing.T) {
	cache, cleanup := setupTestCache(t)
	defer cleanup()

	if err := cache.SaveSnapshot("v3.12", "/usr/include/python3.12", testSignatures); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	got, err := cache.LoadSnapshot("v3.12")
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if !reflect.DeepEqual(got, testSignatures) {
		t.Errorf("loaded %v, want %v", got, testSignatures)
	}

	snap, err := cache.GetSnapshot("v3.12")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if snap.IncludePath != "/usr/include/python3.12" {
		t.Errorf("IncludePath = %q", snap.IncludePath)
	}
	if snap.SignatureCount != len(testSignatures) {
		t.Errorf("SignatureCount = %d, want %d", snap.SignatureCount, len(testSignatures))
	}
	if snap.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestSnapshotReplace(t *testing.T) {
	cache, cleanup := setupTestCache(t)
	defer cleanup()

	if err := cache.SaveSnapshot("base", "", testSignatures); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	if err := cache.SaveSnapshot("base", "", testSignatures[:1]); err != nil {
		t.Fatalf("replace snapshot: %v", err)
	}

	got, err := cache.LoadSnapshot("base")
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 signature after replace, got %d", len(got))
	}

	stats, err := cache.GetStats()
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if stats.SnapshotCount != 1 || stats.SignatureCount != 1 {
		t.Errorf("expected 1 snapshot and 1 signature, got %d and %d", stats.SnapshotCount, stats.SignatureCount)
	}
}

func TestSnapshotEmpty(t *testing.T) {
	cache, cleanup := setupTestCache(t)
	defer cleanup()

	if err := cache.SaveSnapshot("empty", "", nil); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	got, err := cache.LoadSnapshot("empty")
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no signatures, got %v", got)
	}

	if err := cache.SaveSnapshot("", "", nil); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestSnapshotNotFound(t *testing.T) {
	cache, cleanup := setupTestCache(t)
	defer cleanup()

	if _, err := cache.LoadSnapshot("missing"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("LoadSnapshot: expected ErrSnapshotNotFound, got %v", err)
	}
	if err := cache.DeleteSnapshot("missing"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("DeleteSnapshot: expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestListAndDeleteSnapshots(t *testing.T) {
	cache, cleanup := setupTestCache(t)
	defer cleanup()

	for _, name := range []string{"b", "a", "c"} {
		if err := cache.SaveSnapshot(name, "", testSignatures); err != nil {
			t.Fatalf("save snapshot %s: %v", name, err)
		}
	}

	if err := cache.DeleteSnapshot("b"); err != nil {
		t.Fatalf("delete snapshot: %v", err)
	}

	snaps, err := cache.ListSnapshots()
	if err != nil {
		t.Fatalf("list snapshots: %v", err)
	}
	var names []string
	for _, s := range snaps {
		names = append(names, s.Name)
	}
	if !reflect.DeepEqual(names, []string{"a", "c"}) {
		t.Errorf("snapshots = %v, want [a c]", names)
	}

	stats, err := cache.GetStats()
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if stats.SignatureCount != int64(2*len(testSignatures)) {
		t.Errorf("SignatureCount = %d, want %d", stats.SignatureCount, 2*len(testSignatures))
	}
}

func TestCacheClear(t *testing.T) {
	cache, cleanup := setupTestCache(t)
	defer cleanup()

	if err := cache.SaveSnapshot("base", "", testSignatures); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	if err := cache.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}

	stats, err := cache.GetStats()
	if err != nil {
		t.Fatalf("get stats after clear: %v", err)
	}
	if stats.SnapshotCount != 0 || stats.SignatureCount != 0 {
		t.Errorf("expected empty cache, got %d snapshots and %d signatures", stats.SnapshotCount, stats.SignatureCount)
	}
}
