package kv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateKey(t *testing.T) {
	valid := []string{"prefs/theme", "search/history", "wishlist/items", "a"}
	for _, k := range valid {
		assert.NoError(t, ValidateKey(k), k)
	}
	invalid := []string{"", "  ", "/abs", "a//b", "../escape", "a/../b", "a/b c", "a/", `a\b`}
	for _, k := range invalid {
		assert.Error(t, ValidateKey(k), k)
	}
}

func storeContract(t *testing.T, s Store) {
	t.Helper()

	_, ok, err := s.Get("prefs/theme")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("prefs/theme", []byte("dark")))
	v, ok, err := s.Get("prefs/theme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "dark", string(v))

	require.NoError(t, s.Set("prefs/theme", []byte("light")))
	v, _, _ = s.Get("prefs/theme")
	assert.Equal(t, "light", string(v))

	require.NoError(t, s.Remove("prefs/theme"))
	require.NoError(t, s.Remove("prefs/theme"))
	_, ok, err = s.Get("prefs/theme")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, s.Set("../x", []byte("nope")))
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())

	var zero MemoryStore
	require.NoError(t, zero.Set("a/b", []byte("1")))
	assert.Equal(t, []string{"a/b"}, zero.Keys())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := NewMemoryStore()
	buf := []byte("abc")
	require.NoError(t, s.Set("k/v", buf))
	buf[0] = 'z'
	v, _, _ := s.Get("k/v")
	assert.Equal(t, "abc", string(v))
	v[1] = 'z'
	v2, _, _ := s.Get("k/v")
	assert.Equal(t, "abc", string(v2))
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "kv"))
	require.NoError(t, err)
	storeContract(t, s)
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Set("wishlist/items", []byte("[]")))
	}
	entries, err := os.ReadDir(filepath.Join(dir, "wishlist"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "items", entries[0].Name())
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	a, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, a.Set("identity/user", []byte("u-1")))

	b, err := NewFileStore(dir)
	require.NoError(t, err)
	v, ok, err := b.Get("identity/user")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "u-1", string(v))
}

func TestNewFileStoreRejectsEmptyDir(t *testing.T) {
	_, err := NewFileStore("  ")
	assert.Error(t, err)
}

type failingStore struct {
	*MemoryStore
	fail string
}

func (f failingStore) Set(key string, value []byte) error {
	if key == f.fail {
		return errors.New("disk full")
	}
	return f.MemoryStore.Set(key, value)
}

func TestWriterAppliesInOrderAndReportsErrors(t *testing.T) {
	mem := NewMemoryStore()
	var mu sync.Mutex
	var failed []string
	w := NewWriter(failingStore{MemoryStore: mem, fail: "bad/key"}, func(key string, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, key)
	})
	defer w.Close()

	for _, v := range []string{"1", "2", "3"} {
		w.Set("votes/helpful", []byte(v))
	}
	w.Set("bad/key", []byte("x"))
	w.Set("prefs/grid", []byte("2"))
	w.Remove("prefs/grid")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, w.Flush(ctx))

	v, ok, _ := mem.Get("votes/helpful")
	require.True(t, ok)
	assert.Equal(t, "3", string(v))
	_, ok, _ = mem.Get("prefs/grid")
	assert.False(t, ok)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"bad/key"}, failed)
}

func TestWriterCloseDrainsQueue(t *testing.T) {
	mem := NewMemoryStore()
	w := NewWriter(mem, nil)
	w.Set("a/b", []byte("1"))
	w.Close()
	w.Close()

	v, ok, _ := mem.Get("a/b")
	require.True(t, ok)
	assert.Equal(t, "1", string(v))

	w.Set("a/c", []byte("ignored"))
	_, ok, _ = mem.Get("a/c")
	assert.False(t, ok)
}
