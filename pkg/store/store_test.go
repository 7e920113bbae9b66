package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

// exercise runs the shared contract against any TemplateStore.
func exercise(t *testing.T, s TemplateStore) {
	t.Helper()
	ctx := context.Background()

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)

	_, err = s.Get(ctx, "landing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "landing", []byte(`{"name":"Landing","description":"Main"}`)))
	require.NoError(t, s.Put(ctx, "about-us", []byte(`{"sections":{}}`)))
	require.NoError(t, s.Put(ctx, "landing", []byte(`{"name":"Landing v2"}`)))

	data, err := s.Get(ctx, "landing")
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"Landing v2"}`, string(data))

	list, err = s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []Summary{
		{ID: "about-us", Name: "About Us"},
		{ID: "landing", Name: "Landing v2"},
	}, list)

	require.ErrorIs(t, s.Put(ctx, "../escape", []byte(`{}`)), ErrInvalidID)
	_, err = s.Get(ctx, "a b")
	require.ErrorIs(t, err, ErrInvalidID)
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "templates")
	exercise(t, NewFileStore(dir))
}

func TestFileStore_SkipsMalformedAndForeignFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`hi`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.json"), []byte(`{"name":"OK"}`), 0o644))

	list, err := NewFileStore(dir).List(context.Background())
	require.NoError(t, err)
	require.Equal(t, []Summary{{ID: "ok", Name: "OK"}}, list)
}

func TestFileStore_PutLeavesNoTemporaryFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)
	require.NoError(t, s.Put(context.Background(), "home", []byte(`{"name":"Home"}`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "home.json", entries[0].Name())
}

func TestFileStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileStore(t.TempDir()).List(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func setupRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), "redis://"+mr.Addr(), WithPrefix("test:"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStore(t *testing.T) {
	s, _ := setupRedis(t)
	exercise(t, s)
}

func TestRedisStore_KeyLayout(t *testing.T) {
	s, mr := setupRedis(t)
	require.NoError(t, s.Put(context.Background(), "home", []byte(`{"name":"Home"}`)))

	got, err := mr.Get("test:template:home")
	require.NoError(t, err)
	require.Equal(t, `{"name":"Home"}`, got)

	members, err := mr.Members("test:templates")
	require.NoError(t, err)
	require.Equal(t, []string{"home"}, members)
}

func TestRedisStore_SkipsDanglingIndexEntries(t *testing.T) {
	s, mr := setupRedis(t)
	_, err := mr.SAdd("test:templates", "ghost")
	require.NoError(t, err)

	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestNewRedisStore_BadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "://nope")
	require.Error(t, err)
}
