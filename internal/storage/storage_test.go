package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	_, err := s.GetSetting(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SaveSetting(ctx, "k", []byte("v1")))
	got, err := s.GetSetting(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), got)

	keys, err := s.GetAllKeys(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"k"}, keys)

	require.NoError(t, s.RemoveSetting(ctx, "k"))
	_, err = s.GetSetting(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemStoreIsolatesCallerBuffers(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	buf := []byte("original")
	require.NoError(t, s.SaveSetting(ctx, "k", buf))
	buf[0] = 'X'

	got, err := s.GetSetting(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "original", string(got))
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s1, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s1.SaveSetting(ctx, "ratings", []byte(`[{"memoryId":"m1"}]`)))

	s2, err := NewFileStore(dir)
	require.NoError(t, err)
	got, err := s2.GetSetting(ctx, "ratings")
	require.NoError(t, err)
	require.JSONEq(t, `[{"memoryId":"m1"}]`, string(got))
}

func TestFileStoreGetMissingReturnsErrNotFound(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	_, err = s.GetSetting(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreRemoveDeletesFromDiskAndMemory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.SaveSetting(ctx, "k", []byte("1")))
	require.NoError(t, s.RemoveSetting(ctx, "k"))

	_, err = s.GetSetting(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)

	keys, err := s.GetAllKeys(ctx)
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestFileStoreGetAllKeysListsSavedSettings(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.SaveSetting(ctx, "ratings", []byte("1")))
	require.NoError(t, s.SaveSetting(ctx, "interactions", []byte("2")))

	keys, err := s.GetAllKeys(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"ratings", "interactions"}, keys)
}
