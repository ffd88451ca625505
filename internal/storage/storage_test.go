package storage_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/studybuddy/studybuddy-api/internal/config"
	"github.com/studybuddy/studybuddy-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalStorage_PutOpenDelete(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewLocalStorage(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	obj, err := store.Put(ctx, "avatars", "Me.PNG", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(obj.Path, "avatars/"))
	assert.True(t, strings.HasSuffix(obj.Path, ".png"))
	assert.Equal(t, int64(9), obj.Size)
	assert.Equal(t, "image/png", obj.ContentType)

	rc, err := store.Open(ctx, obj.Path)
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(content))

	require.NoError(t, store.Delete(ctx, obj.Path))
	_, err = store.Open(ctx, obj.Path)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)

	// deleting twice is fine
	assert.NoError(t, store.Delete(ctx, obj.Path))
}

func TestLocalStorage_RejectsEscapingPaths(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrObjectNotFound)

	assert.Error(t, store.Delete(context.Background(), "/etc/passwd"))
}

func TestNewStorage(t *testing.T) {
	s, err := storage.NewStorage(&config.StorageConfig{Mode: "local", LocalBasePath: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStorage{}, s)

	_, err = storage.NewStorage(&config.StorageConfig{Mode: "azure"}, zap.NewNop())
	assert.Error(t, err)

	_, err = storage.NewStorage(&config.StorageConfig{Mode: "ftp"}, zap.NewNop())
	assert.Error(t, err)
}
