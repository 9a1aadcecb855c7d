package filestore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/phishsim/internal/config"
	appErr "github.com/xxxsen/phishsim/internal/pkg/errors"
)

func TestNewNoneReturnsNil(t *testing.T) {
	store, err := New(config.ArchiveConfig{Type: "none"})
	require.NoError(t, err)
	require.Nil(t, store)
}

func TestNewUnknownType(t *testing.T) {
	_, err := New(config.ArchiveConfig{Type: "ftp"})
	require.Error(t, err)
}

func TestLocalStoreSaveAndOpen(t *testing.T) {
	store, err := New(config.ArchiveConfig{Type: "local", Dir: t.TempDir()})
	require.NoError(t, err)

	ctx := context.Background()
	key := CampaignKey("c1")
	require.NoError(t, store.Save(ctx, key, []byte("Subject: hi\r\n\r\nbody")))

	rc, err := store.Open(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "Subject: hi\r\n\r\nbody", string(data))
}

func TestLocalStoreOpenMissing(t *testing.T) {
	store, err := New(config.ArchiveConfig{Type: "local", Dir: t.TempDir()})
	require.NoError(t, err)
	_, err = store.Open(context.Background(), CampaignKey("nope"))
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := New(config.ArchiveConfig{Type: "local", Dir: t.TempDir()})
	require.NoError(t, err)
	require.Error(t, store.Save(context.Background(), "../escape.eml", []byte("x")))
}

func TestNormalizeEndpoint(t *testing.T) {
	require.Equal(t, "https://s3.example.com", normalizeEndpoint("s3.example.com/", true))
	require.Equal(t, "http://minio:9000", normalizeEndpoint("minio:9000", false))
	require.Equal(t, "http://minio:9000", normalizeEndpoint("http://minio:9000", true))
}
