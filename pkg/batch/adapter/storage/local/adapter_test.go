package local_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageAdapter "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/storage/local"
)

func newAdapter(t *testing.T) (string, storageAdapter.StorageConnection) {
	t.Helper()
	base := filepath.Join(t.TempDir(), "results")
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: base}, "results")
	require.NoError(t, err)
	return base, conn
}

func TestNewLocalAdapterCreatesBaseDir(t *testing.T) {
	base, _ := newAdapter(t)
	info, err := os.Stat(base)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestUploadDownloadListDelete(t *testing.T) {
	base, conn := newAdapter(t)
	ctx := context.Background()

	require.NoError(t, conn.Upload(ctx, "", "Ithaca_42.44_-76.5_2020.epw", strings.NewReader("LOCATION,Ithaca"), "text/plain"))
	require.NoError(t, conn.Upload(ctx, "", "csv/123_2020.csv", strings.NewReader("a,b"), "text/csv"))

	assert.Equal(t, filepath.Join(base, "Ithaca_42.44_-76.5_2020.epw"), conn.Location("", "Ithaca_42.44_-76.5_2020.epw"))

	rc, err := conn.Download(ctx, "", "Ithaca_42.44_-76.5_2020.epw")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "LOCATION,Ithaca", string(body))

	var names []string
	require.NoError(t, conn.ListObjects(ctx, "", "", func(name string) error {
		names = append(names, name)
		return nil
	}))
	sort.Strings(names)
	assert.Equal(t, []string{"Ithaca_42.44_-76.5_2020.epw", "csv/123_2020.csv"}, names)

	names = nil
	require.NoError(t, conn.ListObjects(ctx, "", "csv/", func(name string) error {
		names = append(names, name)
		return nil
	}))
	assert.Equal(t, []string{"csv/123_2020.csv"}, names)

	require.NoError(t, conn.DeleteObject(ctx, "", "csv/123_2020.csv"))
	require.NoError(t, conn.DeleteObject(ctx, "", "csv/123_2020.csv"))
}

type failingReader struct{ after int }

func (f *failingReader) Read(p []byte) (int, error) {
	if f.after == 0 {
		return 0, errors.New("connection reset")
	}
	n := copy(p, strings.Repeat("x", f.after))
	f.after = 0
	return n, nil
}

func TestUploadFailureLeavesNoPartialFile(t *testing.T) {
	base, conn := newAdapter(t)
	ctx := context.Background()

	require.NoError(t, conn.Upload(ctx, "", "site.epw", strings.NewReader("complete"), "text/plain"))
	err := conn.Upload(ctx, "", "site.epw", &failingReader{after: 3}, "text/plain")
	require.Error(t, err)

	content, err := os.ReadFile(filepath.Join(base, "site.epw"))
	require.NoError(t, err)
	assert.Equal(t, "complete", string(content))

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestUploadCancelled(t *testing.T) {
	base, conn := newAdapter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := conn.Upload(ctx, "", "late.epw", strings.NewReader("data"), "text/plain")
	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(filepath.Join(base, "late.epw"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestResolvePathRejectsEscape(t *testing.T) {
	_, conn := newAdapter(t)
	err := conn.Upload(context.Background(), "", "../outside.epw", strings.NewReader("x"), "text/plain")
	assert.ErrorContains(t, err, "outside of BaseDir")
}

func TestLocalProvider(t *testing.T) {
	base := t.TempDir()
	provider := local.NewLocalProvider(storageConfig.Sections{
		"results": map[string]interface{}{"type": "local", "base_dir": base},
		"archive": map[string]interface{}{"type": "gcs", "bucket_name": "b"},
	})

	conn, err := provider.GetConnection("results")
	require.NoError(t, err)
	again, err := provider.GetConnection("results")
	require.NoError(t, err)
	assert.Same(t, conn, again)
	assert.Equal(t, "local", conn.Type())

	_, err = provider.GetConnection("archive")
	assert.ErrorContains(t, err, "type mismatch")
	_, err = provider.GetConnection("missing")
	assert.Error(t, err)

	require.NoError(t, provider.CloseAll())
}
