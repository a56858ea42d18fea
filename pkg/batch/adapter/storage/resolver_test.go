package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageAdapter "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/storage/local"
)

func TestConnectionResolver(t *testing.T) {
	sections := storageConfig.Sections{
		"results": map[string]interface{}{"type": "local", "base_dir": t.TempDir()},
		"archive": map[string]interface{}{"type": "s3"},
		"untyped": map[string]interface{}{"base_dir": "/tmp"},
	}
	resolver := storageAdapter.NewConnectionResolver([]storageAdapter.StorageProvider{local.NewLocalProvider(sections)}, sections)

	conn, err := resolver.Resolve("results")
	require.NoError(t, err)
	assert.Equal(t, "results", conn.Name())

	_, err = resolver.Resolve("archive")
	assert.ErrorContains(t, err, "no storage provider found for type 's3'")

	_, err = resolver.Resolve("untyped")
	assert.ErrorContains(t, err, "type is required")

	assert.NoError(t, resolver.CloseAll())
}
