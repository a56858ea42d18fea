package gcs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	storageConfig "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/storage/gcs"
)

func TestNewGCSAdapterRequiresBucket(t *testing.T) {
	_, err := gcs.NewGCSAdapter(context.Background(), storageConfig.StorageConfig{Type: "gcs"}, "archive", option.WithoutAuthentication())
	assert.ErrorContains(t, err, "bucket_name")
}

func TestGCSAdapterLocation(t *testing.T) {
	conn, err := gcs.NewGCSAdapter(context.Background(),
		storageConfig.StorageConfig{Type: "gcs", BucketName: "epw-archive"}, "archive",
		option.WithoutAuthentication(), option.WithEndpoint("http://127.0.0.1:1/storage/v1/"))
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "gcs", conn.Type())
	assert.Equal(t, "archive", conn.Name())
	assert.Equal(t, "gs://epw-archive/Ithaca_42.44_-76.5_2020.epw", conn.Location("", "Ithaca_42.44_-76.5_2020.epw"))
	assert.Equal(t, "gs://other/x.epw", conn.Location("other", "x.epw"))
}

func TestGCSProviderTypeMismatch(t *testing.T) {
	p := gcs.NewGCSProviderWithOptions(storageConfig.Sections{
		"results": map[string]interface{}{"type": "local", "base_dir": "/tmp"},
		"archive": map[string]interface{}{"type": "gcs", "bucket_name": "epw-archive"},
	}, option.WithoutAuthentication())

	_, err := p.GetConnection("results")
	assert.ErrorContains(t, err, "type mismatch")

	conn, err := p.GetConnection("archive")
	require.NoError(t, err)
	again, err := p.GetConnection("archive")
	require.NoError(t, err)
	assert.Same(t, conn, again)
	assert.NoError(t, p.CloseAll())
}
