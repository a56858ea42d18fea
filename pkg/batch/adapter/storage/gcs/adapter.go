// Package gcs provides a Google Cloud Storage implementation of the storage adapter interfaces.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	gcstorage "cloud.google.com/go/storage"
	"github.com/hashicorp/go-multierror"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	storageAdapter "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/logger"
)

// ProviderType defines the type identifier for this GCS storage provider.
const ProviderType = "gcs"

// gcsAdapter implements storage.StorageConnection on a GCS client.
type gcsAdapter struct {
	cfg    storageConfig.StorageConfig
	name   string
	client *gcstorage.Client
}

var _ storageAdapter.StorageConnection = (*gcsAdapter)(nil)

// NewGCSAdapter creates a client for cfg. Without CredentialsFile the client
// uses application default credentials. Extra client options (endpoint,
// HTTP client) are passed through, which tests use to point at a fake server.
func NewGCSAdapter(ctx context.Context, cfg storageConfig.StorageConfig, name string, opts ...option.ClientOption) (storageAdapter.StorageConnection, error) {
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("gcs storage adapter '%s': bucket_name must be specified in configuration", name)
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := gcstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs storage adapter '%s': failed to create client: %w", name, err)
	}
	return &gcsAdapter{cfg: cfg, name: name, client: client}, nil
}

// Close closes the underlying client.
func (a *gcsAdapter) Close() error {
	logger.Debugf("GCS storage adapter '%s' closed.", a.name)
	return a.client.Close()
}

// Type returns "gcs".
func (a *gcsAdapter) Type() string { return ProviderType }

// Name returns the name of this connection.
func (a *gcsAdapter) Name() string { return a.name }

// Location returns the gs:// URL of the object.
func (a *gcsAdapter) Location(bucket, objectName string) string {
	return fmt.Sprintf("gs://%s/%s", a.bucket(bucket), objectName)
}

// Upload streams data into the object. GCS only publishes the object when the
// writer is closed successfully, so a failed or cancelled copy leaves nothing behind.
func (a *gcsAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := a.client.Bucket(a.bucket(bucket)).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, data); err != nil {
		cancel()
		w.Close()
		return fmt.Errorf("failed to write gs://%s/%s: %w", a.bucket(bucket), objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize gs://%s/%s: %w", a.bucket(bucket), objectName, err)
	}
	logger.Debugf("Uploaded gs://%s/%s (gcs adapter '%s').", a.bucket(bucket), objectName, a.name)
	return nil
}

// Download opens a reader on the object.
func (a *gcsAdapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	r, err := a.client.Bucket(a.bucket(bucket)).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open gs://%s/%s: %w", a.bucket(bucket), objectName, err)
	}
	return r, nil
}

// ListObjects iterates over the objects under prefix.
func (a *gcsAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	it := a.client.Bucket(a.bucket(bucket)).Objects(ctx, &gcstorage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list gs://%s/%s: %w", a.bucket(bucket), prefix, err)
		}
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		if err := fn(attrs.Name); err != nil {
			return err
		}
	}
}

// DeleteObject deletes the object; a missing object only logs a warning.
func (a *gcsAdapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	err := a.client.Bucket(a.bucket(bucket)).Object(objectName).Delete(ctx)
	if errors.Is(err, gcstorage.ErrObjectNotExist) {
		logger.Warnf("Attempted to delete non-existent object gs://%s/%s (gcs adapter '%s').", a.bucket(bucket), objectName, a.name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete gs://%s/%s: %w", a.bucket(bucket), objectName, err)
	}
	return nil
}

func (a *gcsAdapter) bucket(bucket string) string {
	if bucket == "" {
		return a.cfg.BucketName
	}
	return bucket
}

// GCSProvider implements storage.StorageProvider for GCS connections.
type GCSProvider struct {
	sections    storageConfig.Sections
	opts        []option.ClientOption
	connections map[string]storageAdapter.StorageConnection
	mu          sync.Mutex
}

// NewGCSProvider creates a provider over the named storage sections.
func NewGCSProvider(sections storageConfig.Sections) storageAdapter.StorageProvider {
	return NewGCSProviderWithOptions(sections)
}

// NewGCSProviderWithOptions is NewGCSProvider with client options applied to every connection.
func NewGCSProviderWithOptions(sections storageConfig.Sections, opts ...option.ClientOption) *GCSProvider {
	return &GCSProvider{
		sections:    sections,
		opts:        opts,
		connections: make(map[string]storageAdapter.StorageConnection),
	}
}

// GetConnection returns the cached connection or creates it from configuration.
func (p *GCSProvider) GetConnection(name string) (storageAdapter.StorageConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok := p.connections[name]; ok {
		return conn, nil
	}
	cfg, err := p.sections.Lookup(name)
	if err != nil {
		return nil, err
	}
	if cfg.Type != ProviderType {
		return nil, fmt.Errorf("storage config type mismatch for '%s': expected '%s', got '%s'", name, ProviderType, cfg.Type)
	}
	conn, err := NewGCSAdapter(context.Background(), cfg, name, p.opts...)
	if err != nil {
		return nil, err
	}
	p.connections[name] = conn
	logger.Debugf("Created new GCS storage connection '%s' (bucket %s).", name, cfg.BucketName)
	return conn, nil
}

// CloseAll closes all connections managed by this provider.
func (p *GCSProvider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs *multierror.Error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("failed to close gcs storage connection '%s': %w", name, err))
		}
		delete(p.connections, name)
	}
	return errs.ErrorOrNil()
}

// Type returns "gcs".
func (p *GCSProvider) Type() string { return ProviderType }
