package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/damacus/s3-manager/internal/metrics"
	"github.com/damacus/s3-manager/internal/models"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	// Delimiter separates "directory" levels in object keys
	Delimiter = "/"
	// MaxListKeys bounds the single listing page we request
	MaxListKeys = 1000
	// DefaultRegion is used when a configuration leaves region empty
	DefaultRegion = "us-east-1"
	// DefaultEndpoint is used when a configuration leaves endpoint empty
	DefaultEndpoint = "s3.amazonaws.com"
)

// ObjectAPI is the subset of the S3 API the storage client needs
type ObjectAPI interface {
	ListObjectsV2(ctx context.Context, bucketName, prefix, delimiter string, maxKeys int) (minio.ListBucketV2Result, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObjectReader(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, int64, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// ObjectStore is the bucket-scoped file API used by the browser
type ObjectStore interface {
	List(ctx context.Context, prefix string) ([]models.ObjectEntry, error)
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// StorageClientFactory builds an ObjectStore for a configuration
type StorageClientFactory interface {
	NewClient(cfg models.StorageConfig) (ObjectStore, error)
}

// WrappedMinioClient wraps a minio client to implement ObjectAPI
type WrappedMinioClient struct {
	core *minio.Core
}

// ListObjectsV2 collects at most maxKeys entries of a delimited listing and
// then cancels, so no further pages are requested. Common prefixes come back
// from minio as keys ending in the delimiter.
func (c *WrappedMinioClient) ListObjectsV2(ctx context.Context, bucketName, prefix, delimiter string, maxKeys int) (minio.ListBucketV2Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := minio.ListBucketV2Result{
		Name:      bucketName,
		Prefix:    prefix,
		Delimiter: delimiter,
	}
	count := 0
	objects := c.core.Client.ListObjects(ctx, bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: delimiter == "",
		MaxKeys:   maxKeys,
	})
	for obj := range objects {
		if obj.Err != nil {
			return minio.ListBucketV2Result{}, obj.Err
		}
		if delimiter != "" && obj.Key != prefix && strings.HasSuffix(obj.Key, delimiter) {
			result.CommonPrefixes = append(result.CommonPrefixes, minio.CommonPrefix{Prefix: obj.Key})
		} else {
			result.Contents = append(result.Contents, obj)
		}
		count++
		if maxKeys > 0 && count >= maxKeys {
			result.IsTruncated = true
			return result, nil
		}
	}
	// minio closes the channel without an error when ctx ends first
	if err := ctx.Err(); err != nil {
		return minio.ListBucketV2Result{}, err
	}
	return result, nil
}

func (c *WrappedMinioClient) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return c.core.Client.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}

func (c *WrappedMinioClient) GetObjectReader(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, int64, error) {
	obj, err := c.core.Client.GetObject(ctx, bucketName, objectName, opts)
	if err != nil {
		return nil, 0, err
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, 0, err
	}
	return obj, info.Size, nil
}

func (c *WrappedMinioClient) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return c.core.Client.RemoveObject(ctx, bucketName, objectName, opts)
}

// StorageClient performs signed operations against one bucket
type StorageClient struct {
	api      ObjectAPI
	bucket   string
	logger   *slog.Logger
	observer metrics.StorageObserver
	now      func() time.Time
}

// NewStorageClient wraps api for bucket. logger and observer may be nil.
func NewStorageClient(api ObjectAPI, bucket string, logger *slog.Logger, observer metrics.StorageObserver) *StorageClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &StorageClient{
		api:      api,
		bucket:   bucket,
		logger:   logger.With("bucket", bucket),
		observer: observer,
		now:      time.Now,
	}
}

func (c *StorageClient) observe(op string, n int64, err error, start time.Time) {
	if c.observer != nil {
		c.observer.Observe(op, n, err, time.Since(start))
	}
}

// ValidPrefix reports whether prefix is the root or ends in the delimiter
func ValidPrefix(prefix string) bool {
	return prefix == "" || strings.HasSuffix(prefix, Delimiter)
}

// List returns the synthetic directory view below prefix: common prefixes as
// directories first, then objects, each in backend order. The object whose
// key equals prefix (a folder placeholder) is left out.
func (c *StorageClient) List(ctx context.Context, prefix string) ([]models.ObjectEntry, error) {
	if !ValidPrefix(prefix) {
		return nil, &ListError{Prefix: prefix, Err: ErrInvalidPrefix}
	}

	c.logger.Debug("listing objects", "prefix", prefix)
	start := time.Now()
	result, err := c.api.ListObjectsV2(ctx, c.bucket, prefix, Delimiter, MaxListKeys)
	c.observe("list", 0, err, start)
	if err != nil {
		c.logger.Error("failed to list objects", "prefix", prefix, "error", err)
		return nil, &ListError{Prefix: prefix, Err: err}
	}

	entries := toEntries(prefix, result, c.now())
	c.logger.Debug("listed objects", "prefix", prefix, "count", len(entries))
	return entries, nil
}

func toEntries(prefix string, result minio.ListBucketV2Result, now time.Time) []models.ObjectEntry {
	entries := make([]models.ObjectEntry, 0, len(result.CommonPrefixes)+len(result.Contents))

	for _, p := range result.CommonPrefixes {
		if p.Prefix == "" {
			continue
		}
		entries = append(entries, models.ObjectEntry{
			Key:          p.Prefix,
			LastModified: now,
			IsDirectory:  true,
		})
	}

	for _, obj := range result.Contents {
		if obj.Key == "" || obj.Key == prefix {
			continue
		}
		modified := obj.LastModified
		if modified.IsZero() {
			modified = now
		}
		entries = append(entries, models.ObjectEntry{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: modified,
		})
	}

	return entries
}

// Upload stores the reader under key in a single call. size may be -1 when
// unknown.
func (c *StorageClient) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	c.logger.Debug("uploading object", "key", key, "size", size)
	start := time.Now()
	info, err := c.api.PutObject(ctx, c.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	c.observe("upload", info.Size, err, start)
	if err != nil {
		c.logger.Error("failed to upload object", "key", key, "error", err)
		return &OperationError{Op: "upload", Key: key, Err: err}
	}
	return nil
}

// Download reads the whole object into memory
func (c *StorageClient) Download(ctx context.Context, key string) ([]byte, error) {
	c.logger.Debug("downloading object", "key", key)
	start := time.Now()
	data, err := c.download(ctx, key)
	c.observe("download", int64(len(data)), err, start)
	if err != nil {
		c.logger.Error("failed to download object", "key", key, "error", err)
		return nil, &OperationError{Op: "download", Key: key, Err: err}
	}
	return data, nil
}

func (c *StorageClient) download(ctx context.Context, key string) ([]byte, error) {
	body, _, err := c.api.GetObjectReader(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, ErrNoContent
	}
	defer func() { _ = body.Close() }()
	return io.ReadAll(body)
}

// Delete removes key. Removing a missing key succeeds on S3-compatible
// backends.
func (c *StorageClient) Delete(ctx context.Context, key string) error {
	c.logger.Debug("deleting object", "key", key)
	start := time.Now()
	err := c.api.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
	c.observe("delete", 0, err, start)
	if err != nil {
		c.logger.Error("failed to delete object", "key", key, "error", err)
		return &OperationError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// RealStorageFactory is the production implementation
type RealStorageFactory struct {
	Logger   *slog.Logger
	Observer metrics.StorageObserver
}

// shouldUseSSL determines if SSL should be used for a bare host endpoint.
// Returns false for local development endpoints.
func shouldUseSSL(endpoint string) bool {
	host := strings.Split(endpoint, ":")[0]
	if host == "localhost" || host == "127.0.0.1" {
		return false
	}
	// Docker service names (minio:9000, minio1:9000, ...) without dots
	if strings.HasPrefix(host, "minio") && !strings.Contains(host, ".") && strings.Contains(endpoint, ":9000") {
		return false
	}
	return true
}

// parseEndpoint accepts "https://host[:port]", "http://host[:port]" or a
// bare host. An empty endpoint means AWS.
func parseEndpoint(raw string) (host string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultEndpoint, true, nil
	}
	if !strings.Contains(raw, "://") {
		return strings.TrimSuffix(raw, "/"), shouldUseSSL(raw), nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("invalid endpoint %q: %w", raw, err)
	}
	switch u.Scheme {
	case "https":
		secure = true
	case "http":
		secure = false
	default:
		return "", false, fmt.Errorf("invalid endpoint %q: unsupported scheme %q", raw, u.Scheme)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid endpoint %q: missing host", raw)
	}
	if u.Path != "" && u.Path != "/" {
		return "", false, fmt.Errorf("invalid endpoint %q: path is not allowed, put the bucket name in the bucket field", raw)
	}
	return u.Host, secure, nil
}

// NewClient builds a path-style client: the bucket goes in the request path,
// which third-party endpoints without virtual-hosted buckets require.
func (f *RealStorageFactory) NewClient(cfg models.StorageConfig) (ObjectStore, error) {
	host, secure, err := parseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}

	core, err := minio.NewCore(host, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:       secure,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, err
	}
	core.SetAppInfo("s3-manager", "1.0")

	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return NewStorageClient(&WrappedMinioClient{core: core}, cfg.Bucket, logger.With("config", cfg.ID), f.Observer), nil
}
