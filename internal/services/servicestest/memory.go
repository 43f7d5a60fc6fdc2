// Package servicestest provides an in-memory S3 backend for tests. It
// satisfies services.ObjectAPI, so tests can drive the real storage client
// without a network.
package servicestest

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
)

// RequestID is reported on every error response
const RequestID = "tx-42"

// MemoryAPI keeps objects per bucket and lists them with S3 prefix and
// delimiter semantics, sorted by key.
type MemoryAPI struct {
	mu      sync.Mutex
	buckets map[string]map[string][]byte
	// Modified is the LastModified reported for every object
	Modified time.Time
}

func NewMemoryAPI(buckets ...string) *MemoryAPI {
	m := &MemoryAPI{
		buckets:  make(map[string]map[string][]byte),
		Modified: time.Now().Add(-time.Minute),
	}
	for _, b := range buckets {
		m.buckets[b] = make(map[string][]byte)
	}
	return m
}

// Put stores data directly, creating the bucket if needed
func (m *MemoryAPI) Put(bucket, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[bucket]; !ok {
		m.buckets[bucket] = make(map[string][]byte)
	}
	m.buckets[bucket][key] = data
}

// Object returns the stored bytes for key
func (m *MemoryAPI) Object(bucket, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.buckets[bucket][key]
	return data, ok
}

// bucket looks up name; caller holds m.mu
func (m *MemoryAPI) bucket(name string) (map[string][]byte, error) {
	objects, ok := m.buckets[name]
	if !ok {
		return nil, minio.ErrorResponse{
			StatusCode: http.StatusNotFound,
			Code:       "NoSuchBucket",
			Message:    "The specified bucket does not exist",
			BucketName: name,
			RequestID:  RequestID,
		}
	}
	return objects, nil
}

func (m *MemoryAPI) ListObjectsV2(_ context.Context, bucketName, prefix, delimiter string, maxKeys int) (minio.ListBucketV2Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	objects, err := m.bucket(bucketName)
	if err != nil {
		return minio.ListBucketV2Result{}, err
	}

	keys := make([]string, 0, len(objects))
	for k := range objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := minio.ListBucketV2Result{Name: bucketName, Prefix: prefix, Delimiter: delimiter}
	seen := make(map[string]bool)
	count := 0
	for _, k := range keys {
		if maxKeys > 0 && count >= maxKeys {
			result.IsTruncated = true
			break
		}
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := k[len(prefix):]
		if i := strings.Index(rest, delimiter); delimiter != "" && i >= 0 {
			cp := prefix + rest[:i+len(delimiter)]
			if !seen[cp] {
				seen[cp] = true
				count++
				result.CommonPrefixes = append(result.CommonPrefixes, minio.CommonPrefix{Prefix: cp})
			}
			continue
		}
		count++
		result.Contents = append(result.Contents, minio.ObjectInfo{
			Key:          k,
			Size:         int64(len(objects[k])),
			LastModified: m.Modified,
		})
	}
	return result, nil
}

func (m *MemoryAPI) PutObject(_ context.Context, bucketName, objectName string, reader io.Reader, _ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	objects, err := m.bucket(bucketName)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	objects[objectName] = data
	return minio.UploadInfo{Bucket: bucketName, Key: objectName, Size: int64(len(data))}, nil
}

func (m *MemoryAPI) GetObjectReader(_ context.Context, bucketName, objectName string, _ minio.GetObjectOptions) (io.ReadCloser, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	objects, err := m.bucket(bucketName)
	if err != nil {
		return nil, 0, err
	}
	data, ok := objects[objectName]
	if !ok {
		return nil, 0, minio.ErrorResponse{
			StatusCode: http.StatusNotFound,
			Code:       "NoSuchKey",
			Message:    "The specified key does not exist.",
			BucketName: bucketName,
			Key:        objectName,
			RequestID:  RequestID,
		}
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (m *MemoryAPI) RemoveObject(_ context.Context, bucketName, objectName string, _ minio.RemoveObjectOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	objects, err := m.bucket(bucketName)
	if err != nil {
		return err
	}
	delete(objects, objectName)
	return nil
}
