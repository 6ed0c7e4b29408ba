// Package storage mirrors archived message files to an S3-compatible bucket.
// The mirror is best effort: the filesystem copy stays authoritative and a
// failed upload never blocks the archival run.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mailarc/mailarc/config"
	"github.com/mailarc/mailarc/logger"
)

// S3Mirror uploads archived files under their archive-relative key.
type S3Mirror struct {
	Client     *minio.Client
	BucketName string
}

// New initializes the MinIO client for the configured mirror bucket.
func New(cfg config.S3Config) (*S3Mirror, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		logger.Error("failed to initialize S3 mirror client", "error", err)
		return nil, fmt.Errorf("failed to initialize S3 mirror client: %w", err)
	}

	if cfg.Trace {
		client.TraceOn(os.Stdout)
	}

	return &S3Mirror{
		Client:     client,
		BucketName: cfg.Bucket,
	}, nil
}

// Mirror uploads the given archived file. The object key is the file path
// relative to the archive root, with forward slashes. An object already in
// the bucket is left untouched, so re-running over a deduplicated archive
// does not re-upload.
func (s *S3Mirror) Mirror(ctx context.Context, archiveRoot, filePath string, body []byte) error {
	key := ObjectKey(archiveRoot, filePath)

	exists, err := s.Exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		logger.Debug("object already mirrored", "key", key)
		return nil
	}

	_, err = s.Client.PutObject(ctx, s.BucketName, key,
		bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{SendContentMd5: true})
	if err != nil {
		return fmt.Errorf("failed to mirror %s: %w", key, err)
	}
	return nil
}

// Exists checks whether an object with the given key is already in the bucket.
func (s *S3Mirror) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Client.StatObject(ctx, s.BucketName, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}

	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) && minioErr.StatusCode == 404 {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat object %s: %w", key, err)
}

// Get retrieves a mirrored object.
func (s *S3Mirror) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	object, err := s.Client.GetObject(ctx, s.BucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	return object, nil
}

// ObjectKey maps an archived file path to its bucket key.
func ObjectKey(archiveRoot, filePath string) string {
	rel := strings.TrimPrefix(filePath, archiveRoot)
	rel = strings.TrimPrefix(rel, "/")
	rel = strings.TrimPrefix(rel, "\\")
	return path.Clean(strings.ReplaceAll(rel, "\\", "/"))
}
