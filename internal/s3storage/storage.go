// Package s3storage wraps MinIO/S3 interactions for note PDFs and
// payment-proof screenshots.
package s3storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sriramlenka/notekart/internal/config"
)

// Storage holds the MinIO client plus the two bucket names: one for the
// catalog PDFs, one for uploaded payment screenshots.
type Storage struct {
	client       *minio.Client
	notesBucket  string
	proofsBucket string
	region       string
}

// New creates a MinIO client from the Config.
func New(cfg *config.Config) (*Storage, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Storage{
		client:       client,
		notesBucket:  cfg.NotesBucket,
		proofsBucket: cfg.ProofsBucket,
		region:       cfg.S3Region,
	}, nil
}

// EnsureBuckets makes sure both buckets exist before use.
func (s *Storage) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.notesBucket, s.proofsBucket} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
				return fmt.Errorf("make bucket %s: %w", bucket, err)
			}
		}
	}
	return nil
}

// UploadNote stores a catalog PDF under the given key.
func (s *Storage) UploadNote(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.notesBucket, objectKey, reader, size, opts); err != nil {
		return fmt.Errorf("upload note object: %w", err)
	}
	return nil
}

// UploadProof stores a payment screenshot under the given key.
func (s *Storage) UploadProof(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.proofsBucket, objectKey, reader, size, opts); err != nil {
		return fmt.Errorf("upload proof object: %w", err)
	}
	return nil
}

// OpenNote returns a reader over a stored PDF for streaming to a client.
func (s *Storage) OpenNote(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.notesBucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get note object: %w", err)
	}
	return obj, nil
}

// DownloadNote fetches the full PDF bytes, used by the preview worker.
func (s *Storage) DownloadNote(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.notesBucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get note object: %w", err)
	}
	defer obj.Close()
	buf, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read note object: %w", err)
	}
	return buf, nil
}

// DeleteNote removes a catalog PDF, called when an admin delists the note.
func (s *Storage) DeleteNote(ctx context.Context, objectKey string) error {
	if err := s.client.RemoveObject(ctx, s.notesBucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove note object: %w", err)
	}
	return nil
}

// DeleteProof removes a payment screenshot, called by the prune worker once
// the rejected order it backed has been superseded.
func (s *Storage) DeleteProof(ctx context.Context, objectKey string) error {
	if err := s.client.RemoveObject(ctx, s.proofsBucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove proof object: %w", err)
	}
	return nil
}

// PresignProofURL returns a signed GET URL for a payment screenshot so the
// admin dashboard can display it without proxying bytes.
func (s *Storage) PresignProofURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.proofsBucket, objectKey, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign proof object: %w", err)
	}
	return u.String(), nil
}
