package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"jobline/internal/config"
)

// Artifact describes an uploaded export.
type Artifact struct {
	Bucket    string    `json:"bucket"`
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Sink stores a finalized export payload and returns where it can be fetched.
type Sink interface {
	Put(ctx context.Context, payload ExportPayload) (Artifact, error)
}

const defaultPresign = time.Hour

// MinIOSink uploads exports to an S3-compatible bucket.
type MinIOSink struct {
	client  *minio.Client
	bucket  string
	presign time.Duration
	now     func() time.Time
}

// NewMinIOSink builds a sink from config; credentials are read from the
// environment variables it names.
func NewMinIOSink(cfg config.ExportConfig) (*MinIOSink, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("export endpoint is required")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(os.Getenv(cfg.AccessKeyEnv), os.Getenv(cfg.SecretKeyEnv), ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		bucket = "jobline-exports"
	}
	presign := time.Duration(cfg.PresignMinutes) * time.Minute
	if presign <= 0 {
		presign = defaultPresign
	}
	return &MinIOSink{client: client, bucket: bucket, presign: presign, now: time.Now}, nil
}

// ObjectKey is the bucket key for a payload.
func ObjectKey(p ExportPayload) string {
	ts := strings.NewReplacer(":", "", "-", "").Replace(p.GeneratedAt)
	return fmt.Sprintf("%s/%s-%s.json", p.Property.ID, p.Kind, ts)
}

func (s *MinIOSink) Put(ctx context.Context, payload ExportPayload) (Artifact, error) {
	payload.Artifact = nil
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return Artifact{}, err
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return Artifact{}, err
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return Artifact{}, err
		}
	}
	key := ObjectKey(payload)
	if _, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{ContentType: "application/json"}); err != nil {
		return Artifact{}, fmt.Errorf("upload export: %w", err)
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.presign, nil)
	if err != nil {
		return Artifact{}, fmt.Errorf("presign export: %w", err)
	}
	return Artifact{Bucket: s.bucket, Key: key, URL: u.String(), ExpiresAt: s.now().Add(s.presign)}, nil
}
