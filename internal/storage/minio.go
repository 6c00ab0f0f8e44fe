package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// MinioOptions configures a MinioStorage.
type MinioOptions struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	PublicBase string // CDN or public origin, e.g. "https://cdn.example.com/star-gallery"
	UseSSL     bool
}

// MinioStorage implements ObjectStore on any S3-compatible backend.
type MinioStorage struct {
	client     *minio.Client
	bucket     string
	publicBase string
	log        zerolog.Logger
}

// NewMinioStorage validates opts, creates the client, ensures the bucket
// exists with a public-read policy, and returns a ready-to-use MinioStorage.
// Missing credentials yield ErrStorageUnavailable.
func NewMinioStorage(ctx context.Context, opts MinioOptions, logger zerolog.Logger) (*MinioStorage, error) {
	if opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, ErrStorageUnavailable
	}
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, fmt.Errorf("storage endpoint and bucket are required")
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", opts.Bucket, err)
		}
		logger.Info().Str("bucket", opts.Bucket).Msg("storage: created bucket")
	}

	if err := client.SetBucketPolicy(ctx, opts.Bucket, publicReadPolicy(opts.Bucket)); err != nil {
		return nil, fmt.Errorf("set bucket policy: %w", err)
	}

	return &MinioStorage{
		client:     client,
		bucket:     opts.Bucket,
		publicBase: strings.TrimRight(opts.PublicBase, "/"),
		log:        logger.With().Str("component", "storage").Logger(),
	}, nil
}

// Upload puts data under key and returns its public URL.
func (s *MinioStorage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("%w: put object %q: %w", ErrUploadFailed, key, err)
	}
	return pickURL(s.urlVariants(key)...), nil
}

// Delete removes the object at key. The object is stat'ed first because
// S3 reports success for deletes of keys that never existed.
func (s *MinioStorage) Delete(ctx context.Context, key string) bool {
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			s.log.Warn().Str("key", key).Msg("delete skipped, object not found")
		} else {
			s.log.Error().Err(err).Str("key", key).Msg("stat before delete failed")
		}
		return false
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("remove object failed")
		return false
	}
	return true
}

// urlVariants lists the URLs an object is reachable under, CDN base first.
func (s *MinioStorage) urlVariants(key string) []string {
	var out []string
	if s.publicBase != "" {
		out = append(out, s.publicBase+"/"+key)
	}
	if ep := s.client.EndpointURL(); ep != nil {
		out = append(out, fmt.Sprintf("%s://%s/%s/%s", ep.Scheme, ep.Host, s.bucket, key))
	}
	return out
}

// publicReadPolicy returns an S3 bucket policy JSON that allows anonymous GET on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
