package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/sakif/media-gallery/internal/config"
)

// compile-time check that *S3Store implements BlobStore
var _ BlobStore = (*S3Store)(nil)

// S3Store implements BlobStore on any S3-compatible endpoint. With the
// Endpoint config left empty it talks to AWS; pointing it at MinIO is
// the usual local/dev setup.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// NewS3 builds the S3 client from static credentials. Called once at
// startup; a misconfigured store should fail the process, not the first
// upload.
func NewS3(ctx context.Context, cfg appconfig.S3) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: S3 bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)))
	if err != nil {
		return nil, fmt.Errorf("storage: loading S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// MinIO serves buckets as path prefixes, not subdomains.
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
	}, nil
}

// Put uploads a blob and returns its canonical URL.
func (s *S3Store) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", fmt.Errorf("storage: putting object %s: %w", key, err)
	}

	return s.objectURL(key), nil
}

// Delete removes a blob. S3 DeleteObject is a no-op for missing keys,
// which is exactly the semantics BlobStore promises.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("storage: deleting object %s: %w", key, err)
	}
	return nil
}

// PresignGet returns a signed, expiring download URL for a blob.
func (s *S3Store) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("storage: presigning object %s: %w", key, err)
	}
	return req.URL, nil
}

// objectURL builds the unsigned URL an object is served from. Only
// correct for public-read buckets; private galleries use PresignGet.
func (s *S3Store) objectURL(key string) string {
	opts := s.client.Options()
	if opts.BaseEndpoint != nil {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(*opts.BaseEndpoint, "/"), s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, opts.Region, key)
}
