package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/leadio/leadio-server/internal/apperr"
)

// S3Backend stores report files in an S3-compatible object store.
// Works with AWS S3, MinIO, DigitalOcean Spaces, Cloudflare R2, etc.
type S3Backend struct {
	client    *s3.Client
	bucket    string
	region    string
	endpoint  string
	publicURL string // base URL for generating report links (CDN if configured)
}

// S3Config holds configuration for the S3 backend.
type S3Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Endpoint  string // optional: for S3-compatible services
	CDNURL    string // optional: CDN base URL in front of the bucket
}

func NewS3Backend(cfg S3Config) (*S3Backend, error) {
	ctx := context.Background()

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Custom endpoints (MinIO and friends) need path-style addressing
	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	publicURL := cfg.CDNURL
	if publicURL == "" {
		if cfg.Endpoint != "" {
			publicURL = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	backend := &S3Backend{
		client:    client,
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		endpoint:  cfg.Endpoint,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}

	err = backend.ensureBucket(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	slog.Info("S3 report storage initialized", "bucket", cfg.Bucket, "region", cfg.Region, "endpoint", cfg.Endpoint)

	return backend, nil
}

func (s *S3Backend) Name() string { return "s3" }

// ensureBucket checks if bucket exists, creates it if not
func (s *S3Backend) ensureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %q does not exist and could not be created: %w", s.bucket, err)
	}

	slog.Info("created S3 bucket", "bucket", s.bucket)
	return nil
}

func (s *S3Backend) Upload(ctx context.Context, html string, meta UploadMeta) (*UploadResult, error) {
	now := time.Now()
	key := objectKey(meta, now)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(html),
		ContentType: aws.String("text/html; charset=utf-8"),
	})
	if err != nil {
		return nil, apperr.E(apperr.Storage, "failed to upload report to S3", err)
	}

	return &UploadResult{
		URL:       s.publicURL + "/" + key,
		Key:       key,
		FileSize:  int64(len(html)),
		CreatedAt: now,
	}, nil
}

func (s *S3Backend) Delete(ctx context.Context, keyOrURL string) (bool, error) {
	key := s.key(keyOrURL)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// S3 DeleteObject succeeds for missing keys, so probe first to report
	// idempotent deletes accurately.
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, apperr.E(apperr.Storage, "failed to check report object", err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return false, apperr.E(apperr.Storage, "failed to delete report from S3", err)
	}
	return true, nil
}

func (s *S3Backend) Info(ctx context.Context, keyOrURL string) (*ObjectInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(keyOrURL)),
	})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.E(apperr.Storage, "failed to stat report object", err)
	}

	info := &ObjectInfo{}
	if head.ContentLength != nil {
		info.Size = *head.ContentLength
	}
	if head.LastModified != nil {
		info.LastModified = *head.LastModified
	}
	return info, nil
}

func (s *S3Backend) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return apperr.E(apperr.Storage, "S3 bucket unreachable", err)
	}
	return nil
}

// key resolves a previously issued URL back to its object key.
func (s *S3Backend) key(keyOrURL string) string {
	if !strings.HasPrefix(keyOrURL, "http") {
		return keyOrURL
	}
	return strings.TrimPrefix(strings.TrimPrefix(keyOrURL, s.publicURL), "/")
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey)
}
