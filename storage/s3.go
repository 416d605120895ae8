package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds configuration for the S3 attachment backend.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers
	// (e.g. Cloudflare R2, MinIO, Supabase storage). Empty uses AWS.
	Endpoint string
	// UsePathStyle forces path-style addressing (bucket in path, not subdomain).
	UsePathStyle bool
	// MaxObjectBytes caps a single download. Zero uses DefaultMaxObjectBytes.
	MaxObjectBytes int64
}

// Validate checks that required S3 configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	return nil
}

// ParseS3Path parses a path in format "bucket/prefix" or "bucket".
func ParseS3Path(p string) (bucket, prefix string) {
	bucket, prefix, _ = strings.Cut(p, "/")
	return bucket, prefix
}

// getObjectAPI is the subset of the S3 client the store uses.
type getObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store downloads attachment bytes from an S3 bucket.
type S3Store struct {
	client   getObjectAPI
	bucket   string
	prefix   string
	maxBytes int64
}

// NewS3Client builds an S3 client from the AWS default credential chain
// (env vars, shared config, IAM role) with optional endpoint overrides.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, WrapInitError(fmt.Errorf("failed to load AWS config: %w", err), "s3")
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(awsConfig, s3Opts...), nil
}

// NewS3Store creates an S3Store using the AWS default credential chain.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newS3Store(client, cfg), nil
}

func newS3Store(client getObjectAPI, cfg S3Config) *S3Store {
	maxBytes := cfg.MaxObjectBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxObjectBytes
	}
	return &S3Store{
		client:   client,
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.Prefix, "/"),
		maxBytes: maxBytes,
	}
}

// key maps an attachment ref to its object key.
func (s *S3Store) key(ref string) string {
	ref = strings.TrimLeft(ref, "/")
	if s.prefix == "" {
		return ref
	}
	return path.Join(s.prefix, ref)
}

// DownloadBytes implements ObjectStore.
// Objects whose declared or actual length exceeds the cap fail with ErrTooLarge.
func (s *S3Store) DownloadBytes(ctx context.Context, ref string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(ref)),
	})
	if err != nil {
		return nil, WrapDownloadError(err, ref)
	}
	defer out.Body.Close()

	if n := aws.ToInt64(out.ContentLength); n > s.maxBytes {
		return nil, WrapDownloadError(fmt.Errorf("%w: %d bytes declared, limit %d", ErrTooLarge, n, s.maxBytes), ref)
	}
	data, err := readCapped(out.Body, s.maxBytes)
	if err != nil {
		return nil, WrapDownloadError(err, ref)
	}
	return data, nil
}
