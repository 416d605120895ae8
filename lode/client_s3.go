package lode

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"

	"github.com/wyemhu12/vikini-sub002/storage"
)

// s3Factory adapts an S3 client to a Lode store factory.
func s3Factory(client *s3.Client, cfg storage.S3Config) lode.StoreFactory {
	return func() (lode.Store, error) {
		return lodes3.New(client, lodes3.Config{
			Bucket: cfg.Bucket,
			Prefix: cfg.Prefix,
		})
	}
}

// NewLodeS3Archive creates an archive on S3 or an S3-compatible provider.
// Credentials come from the AWS SDK default chain.
func NewLodeS3Archive(ctx context.Context, cfg Config, s3cfg storage.S3Config) (*LodeArchive, error) {
	if err := s3cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := storage.NewS3Client(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	return NewLodeArchiveWithFactory(cfg, s3Factory(client, s3cfg))
}
