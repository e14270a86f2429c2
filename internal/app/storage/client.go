package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"gatherchat/internal/pkg/logx"
)

// s3Client implements the StorageService interface, handling interactions with S3-compatible storage.
type s3Client struct {
	cfg      ServiceConfig
	s3Client *s3.Client
	presign  *s3.PresignClient
	uploader *manager.Uploader
	logger   zerolog.Logger
}

// newS3Client initializes the S3 client using a custom configuration that supports S3-compatible endpoints.
func newS3Client(ctx context.Context, cfg ServiceConfig) (*s3Client, error) {
	logger := logx.Component("storage")

	sdkCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load AWS SDK config.")
		return nil, errors.New("failed to initialize S3 client configuration")
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		o.UsePathStyle = true
	})

	return &s3Client{
		cfg:      cfg,
		s3Client: client,
		presign:  s3.NewPresignClient(client),
		uploader: manager.NewUploader(client),
		logger:   logger,
	}, nil
}

// Upload streams body to the bucket through the multipart-capable uploader.
func (c *s3Client) Upload(ctx context.Context, key string, contentType string, body io.Reader, size int64) error {
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.cfg.S3BucketName),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("S3 upload failed.")
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// PresignUpload generates a presigned URL for uploading a file with the specified key, MIME type, and size.
func (c *s3Client) PresignUpload(
	ctx context.Context,
	key string,
	mimeType string,
	fileSize int64,
	duration time.Duration,
) (string, error) {
	resp, err := c.presign.PresignPutObject(
		ctx,
		&s3.PutObjectInput{
			Bucket:        aws.String(c.cfg.S3BucketName),
			Key:           aws.String(key),
			ContentType:   aws.String(mimeType),
			ContentLength: aws.Int64(fileSize),
		},
		s3.WithPresignExpires(duration),
	)
	if err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("Failed to generate presigned upload URL.")
		return "", errors.New("failed to generate presigned upload URL")
	}

	return resp.URL, nil
}

// GetObjectMetadata retrieves the content type and size of an object.
func (c *s3Client) GetObjectMetadata(ctx context.Context, key string) (ObjectInfo, error) {
	resp, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.cfg.S3BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return ObjectInfo{}, ErrObjectNotFound
		}
		c.logger.Error().Err(err).Str("key", key).Msg("Failed to get S3 object metadata.")
		return ObjectInfo{}, errors.New("failed to fetch S3 metadata")
	}

	return ObjectInfo{
		ContentType: aws.ToString(resp.ContentType),
		Size:        aws.ToInt64(resp.ContentLength),
	}, nil
}
