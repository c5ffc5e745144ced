package database

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"tunewave-backend/config"
)

// ExportStorage keeps generated moderation exports in an S3-compatible
// bucket (Cloudflare R2 or MinIO) and hands out presigned download links.
type ExportStorage struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	log     *zap.Logger
}

// ConnectS3 initializes the S3-compatible client
func ConnectS3(ctx context.Context, cfg config.S3Config, log *zap.Logger) (*ExportStorage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := getEndpointURL(cfg.Endpoint, cfg.UseSSL)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		// path-style addressing is required for R2 and MinIO
		o.UsePathStyle = true
	})

	log.Info("connected to S3-compatible storage",
		zap.String("endpoint", endpoint),
		zap.String("region", cfg.Region),
		zap.String("bucket", cfg.BucketExports))

	return &ExportStorage{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.BucketExports,
		log:     log,
	}, nil
}

// getEndpointURL constructs the full endpoint URL
func getEndpointURL(endpoint string, useSSL bool) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, endpoint)
}

// PutExport uploads body under key and returns a download URL valid for expiresIn.
func (s *ExportStorage) PutExport(ctx context.Context, key string, body []byte, expiresIn time.Duration) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("upload export %s: %w", key, err)
	}

	request, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiresIn
	})
	if err != nil {
		return "", fmt.Errorf("presign export %s: %w", key, err)
	}

	s.log.Info("export stored", zap.String("key", key), zap.Int("bytes", len(body)))
	return request.URL, nil
}
