package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"quel-catalog-server/modules/common/config"
)

// R2Uploader uploads to Cloudflare R2 through its S3-compatible API.
type R2Uploader struct {
	s3Client   *s3.Client
	bucketName string
	publicURL  string
}

// NewR2Uploader - R2 업로더 생성
func NewR2Uploader(cfg *config.Config) (*R2Uploader, error) {
	if cfg.R2AccountID == "" || cfg.R2AccessKeyID == "" || cfg.R2SecretAccessKey == "" {
		return nil, fmt.Errorf("R2 configuration incomplete")
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{URL: endpoint}, nil
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithEndpointResolverWithOptions(resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.R2AccessKeyID,
			cfg.R2SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &R2Uploader{
		s3Client:   s3.NewFromConfig(awsCfg),
		bucketName: cfg.R2BucketName,
		publicURL:  strings.TrimRight(cfg.R2PublicURL, "/"),
	}, nil
}

// Upload - R2에 업로드 후 public URL 반환
func (u *R2Uploader) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	log.Printf("📤 [Storage] Uploading %d bytes to r2: %s", len(data), key)

	_, err := u.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}

	return u.PublicURL(key), nil
}

// PublicURL returns the CDN URL for key.
func (u *R2Uploader) PublicURL(key string) string {
	if u.publicURL != "" {
		return fmt.Sprintf("%s/%s", u.publicURL, key)
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com/%s", u.bucketName, key)
}
