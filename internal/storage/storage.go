// Package storage issues presigned S3 URLs for client uploads (avatars,
// memorial photos, background-check documents) and gift asset downloads.
// Object bytes never pass through the API.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/forgo/haven/api/internal/model"
)

// Config holds S3 settings
type Config struct {
	Bucket        string
	Region        string
	Endpoint      string // S3-compatible endpoint, e.g. MinIO in development
	PublicBaseURL string
	AccessKey     string
	SecretKey     string
	PresignTTL    time.Duration
}

// S3 presigns object URLs for a single bucket
type S3 struct {
	presign    *s3.PresignClient
	bucket     string
	publicBase string
	ttl        time.Duration
	now        func() time.Time
}

// New builds the S3 client. Static credentials are used when configured,
// otherwise the default AWS credential chain.
func New(ctx context.Context, cfg Config) (*S3, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	publicBase := strings.TrimRight(cfg.PublicBaseURL, "/")
	if publicBase == "" {
		publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &S3{
		presign:    s3.NewPresignClient(client),
		bucket:     cfg.Bucket,
		publicBase: publicBase,
		ttl:        ttl,
		now:        time.Now,
	}, nil
}

// ObjectKey returns a fresh key under prefix with the given extension
func ObjectKey(prefix, ext string) string {
	return strings.TrimRight(prefix, "/") + "/" + uuid.New().String() + ext
}

// PublicURL is where a publicly readable object is served from
func (s *S3) PublicURL(key string) string {
	return s.publicBase + "/" + strings.TrimLeft(key, "/")
}

// PresignUpload returns a PUT url the client uploads the object to
func (s *S3) PresignUpload(ctx context.Context, key, contentType string) (*model.UploadTarget, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return nil, fmt.Errorf("presign put %s: %w", key, err)
	}

	return &model.UploadTarget{
		UploadURL: req.URL,
		Key:       key,
		PublicURL: s.PublicURL(key),
		ExpiresAt: s.now().Add(s.ttl),
	}, nil
}

// PresignDownload returns a short-lived GET url for a private object
func (s *S3) PresignDownload(ctx context.Context, key string) (*model.DownloadLink, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return nil, fmt.Errorf("presign get %s: %w", key, err)
	}

	return &model.DownloadLink{URL: req.URL, ExpiresAt: s.now().Add(s.ttl)}, nil
}
