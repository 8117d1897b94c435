package imagestore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// hooks for tests
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}
)

// Config holds the S3 (or MinIO-compatible) connection settings.
type Config struct {
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
	// URLTTL bounds presigned GET URLs. Zero means 15 minutes.
	URLTTL time.Duration
}

// S3Store stores images in an S3-compatible bucket and hands out
// presigned GET URLs.
type S3Store struct {
	cfg     Config
	client  *s3.Client
	presign *s3.PresignClient
}

var _ Store = (*S3Store)(nil)

// NewS3Store builds the client once at construction.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("image store aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		}
		o.UsePathStyle = cfg.BaseEndpoint != ""
	})

	if cfg.URLTTL == 0 {
		cfg.URLTTL = 15 * time.Minute
	}

	return &S3Store{
		cfg:     cfg,
		client:  client,
		presign: newS3PresignClient(client),
	}, nil
}

// Upload writes the buffer under a date-partitioned random key and
// returns the key plus a presigned URL for immediate display.
func (s *S3Store) Upload(ctx context.Context, data []byte, opts UploadOptions) (Object, error) {
	key := storageKey(opts)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return Object{}, fmt.Errorf("image store upload: %w", err)
	}

	url, err := s.SecureURL(ctx, key)
	if err != nil {
		return Object{}, err
	}

	return Object{Key: key, URL: url}, nil
}

// Delete removes the object behind a previously returned key.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("image store delete: %w", err)
	}
	return nil
}

// SecureURL returns a presigned, time-bounded GET URL for the key.
func (s *S3Store) SecureURL(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.cfg.URLTTL))
	if err != nil {
		return "", fmt.Errorf("image store presign: %w", err)
	}
	return req.URL, nil
}

func storageKey(opts UploadOptions) string {
	folder := opts.Folder
	if folder == "" {
		d := time.Now()
		folder = fmt.Sprintf("images/%d/%02d/%02d", d.Year(), d.Month(), d.Day())
	}

	name := opts.Name
	if name == "" {
		name = uuid.NewString()
	} else {
		name = fmt.Sprintf("%s-%s", uuid.NewString(), name)
	}

	return folder + "/" + name
}
