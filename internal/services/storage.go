package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Key prefixes for objects written by the service
const (
	StatementPrefix = "statements"
	ReportPrefix    = "reports"
)

var errStorageNotInitialized = errors.New("s3 client is not initialized")

// StorageService stores uploaded statements and exported reports in S3
type StorageService struct {
	s3Client *s3.Client
	bucket   string
	region   string
	clock    func() time.Time
}

// NewStorageService connects to bucket in region. A non-empty endpoint
// targets an S3-compatible server such as LocalStack with path-style
// addressing and static credentials.
func NewStorageService(ctx context.Context, bucket, region, endpoint string) (*StorageService, error) {
	switch {
	case bucket == "":
		return nil, errors.New("bucket cannot be empty")
	case region == "":
		return nil, errors.New("region cannot be empty")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if endpoint != "" {
		// LocalStack accepts any static credentials
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("test", "test", ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true // Required for LocalStack
		}
	})

	return &StorageService{
		s3Client: client,
		bucket:   bucket,
		region:   region,
		clock:    time.Now,
	}, nil
}

// Bucket returns the configured bucket name
func (s *StorageService) Bucket() string {
	return s.bucket
}

// GenerateUploadKey returns {prefix}/{yyyy}/{mm}/{unix}-{id}-{name}{ext} with
// the base name reduced to [A-Za-z0-9_-] and the extension lowercased
func (s *StorageService) GenerateUploadKey(prefix, filename string) (string, error) {
	switch {
	case prefix == "":
		return "", errors.New("prefix cannot be empty")
	case filename == "":
		return "", errors.New("filename cannot be empty")
	}

	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	name := strings.Map(keySafe, strings.TrimSuffix(base, ext))

	now := time.Now().UTC()
	if s.clock != nil {
		now = s.clock().UTC()
	}

	return fmt.Sprintf("%s/%s/%d-%s-%s%s",
		prefix, now.Format("2006/01"), now.Unix(), uuid.NewString()[:8], name, strings.ToLower(ext)), nil
}

func keySafe(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		return r
	}
	return '-'
}

// ready rejects calls with an empty key or before the client exists
func (s *StorageService) ready(key string) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	if s.s3Client == nil {
		return errStorageNotInitialized
	}
	return nil
}

func (s *StorageService) putInput(key, contentType string, body io.Reader) *s3.PutObjectInput {
	input := &s3.PutObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key), Body: body}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	return input
}

// GeneratePresignedURL signs a PUT for key that the client uploads to directly
func (s *StorageService) GeneratePresignedURL(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		return "", errors.New("expiry must be greater than 0")
	}
	if err := s.ready(key); err != nil {
		return "", err
	}

	signed, err := s3.NewPresignClient(s.s3Client).PresignPutObject(ctx, s.putInput(key, contentType, nil), s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return signed.URL, nil
}

// UploadFile writes body to key
func (s *StorageService) UploadFile(ctx context.Context, key, contentType string, body io.Reader) error {
	if err := s.ready(key); err != nil {
		return err
	}
	if _, err := s.s3Client.PutObject(ctx, s.putInput(key, contentType, body)); err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// DownloadFile opens key for reading; the caller closes the body
func (s *StorageService) DownloadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := s.ready(key); err != nil {
		return nil, err
	}
	out, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	return out.Body, nil
}

// DeleteFile removes key from the bucket
func (s *StorageService) DeleteFile(ctx context.Context, key string) error {
	if err := s.ready(key); err != nil {
		return err
	}
	if _, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
