package export

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/cognicore/keyclust/pkg/keyclust/internalerr"
	"github.com/cognicore/keyclust/pkg/keyclust/report"
)

// S3Config contains S3 upload configuration
type S3Config struct {
	Endpoint        string // Optional: custom endpoint for MinIO or other S3-compatible stores
	Region          string
	Bucket          string
	Prefix          string // Key prefix, defaults to "reports"
	AccessKeyID     string // Empty uses the default AWS credential chain
	SecretAccessKey string
	UsePathStyle    bool // Required for MinIO
}

// Validate checks the fields an upload cannot do without.
func (c S3Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("%w: S3 bucket name is required", internalerr.ErrInvalidConfig)
	}
	if c.Region == "" {
		return fmt.Errorf("%w: S3 region is required", internalerr.ErrInvalidConfig)
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("%w: S3 access key and secret must be set together", internalerr.ErrInvalidConfig)
	}
	return nil
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader stores rendered reports in a bucket
type S3Uploader struct {
	client objectPutter
	bucket string
	prefix string
}

// NewS3Uploader builds an uploader from static or default credentials.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3Uploader(client, cfg), nil
}

func newS3Uploader(client objectPutter, cfg S3Config) *S3Uploader {
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = "reports"
	}
	return &S3Uploader{client: client, bucket: cfg.Bucket, prefix: prefix}
}

// Key returns prefix/YYYY/MM/<run id>.<ext> for a report.
func (u *S3Uploader) Key(rep report.Report, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	month := rep.CreatedAt.UTC().Format("2006/01")
	return path.Join(u.prefix, month, rep.ID+"."+ext)
}

// Upload puts data under key and returns the s3:// URI.
func (u *S3Uploader) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}
	return "s3://" + u.bucket + "/" + key, nil
}
