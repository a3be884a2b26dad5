// Package blob archives uploaded resume files in S3 compatible storage.
package blob

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
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/smartmatch/internal/logger"
)

// Archive stores resume files.
type Archive interface {
	// Put stores data and returns the object key. An empty key means the file was not stored.
	Put(ctx context.Context, candidateID int64, filename, contentType string, data []byte) (string, error)
}

// Config describes an S3 bucket. Cloudflare R2 works through Endpoint.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Enabled reports whether enough is configured to reach a bucket.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Bucket) != ""
}

type putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 is an Archive backed by an S3 bucket.
type S3 struct {
	client putter
	bucket string
	log    *zap.Logger
}

// New returns an S3 archive, or a no-op one when no bucket is configured.
func New(ctx context.Context, cfg Config, log *zap.Logger) (Archive, error) {
	log = logger.Component(log, "blob")
	if !cfg.Enabled() {
		log.Debug("resume archive disabled")
		return Nop{}, nil
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	log.Info("resume archive enabled", zap.String("bucket", cfg.Bucket))
	return &S3{client: client, bucket: cfg.Bucket, log: log}, nil
}

// Key builds the object key for a candidate file: resumes/<id>/<uuid><ext>.
func Key(candidateID int64, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("resumes/%d/%s%s", candidateID, uuid.NewString(), ext)
}

func (s *S3) Put(ctx context.Context, candidateID int64, filename, contentType string, data []byte) (string, error) {
	key := Key(candidateID, filename)

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}

	s.log.Debug("resume archived", zap.String("key", key), zap.Int("bytes", len(data)))
	return key, nil
}

// Nop discards files.
type Nop struct{}

func (Nop) Put(context.Context, int64, string, string, []byte) (string, error) {
	return "", nil
}
