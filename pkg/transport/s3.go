package transport

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/narwhalmedia/docconvert/pkg/errors"
)

// DefaultPresignExpiry is how long object URLs handed to the conversion service stay valid
const DefaultPresignExpiry = time.Hour

// S3Config holds S3/MinIO settings for the S3 uploader
type S3Config struct {
	Bucket          string
	Region          string
	Prefix          string
	Endpoint        string // custom endpoint, e.g. MinIO; enables path-style addressing
	AccessKeyID     string
	SecretAccessKey string
	PresignExpiry   time.Duration
}

// S3PutAPI is the subset of the S3 client used for uploads
type S3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Presigner is the subset of the presign client used to hand out object URLs
type S3Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3 uploads to a bucket and passes a presigned GET URL to the conversion service
type S3 struct {
	client    S3PutAPI
	presigner S3Presigner
	cfg       S3Config
	logger    *zap.Logger
}

// NewS3 creates an S3 uploader from the default AWS config chain, overridden by
// static credentials and a custom endpoint when given.
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3WithClients(cfg, client, s3.NewPresignClient(client), logger), nil
}

// NewS3WithClients creates an S3 uploader over existing clients
func NewS3WithClients(cfg S3Config, client S3PutAPI, presigner S3Presigner, logger *zap.Logger) *S3 {
	if cfg.PresignExpiry <= 0 {
		cfg.PresignExpiry = DefaultPresignExpiry
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3{
		client:    client,
		presigner: presigner,
		cfg:       cfg,
		logger:    logger.Named("s3-upload"),
	}
}

func (s *S3) Name() string { return "s3" }

// Upload stores the file under a fresh key and returns a presigned GET URL for it
func (s *S3) Upload(ctx context.Context, filePath string) (Ref, error) {
	data, err := readFile(filePath)
	if err != nil {
		return Ref{}, err
	}

	key := objectKey(s.cfg.Prefix, filePath)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(filePath)),
	})
	if err != nil {
		if ctx.Err() != nil {
			return Ref{}, errors.Canceled(errors.StageUpload, ctx.Err())
		}
		return Ref{}, errors.Wrap(errors.ErrorTypeNetwork, errors.StageUpload,
			fmt.Sprintf("failed to upload %s to bucket %s", key, s.cfg.Bucket), err)
	}

	presigned, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.cfg.PresignExpiry))
	if err != nil {
		return Ref{}, errors.Wrap(errors.ErrorTypeNetwork, errors.StageUpload, "failed to presign object URL", err)
	}

	s.logger.Debug("file uploaded",
		zap.String("bucket", s.cfg.Bucket),
		zap.String("key", key),
		zap.Int("bytes", len(data)),
	)
	return RemoteURL(presigned.URL), nil
}

// objectKey returns prefix/<uuid>/<basename>
func objectKey(prefix, filePath string) string {
	return path.Join(prefix, uuid.NewString(), filepath.Base(filePath))
}

func contentType(filePath string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filePath)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
