package transport

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/narwhalmedia/docconvert/pkg/errors"
)

// GCSConfig holds Google Cloud Storage settings for the GCS uploader
type GCSConfig struct {
	Bucket          string
	Prefix          string
	CredentialsFile string // service account JSON; application default credentials when empty
	SignedURLExpiry time.Duration
}

// GCSObjectStore writes objects and signs GET URLs for them
type GCSObjectStore interface {
	Write(ctx context.Context, bucket, object, contentType string, data []byte) error
	SignedURL(bucket, object string, expires time.Time) (string, error)
}

// GCS uploads to a bucket and passes a V4 signed GET URL to the conversion service
type GCS struct {
	store  GCSObjectStore
	cfg    GCSConfig
	now    func() time.Time
	logger *zap.Logger
}

// NewGCS creates a GCS uploader
func NewGCS(ctx context.Context, cfg GCSConfig, logger *zap.Logger) (*GCS, func(), error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("storage.NewClient: %w", err)
	}

	cleanup := func() {
		if err := client.Close(); err != nil && logger != nil {
			logger.Warn("failed to close GCS client", zap.Error(err))
		}
	}
	return NewGCSWithStore(cfg, &gcsClientStore{client: client}, logger), cleanup, nil
}

// NewGCSWithStore creates a GCS uploader over an existing object store
func NewGCSWithStore(cfg GCSConfig, store GCSObjectStore, logger *zap.Logger) *GCS {
	if cfg.SignedURLExpiry <= 0 {
		cfg.SignedURLExpiry = DefaultPresignExpiry
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GCS{
		store:  store,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.Named("gcs-upload"),
	}
}

func (g *GCS) Name() string { return "gcs" }

// Upload stores the file under a fresh object name and returns a signed GET URL for it
func (g *GCS) Upload(ctx context.Context, filePath string) (Ref, error) {
	data, err := readFile(filePath)
	if err != nil {
		return Ref{}, err
	}

	object := objectKey(g.cfg.Prefix, filePath)

	if err := g.store.Write(ctx, g.cfg.Bucket, object, contentType(filePath), data); err != nil {
		if ctx.Err() != nil {
			return Ref{}, errors.Canceled(errors.StageUpload, ctx.Err())
		}
		return Ref{}, errors.Wrap(errors.ErrorTypeNetwork, errors.StageUpload,
			fmt.Sprintf("failed to upload %s to bucket %s", object, g.cfg.Bucket), err)
	}

	signed, err := g.store.SignedURL(g.cfg.Bucket, object, g.now().Add(g.cfg.SignedURLExpiry))
	if err != nil {
		return Ref{}, errors.Wrap(errors.ErrorTypeNetwork, errors.StageUpload, "failed to sign object URL", err)
	}

	g.logger.Debug("file uploaded",
		zap.String("bucket", g.cfg.Bucket),
		zap.String("object", object),
		zap.Int("bytes", len(data)),
	)
	return RemoteURL(signed), nil
}

type gcsClientStore struct {
	client *storage.Client
}

func (s *gcsClientStore) Write(ctx context.Context, bucket, object, contentType string, data []byte) error {
	wc := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	wc.ContentType = contentType

	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("Writer.Write: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %w", err)
	}
	return nil
}

func (s *gcsClientStore) SignedURL(bucket, object string, expires time.Time) (string, error) {
	return s.client.Bucket(bucket).SignedURL(object, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: expires,
		Scheme:  storage.SigningSchemeV4,
	})
}
