package converter

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/narwhalmedia/docconvert/pkg/cloudconvert"
	"github.com/narwhalmedia/docconvert/pkg/errors"
	"github.com/narwhalmedia/docconvert/pkg/transport"
)

var errNoUploader = errors.Config(errors.StageUpload, "no uploader configured and the API client cannot issue upload slots")

// Converter turns a local file into a URL of the converted file
type Converter struct {
	apiKey     string
	baseURL    string
	syncURL    string
	httpClient *http.Client
	api        TaskAPI
	uploader   transport.Uploader
	poll       PollConfig
	logger     *zap.Logger

	orchestrator *Orchestrator
}

// Option configures a Converter
type Option func(*Converter)

// WithUploader sets the upload strategy. The default uploads to the
// conversion service's own presigned storage.
func WithUploader(uploader transport.Uploader) Option {
	return func(c *Converter) { c.uploader = uploader }
}

// WithAPIClient replaces the conversion service client
func WithAPIClient(api TaskAPI) Option {
	return func(c *Converter) { c.api = api }
}

// WithHTTPClient sets the HTTP client shared by the API client and the default uploader
func WithHTTPClient(client *http.Client) Option {
	return func(c *Converter) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the task creation host
func WithBaseURL(baseURL string) Option {
	return func(c *Converter) { c.baseURL = baseURL }
}

// WithSyncURL overrides the task polling host
func WithSyncURL(syncURL string) Option {
	return func(c *Converter) { c.syncURL = syncURL }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Converter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPollConfig sets how tasks are awaited
func WithPollConfig(cfg PollConfig) Option {
	return func(c *Converter) { c.poll = cfg }
}

// WithLegacyPolling fetches each task exactly once without inspecting its status
func WithLegacyPolling() Option {
	return func(c *Converter) { c.poll.Mode = PollModeSingle }
}

// New creates a Converter. It performs no I/O.
func New(apiKey string, opts ...Option) *Converter {
	c := &Converter{
		apiKey:     apiKey,
		baseURL:    cloudconvert.DefaultBaseURL,
		syncURL:    cloudconvert.DefaultSyncURL,
		httpClient: &http.Client{},
		poll:       DefaultPollConfig(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.api == nil {
		client := cloudconvert.NewClient(apiKey,
			cloudconvert.WithBaseURL(c.baseURL),
			cloudconvert.WithSyncURL(c.syncURL),
			cloudconvert.WithHTTPClient(c.httpClient),
			cloudconvert.WithLogger(c.logger),
		)
		c.api = client
		if c.uploader == nil {
			c.uploader = transport.NewVendor(client,
				transport.WithVendorHTTPClient(c.httpClient),
				transport.WithVendorLogger(c.logger),
			)
		}
	}
	if c.uploader == nil {
		if importer, ok := c.api.(transport.UploadImporter); ok {
			c.uploader = transport.NewVendor(importer,
				transport.WithVendorHTTPClient(c.httpClient),
				transport.WithVendorLogger(c.logger),
			)
		}
	}

	c.orchestrator = NewOrchestrator(c.api, c.poll, c.logger)
	c.logger = c.logger.Named("converter")
	return c
}

// Uploader returns the name of the configured upload strategy
func (c *Converter) Uploader() string {
	if c.uploader == nil {
		return ""
	}
	return c.uploader.Name()
}

// Convert uploads the file at path, converts it from inputFormat to
// outputFormat and returns the URL of the first produced file. Formats are
// passed to the service verbatim.
func (c *Converter) Convert(ctx context.Context, path, inputFormat, outputFormat string) (string, error) {
	if c.uploader == nil {
		return "", errNoUploader
	}

	id := uuid.New()
	logger := c.logger.With(zap.String("conversion_id", id.String()))
	start := time.Now()

	logger.Debug("uploading file",
		zap.String("path", path),
		zap.String("transport", c.uploader.Name()),
	)
	ref, err := c.uploader.Upload(ctx, path)
	if err != nil {
		logger.Debug("upload failed", zap.Error(err))
		return "", err
	}
	logger.Debug("file uploaded",
		zap.Stringer("ref_kind", ref.Kind),
		zap.String("ref", ref.Value),
	)

	url, err := c.orchestrator.Run(ctx, ref, inputFormat, outputFormat)
	if err != nil {
		logger.Debug("conversion failed", zap.Error(err))
		return "", err
	}

	logger.Info("conversion finished",
		zap.String("input_format", inputFormat),
		zap.String("output_format", outputFormat),
		zap.Duration("duration", time.Since(start)),
	)
	return url, nil
}
