package transport

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/narwhalmedia/docconvert/pkg/errors"
)

// DefaultFileHostEndpoint is the anonymous upload endpoint used by FileHost
const DefaultFileHostEndpoint = "https://file.io"

// FileHost uploads to an anonymous multipart file host and returns its link
type FileHost struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// FileHostOption configures a FileHost uploader
type FileHostOption func(*FileHost)

// WithFileHostEndpoint overrides the upload endpoint
func WithFileHostEndpoint(endpoint string) FileHostOption {
	return func(f *FileHost) { f.endpoint = endpoint }
}

// WithFileHostHTTPClient sets the HTTP client
func WithFileHostHTTPClient(client *http.Client) FileHostOption {
	return func(f *FileHost) {
		if client != nil {
			f.httpClient = client
		}
	}
}

// WithFileHostLogger sets the logger
func WithFileHostLogger(logger *zap.Logger) FileHostOption {
	return func(f *FileHost) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFileHost creates a generic host uploader
func NewFileHost(opts ...FileHostOption) *FileHost {
	f := &FileHost{
		endpoint:   DefaultFileHostEndpoint,
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.Named("filehost-upload")
	return f
}

func (f *FileHost) Name() string { return "filehost" }

type fileHostResponse struct {
	Link string `json:"link"`
	ID   string `json:"id"`
}

// Upload posts the file as a multipart form and returns the host's link
func (f *FileHost) Upload(ctx context.Context, path string) (Ref, error) {
	data, err := readFile(path)
	if err != nil {
		return Ref{}, err
	}

	status, body, err := postMultipart(ctx, f.httpClient, f.endpoint, nil, path, data)
	if err != nil {
		return Ref{}, err
	}
	if status != http.StatusOK {
		return Ref{}, errors.HTTPStatus(errors.StageUpload, status, string(body))
	}

	var resp fileHostResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Ref{}, errors.Deserialization(errors.StageUpload, err)
	}
	if resp.Link == "" {
		return Ref{}, errors.MissingField(errors.StageUpload, "link")
	}

	f.logger.Debug("file uploaded",
		zap.String("id", resp.ID),
		zap.String("link", resp.Link),
		zap.Int("bytes", len(data)),
	)
	return RemoteURL(resp.Link), nil
}
