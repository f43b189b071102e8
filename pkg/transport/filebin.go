package transport

import (
	"bytes"
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/narwhalmedia/docconvert/pkg/errors"
)

const (
	// DefaultFileBinBaseURL is the bin-style host used by FileBin
	DefaultFileBinBaseURL = "https://filebin.net"

	// TokenLength is the length of each random path segment
	TokenLength = 14

	tokenCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// TokenFunc returns a random alphanumeric string of length n
type TokenFunc func(n int) string

// RandomToken builds an alphanumeric token. It is not suitable for secrets.
func RandomToken(n int) string {
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(tokenCharset[rand.IntN(len(tokenCharset))])
	}
	return b.String()
}

// FileBin uploads raw bytes to a randomly named two-segment path
type FileBin struct {
	baseURL    string
	token      TokenFunc
	httpClient *http.Client
	logger     *zap.Logger
}

// FileBinOption configures a FileBin uploader
type FileBinOption func(*FileBin)

// WithFileBinBaseURL overrides the host
func WithFileBinBaseURL(baseURL string) FileBinOption {
	return func(f *FileBin) { f.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithFileBinTokens overrides the token source
func WithFileBinTokens(token TokenFunc) FileBinOption {
	return func(f *FileBin) {
		if token != nil {
			f.token = token
		}
	}
}

// WithFileBinHTTPClient sets the HTTP client
func WithFileBinHTTPClient(client *http.Client) FileBinOption {
	return func(f *FileBin) {
		if client != nil {
			f.httpClient = client
		}
	}
}

// WithFileBinLogger sets the logger
func WithFileBinLogger(logger *zap.Logger) FileBinOption {
	return func(f *FileBin) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFileBin creates a randomized-path uploader
func NewFileBin(opts ...FileBinOption) *FileBin {
	f := &FileBin{
		baseURL:    DefaultFileBinBaseURL,
		token:      RandomToken,
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.Named("filebin-upload")
	return f
}

func (f *FileBin) Name() string { return "filebin" }

// Upload posts the file body to <base>/<token>/<token>. The URL is built before
// the host has accepted anything, so only a 201 confirms it.
func (f *FileBin) Upload(ctx context.Context, path string) (Ref, error) {
	data, err := readFile(path)
	if err != nil {
		return Ref{}, err
	}

	target := fmt.Sprintf("%s/%s/%s", f.baseURL, f.token(TokenLength), f.token(TokenLength))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(data))
	if err != nil {
		return Ref{}, errors.Request(errors.StageUpload, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	status, body, err := send(f.httpClient, req)
	if err != nil {
		return Ref{}, err
	}
	if status != http.StatusCreated {
		return Ref{}, errors.HTTPStatus(errors.StageUpload, status, string(body))
	}

	f.logger.Debug("file uploaded", zap.String("url", target), zap.Int("bytes", len(data)))
	return RemoteURL(target), nil
}
