package download

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const fallbackName = "converted"

// Downloader fetches converted files to local disk
type Downloader struct {
	client *http.Client
	logger *zap.Logger
}

// NewDownloader creates a new downloader. A nil client gets one without a
// timeout since result files can be large.
func NewDownloader(client *http.Client, logger *zap.Logger) *Downloader {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{
		client: client,
		logger: logger.Named("downloader"),
	}
}

// Save downloads source into dir and returns the written path. The file name
// comes from Content-Disposition, then the URL path.
func (d *Downloader) Save(ctx context.Context, source, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "docconvert/1.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to start download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	target := filepath.Join(dir, fileName(resp.Header.Get("Content-Disposition"), source))
	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", target, err)
	}

	written, err := io.CopyBuffer(out, resp.Body, make([]byte, 32*1024))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(target)
		return "", fmt.Errorf("download failed after %d bytes: %w", written, err)
	}

	d.logger.Debug("file downloaded",
		zap.String("source", source),
		zap.String("path", target),
		zap.Int64("bytes", written),
	)
	return target, nil
}

// fileName picks a base name that cannot escape the target directory
func fileName(contentDisposition, source string) string {
	if contentDisposition != "" {
		if _, params, err := mime.ParseMediaType(contentDisposition); err == nil {
			if name := safeBase(params["filename"]); name != "" {
				return name
			}
		}
	}
	if u, err := url.Parse(source); err == nil {
		if name := safeBase(path.Base(u.Path)); name != "" {
			return name
		}
	}
	return fallbackName
}

func safeBase(name string) string {
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return ""
	}
	return name
}
