package cloudconvert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/narwhalmedia/docconvert/pkg/errors"
)

const (
	// DefaultBaseURL is where tasks are created
	DefaultBaseURL = "https://api.cloudconvert.com/v2"
	// DefaultSyncURL is where tasks are fetched; it answers once a task settles
	DefaultSyncURL = "https://sync.api.cloudconvert.com/v2"
)

// Client represents a CloudConvert API client
type Client struct {
	baseURL    string
	syncURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides the API host used for task creation
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithSyncURL overrides the host used to fetch tasks
func WithSyncURL(syncURL string) Option {
	return func(c *Client) { c.syncURL = strings.TrimRight(syncURL, "/") }
}

// WithHTTPClient sets the HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new CloudConvert client. It performs no I/O.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		syncURL:    DefaultSyncURL,
		apiKey:     apiKey,
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("cloudconvert")
	return c
}

// HTTPClient returns the client's HTTP client, shared with uploaders that post to
// presigned hosts.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// ImportURL creates an import task that fetches the file at fileURL
func (c *Client) ImportURL(ctx context.Context, fileURL string) (*Task, error) {
	return c.createTask(ctx, errors.StageImport, "/import/url", importURLRequest{URL: fileURL})
}

// ImportUpload creates an upload import task and returns it with its presigned form
func (c *Client) ImportUpload(ctx context.Context) (*Task, error) {
	task, err := c.createTask(ctx, errors.StageUpload, "/import/upload", nil)
	if err != nil {
		return nil, err
	}

	if task.Result == nil || task.Result.Form == nil {
		return nil, errors.MissingField(errors.StageUpload, "data.result.form")
	}
	if task.Result.Form.URL == "" {
		return nil, errors.MissingField(errors.StageUpload, "data.result.form.url")
	}
	return task, nil
}

// Convert creates a convert task for the given input task
func (c *Client) Convert(ctx context.Context, req ConvertRequest) (*Task, error) {
	return c.createTask(ctx, errors.StageConvert, "/convert", req)
}

// ExportURL creates an export task that publishes the input task's files as URLs
func (c *Client) ExportURL(ctx context.Context, input string) (*Task, error) {
	return c.createTask(ctx, errors.StageExport, "/export/url", exportURLRequest{Input: input})
}

// GetTask fetches a task by id from the sync host, which answers once the task settles
func (c *Client) GetTask(ctx context.Context, id string) (*Task, error) {
	endpoint := fmt.Sprintf("%s/tasks/%s", c.syncURL, url.PathEscape(id))

	var envelope taskEnvelope
	if err := c.do(ctx, errors.StageWait, http.MethodGet, endpoint, nil, &envelope); err != nil {
		return nil, err
	}
	if envelope.Data == nil {
		return nil, errors.MissingField(errors.StageWait, "data")
	}
	return envelope.Data, nil
}

func (c *Client) createTask(ctx context.Context, stage errors.Stage, path string, body any) (*Task, error) {
	var envelope taskEnvelope
	if err := c.do(ctx, stage, http.MethodPost, c.baseURL+path, body, &envelope); err != nil {
		return nil, err
	}
	if envelope.Data == nil {
		return nil, errors.MissingField(stage, "data")
	}
	if envelope.Data.ID == "" {
		return nil, errors.MissingField(stage, "data.id")
	}

	c.logger.Debug("task created",
		zap.String("path", path),
		zap.String("task_id", envelope.Data.ID),
		zap.String("status", string(envelope.Data.Status)),
	)
	return envelope.Data, nil
}

func (c *Client) do(ctx context.Context, stage errors.Stage, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Request(stage, fmt.Errorf("encoding request: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return errors.Request(stage, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return errors.Canceled(stage, ctx.Err())
		}
		return errors.Network(stage, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return errors.Canceled(stage, ctx.Err())
		}
		return errors.Network(stage, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("unexpected status",
			zap.String("method", method),
			zap.String("url", endpoint),
			zap.Int("status", resp.StatusCode),
		)
		return errors.HTTPStatus(stage, resp.StatusCode, string(data))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return errors.Deserialization(stage, err)
	}
	return nil
}
