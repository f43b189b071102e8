package transport

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/narwhalmedia/docconvert/pkg/cloudconvert"
	"github.com/narwhalmedia/docconvert/pkg/errors"
)

// UploadImporter issues presigned upload slots. Implementations return either an
// error or a task whose result carries a form with a non-empty URL.
type UploadImporter interface {
	ImportUpload(ctx context.Context) (*cloudconvert.Task, error)
}

// Vendor uploads straight to the conversion service's presigned storage
type Vendor struct {
	api        UploadImporter
	httpClient *http.Client
	logger     *zap.Logger
}

// VendorOption configures a Vendor uploader
type VendorOption func(*Vendor)

// WithVendorHTTPClient sets the client used for the presigned POST
func WithVendorHTTPClient(client *http.Client) VendorOption {
	return func(v *Vendor) {
		if client != nil {
			v.httpClient = client
		}
	}
}

// WithVendorLogger sets the logger
func WithVendorLogger(logger *zap.Logger) VendorOption {
	return func(v *Vendor) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewVendor creates a direct-to-vendor uploader
func NewVendor(api UploadImporter, opts ...VendorOption) *Vendor {
	v := &Vendor{
		api:        api,
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.Named("vendor-upload")
	return v
}

func (v *Vendor) Name() string { return "vendor" }

// Upload requests a presigned slot, posts the file with the signed fields and
// returns the import task id. The API credential is not sent to the presigned host.
func (v *Vendor) Upload(ctx context.Context, path string) (Ref, error) {
	data, err := readFile(path)
	if err != nil {
		return Ref{}, err
	}

	// ImportUpload guarantees a form with a URL
	task, err := v.api.ImportUpload(ctx)
	if err != nil {
		return Ref{}, err
	}

	form := task.Result.Form
	fields, err := form.Fields()
	if err != nil {
		return Ref{}, err
	}

	status, body, err := postMultipart(ctx, v.httpClient, form.URL, fields, path, data)
	if err != nil {
		return Ref{}, err
	}
	if status < 200 || status > 299 {
		return Ref{}, errors.HTTPStatus(errors.StageUpload, status, string(body))
	}

	v.logger.Debug("file uploaded",
		zap.String("task_id", task.ID),
		zap.Int("bytes", len(data)),
		zap.Int("status", status),
	)
	return VendorTaskID(task.ID), nil
}
