package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/narwhalmedia/docconvert/pkg/cloudconvert"
	"github.com/narwhalmedia/docconvert/pkg/errors"
)

// postMultipart sends fields followed by a "file" part and returns status and body.
func postMultipart(ctx context.Context, client *http.Client, target string, fields []cloudconvert.FormField, path string, data []byte) (int, []byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, field := range fields {
		if err := writer.WriteField(field.Name, field.Value); err != nil {
			return 0, nil, errors.Request(errors.StageUpload, fmt.Errorf("writing form field %s: %w", field.Name, err))
		}
	}

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return 0, nil, errors.Request(errors.StageUpload, fmt.Errorf("creating file part: %w", err))
	}
	if _, err := part.Write(data); err != nil {
		return 0, nil, errors.Request(errors.StageUpload, fmt.Errorf("writing file part: %w", err))
	}
	if err := writer.Close(); err != nil {
		return 0, nil, errors.Request(errors.StageUpload, fmt.Errorf("closing multipart writer: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &buf)
	if err != nil {
		return 0, nil, errors.Request(errors.StageUpload, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return send(client, req)
}

func send(client *http.Client, req *http.Request) (int, []byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return 0, nil, errors.Canceled(errors.StageUpload, ctxErr)
		}
		return 0, nil, errors.Network(errors.StageUpload, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return 0, nil, errors.Canceled(errors.StageUpload, ctxErr)
		}
		return 0, nil, errors.Network(errors.StageUpload, err)
	}
	return resp.StatusCode, body, nil
}
