package cloudconvert

import (
	"github.com/narwhalmedia/docconvert/pkg/errors"
)

// TaskStatus represents the remote status of a task
type TaskStatus string

const (
	StatusWaiting    TaskStatus = "waiting"
	StatusProcessing TaskStatus = "processing"
	StatusFinished   TaskStatus = "finished"
	StatusError      TaskStatus = "error"
)

// Task is a remote job step identified by an opaque id
type Task struct {
	ID        string      `json:"id" yaml:"id"`
	Operation string      `json:"operation,omitempty" yaml:"operation,omitempty"`
	Status    TaskStatus  `json:"status" yaml:"status"`
	Message   string      `json:"message,omitempty" yaml:"message,omitempty"`
	Code      string      `json:"code,omitempty" yaml:"code,omitempty"`
	Result    *TaskResult `json:"result,omitempty" yaml:"result,omitempty"`
}

// TaskResult holds produced files or, for upload imports, the presigned form
type TaskResult struct {
	Files []File      `json:"files,omitempty" yaml:"files,omitempty"`
	Form  *UploadForm `json:"form,omitempty" yaml:"form,omitempty"`
}

// File describes one produced file
type File struct {
	Filename string `json:"filename" yaml:"filename"`
	Size     int64  `json:"size,omitempty" yaml:"size,omitempty"`
	URL      string `json:"url" yaml:"url"`
}

// UploadForm is the presigned destination returned by an upload import
type UploadForm struct {
	URL        string         `json:"url"`
	Parameters map[string]any `json:"parameters"`
}

// FormField is a single signed form value
type FormField struct {
	Name  string
	Value string
}

// SignedFields are the form parameters that authorize a direct upload, in submission order.
var SignedFields = []string{
	"key",
	"acl",
	"X-Amz-Algorithm",
	"X-Amz-Credential",
	"X-Amz-Date",
	"X-Amz-Signature",
	"Policy",
	"success_action_status",
}

// Fields returns the signed fields in submission order. Every field must be
// present and a string.
func (f *UploadForm) Fields() ([]FormField, error) {
	if f.Parameters == nil {
		return nil, errors.MissingField(errors.StageUpload, "data.result.form.parameters")
	}

	fields := make([]FormField, 0, len(SignedFields))
	for _, name := range SignedFields {
		raw, ok := f.Parameters[name]
		if !ok {
			return nil, errors.MissingField(errors.StageUpload, "data.result.form.parameters."+name)
		}
		value, ok := raw.(string)
		if !ok {
			return nil, errors.MissingField(errors.StageUpload, "data.result.form.parameters."+name)
		}
		fields = append(fields, FormField{Name: name, Value: value})
	}
	return fields, nil
}

// ConvertRequest is the body of a convert call
type ConvertRequest struct {
	Input        string `json:"input"`
	InputFormat  string `json:"input_format"`
	OutputFormat string `json:"output_format"`
}

type taskEnvelope struct {
	Data *Task `json:"data"`
}

type importURLRequest struct {
	URL string `json:"url"`
}

type exportURLRequest struct {
	Input string `json:"input"`
}
