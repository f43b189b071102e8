package converter

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/narwhalmedia/docconvert/pkg/cloudconvert"
	"github.com/narwhalmedia/docconvert/pkg/errors"
	"github.com/narwhalmedia/docconvert/pkg/transport"
)

// TaskAPI is the subset of the conversion service used to run a job
type TaskAPI interface {
	TaskFetcher
	ImportURL(ctx context.Context, fileURL string) (*cloudconvert.Task, error)
	Convert(ctx context.Context, req cloudconvert.ConvertRequest) (*cloudconvert.Task, error)
	ExportURL(ctx context.Context, input string) (*cloudconvert.Task, error)
}

// Orchestrator chains import, convert and export tasks for one uploaded file
type Orchestrator struct {
	api    TaskAPI
	poller *poller
	logger *zap.Logger
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(api TaskAPI, poll PollConfig, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("orchestrator")

	return &Orchestrator{
		api:    api,
		poller: &poller{api: api, cfg: poll.withDefaults(), logger: logger},
		logger: logger,
	}
}

// Run drives ref through import, convert and export and returns the first
// exported file's URL. Each step consumes the id the previous step produced.
func (o *Orchestrator) Run(ctx context.Context, ref transport.Ref, inputFormat, outputFormat string) (string, error) {
	importID, err := o.importTask(ctx, ref)
	if err != nil {
		return "", err
	}
	if _, err := o.poller.wait(ctx, importID); err != nil {
		return "", err
	}

	convertTask, err := o.api.Convert(ctx, cloudconvert.ConvertRequest{
		Input:        importID,
		InputFormat:  inputFormat,
		OutputFormat: outputFormat,
	})
	if err != nil {
		return "", err
	}
	o.logger.Debug("convert task created",
		zap.String("task_id", convertTask.ID),
		zap.String("input", importID),
		zap.String("input_format", inputFormat),
		zap.String("output_format", outputFormat),
	)
	if _, err := o.poller.wait(ctx, convertTask.ID); err != nil {
		return "", err
	}

	exportTask, err := o.api.ExportURL(ctx, convertTask.ID)
	if err != nil {
		return "", err
	}
	o.logger.Debug("export task created",
		zap.String("task_id", exportTask.ID),
		zap.String("input", convertTask.ID),
	)
	exported, err := o.poller.wait(ctx, exportTask.ID)
	if err != nil {
		return "", err
	}

	return resultURL(exportTask.ID, exported)
}

func (o *Orchestrator) importTask(ctx context.Context, ref transport.Ref) (string, error) {
	switch ref.Kind {
	case transport.RefVendorTask:
		return ref.Value, nil
	case transport.RefRemoteURL:
		task, err := o.api.ImportURL(ctx, ref.Value)
		if err != nil {
			return "", err
		}
		o.logger.Debug("import task created", zap.String("task_id", task.ID))
		return task.ID, nil
	default:
		return "", errors.Config(errors.StageImport, fmt.Sprintf("unsupported upload reference kind %s", ref.Kind))
	}
}

func resultURL(taskID string, task *cloudconvert.Task) (string, error) {
	if task.Result == nil || len(task.Result.Files) == 0 {
		return "", errors.EmptyResult(errors.StageExport, taskID)
	}
	file := task.Result.Files[0]
	if file.URL == "" {
		return "", errors.MissingField(errors.StageExport, "data.result.files[0].url")
	}
	return file.URL, nil
}
