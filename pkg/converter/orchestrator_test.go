package converter_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/narwhalmedia/docconvert/pkg/cloudconvert"
	"github.com/narwhalmedia/docconvert/pkg/converter"
	apperrors "github.com/narwhalmedia/docconvert/pkg/errors"
	"github.com/narwhalmedia/docconvert/pkg/transport"
)

type MockTaskAPI struct {
	mock.Mock
}

func (m *MockTaskAPI) task(args mock.Arguments) (*cloudconvert.Task, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cloudconvert.Task), args.Error(1)
}

func (m *MockTaskAPI) ImportURL(ctx context.Context, fileURL string) (*cloudconvert.Task, error) {
	return m.task(m.Called(ctx, fileURL))
}

func (m *MockTaskAPI) Convert(ctx context.Context, req cloudconvert.ConvertRequest) (*cloudconvert.Task, error) {
	return m.task(m.Called(ctx, req))
}

func (m *MockTaskAPI) ExportURL(ctx context.Context, input string) (*cloudconvert.Task, error) {
	return m.task(m.Called(ctx, input))
}

func (m *MockTaskAPI) GetTask(ctx context.Context, id string) (*cloudconvert.Task, error) {
	return m.task(m.Called(ctx, id))
}

func finished(id string) *cloudconvert.Task {
	return &cloudconvert.Task{ID: id, Status: cloudconvert.StatusFinished}
}

func exported(id, url string) *cloudconvert.Task {
	return &cloudconvert.Task{
		ID:     id,
		Status: cloudconvert.StatusFinished,
		Result: &cloudconvert.TaskResult{Files: []cloudconvert.File{{Filename: "out.pdf", URL: url}}},
	}
}

func fastPolling() converter.PollConfig {
	return converter.PollConfig{
		Mode:        converter.PollModeWait,
		Interval:    time.Millisecond,
		MaxInterval: 4 * time.Millisecond,
		MaxAttempts: 5,
	}
}

func newOrchestrator(t *testing.T, api *MockTaskAPI, poll converter.PollConfig) *converter.Orchestrator {
	return converter.NewOrchestrator(api, poll, zaptest.NewLogger(t))
}

func TestOrchestratorRun_ThreadsTaskIDs(t *testing.T) {
	api := new(MockTaskAPI)
	ctx := context.Background()

	mock.InOrder(
		api.On("ImportURL", ctx, "https://files.example/in.docx").Return(finished("t1"), nil).Once(),
		api.On("GetTask", ctx, "t1").Return(finished("t1"), nil).Once(),
		api.On("Convert", ctx, cloudconvert.ConvertRequest{Input: "t1", InputFormat: "docx", OutputFormat: "pdf"}).
			Return(&cloudconvert.Task{ID: "t2", Status: cloudconvert.StatusWaiting}, nil).Once(),
		api.On("GetTask", ctx, "t2").Return(finished("t2"), nil).Once(),
		api.On("ExportURL", ctx, "t2").Return(&cloudconvert.Task{ID: "t3"}, nil).Once(),
		api.On("GetTask", ctx, "t3").Return(exported("t3", "https://host/out.pdf"), nil).Once(),
	)

	url, err := newOrchestrator(t, api, fastPolling()).
		Run(ctx, transport.RemoteURL("https://files.example/in.docx"), "docx", "pdf")

	require.NoError(t, err)
	assert.Equal(t, "https://host/out.pdf", url)
	api.AssertExpectations(t)
}

func TestOrchestratorRun_VendorTaskSkipsImport(t *testing.T) {
	api := new(MockTaskAPI)
	ctx := context.Background()

	mock.InOrder(
		api.On("GetTask", ctx, "upload-1").Return(finished("upload-1"), nil).Once(),
		api.On("Convert", ctx, cloudconvert.ConvertRequest{Input: "upload-1", InputFormat: "md", OutputFormat: "html"}).
			Return(&cloudconvert.Task{ID: "t2"}, nil).Once(),
		api.On("GetTask", ctx, "t2").Return(finished("t2"), nil).Once(),
		api.On("ExportURL", ctx, "t2").Return(&cloudconvert.Task{ID: "t3"}, nil).Once(),
		api.On("GetTask", ctx, "t3").Return(exported("t3", "https://host/out.html"), nil).Once(),
	)

	url, err := newOrchestrator(t, api, fastPolling()).
		Run(ctx, transport.VendorTaskID("upload-1"), "md", "html")

	require.NoError(t, err)
	assert.Equal(t, "https://host/out.html", url)
	api.AssertNotCalled(t, "ImportURL", mock.Anything, mock.Anything)
	api.AssertExpectations(t)
}

func expectThroughExport(api *MockTaskAPI, last *cloudconvert.Task) {
	api.On("ImportURL", mock.Anything, mock.Anything).Return(finished("t1"), nil)
	api.On("GetTask", mock.Anything, "t1").Return(finished("t1"), nil)
	api.On("Convert", mock.Anything, mock.Anything).Return(finished("t2"), nil)
	api.On("GetTask", mock.Anything, "t2").Return(finished("t2"), nil)
	api.On("ExportURL", mock.Anything, "t2").Return(finished("t3"), nil)
	api.On("GetTask", mock.Anything, "t3").Return(last, nil)
}

func TestOrchestratorRun_ExportResults(t *testing.T) {
	tests := []struct {
		name  string
		task  *cloudconvert.Task
		check func(error) bool
	}{
		{
			name:  "no result",
			task:  finished("t3"),
			check: apperrors.IsEmptyResult,
		},
		{
			name:  "zero files",
			task:  &cloudconvert.Task{ID: "t3", Result: &cloudconvert.TaskResult{}},
			check: apperrors.IsEmptyResult,
		},
		{
			name:  "empty url",
			task:  exported("t3", ""),
			check: apperrors.IsMissingField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockTaskAPI)
			expectThroughExport(api, tt.task)

			_, err := newOrchestrator(t, api, fastPolling()).
				Run(context.Background(), transport.RemoteURL("https://files.example/in.docx"), "docx", "pdf")

			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
			assert.Equal(t, apperrors.StageExport, apperrors.StageOf(err))
		})
	}
}

func TestOrchestratorRun_ReturnsFirstFile(t *testing.T) {
	api := new(MockTaskAPI)
	expectThroughExport(api, &cloudconvert.Task{
		ID: "t3",
		Result: &cloudconvert.TaskResult{Files: []cloudconvert.File{
			{Filename: "page-1.png", URL: "https://host/page-1.png"},
			{Filename: "page-2.png", URL: "https://host/page-2.png"},
		}},
	})

	url, err := newOrchestrator(t, api, fastPolling()).
		Run(context.Background(), transport.RemoteURL("https://files.example/in.pdf"), "pdf", "png")

	require.NoError(t, err)
	assert.Equal(t, "https://host/page-1.png", url)
}

func TestOrchestratorRun_WaitsWhilePending(t *testing.T) {
	api := new(MockTaskAPI)
	api.On("ImportURL", mock.Anything, mock.Anything).Return(finished("t1"), nil)
	api.On("GetTask", mock.Anything, "t1").
		Return(&cloudconvert.Task{ID: "t1", Status: cloudconvert.StatusWaiting}, nil).Once()
	api.On("GetTask", mock.Anything, "t1").
		Return(&cloudconvert.Task{ID: "t1", Status: cloudconvert.StatusProcessing}, nil).Once()
	api.On("GetTask", mock.Anything, "t1").Return(finished("t1"), nil).Once()
	api.On("Convert", mock.Anything, mock.Anything).Return(finished("t2"), nil)
	api.On("GetTask", mock.Anything, "t2").Return(finished("t2"), nil)
	api.On("ExportURL", mock.Anything, "t2").Return(finished("t3"), nil)
	api.On("GetTask", mock.Anything, "t3").Return(exported("t3", "https://host/out.pdf"), nil)

	url, err := newOrchestrator(t, api, fastPolling()).
		Run(context.Background(), transport.RemoteURL("https://files.example/in.docx"), "docx", "pdf")

	require.NoError(t, err)
	assert.Equal(t, "https://host/out.pdf", url)
	api.AssertNumberOfCalls(t, "GetTask", 5)
}

func TestOrchestratorRun_TaskFailed(t *testing.T) {
	api := new(MockTaskAPI)
	api.On("ImportURL", mock.Anything, mock.Anything).Return(finished("t1"), nil)
	api.On("GetTask", mock.Anything, "t1").Return(finished("t1"), nil)
	api.On("Convert", mock.Anything, mock.Anything).Return(finished("t2"), nil)
	api.On("GetTask", mock.Anything, "t2").Return(&cloudconvert.Task{
		ID:      "t2",
		Status:  cloudconvert.StatusError,
		Code:    "INVALID_CONVERSION_TYPE",
		Message: "docx to xyz is not supported",
	}, nil)

	_, err := newOrchestrator(t, api, fastPolling()).
		Run(context.Background(), transport.RemoteURL("https://files.example/in.docx"), "docx", "xyz")

	require.Error(t, err)
	assert.True(t, apperrors.IsTaskFailed(err))
	assert.Contains(t, err.Error(), "INVALID_CONVERSION_TYPE")
	api.AssertNotCalled(t, "ExportURL", mock.Anything, mock.Anything)
}

func TestOrchestratorRun_PollTimeout(t *testing.T) {
	api := new(MockTaskAPI)
	api.On("ImportURL", mock.Anything, mock.Anything).Return(finished("t1"), nil)
	api.On("GetTask", mock.Anything, "t1").Return(&cloudconvert.Task{ID: "t1", Status: cloudconvert.StatusProcessing}, nil)

	poll := fastPolling()
	poll.MaxAttempts = 3

	_, err := newOrchestrator(t, api, poll).
		Run(context.Background(), transport.RemoteURL("https://files.example/in.docx"), "docx", "pdf")

	require.Error(t, err)
	assert.True(t, apperrors.IsPollTimeout(err))
	api.AssertNumberOfCalls(t, "GetTask", 3)
	api.AssertNotCalled(t, "Convert", mock.Anything, mock.Anything)
}

func TestOrchestratorRun_SingleModeFetchesOnce(t *testing.T) {
	api := new(MockTaskAPI)
	pending := func(id string) *cloudconvert.Task {
		return &cloudconvert.Task{ID: id, Status: cloudconvert.StatusProcessing}
	}
	api.On("ImportURL", mock.Anything, mock.Anything).Return(pending("t1"), nil)
	api.On("GetTask", mock.Anything, "t1").Return(pending("t1"), nil).Once()
	api.On("Convert", mock.Anything, mock.Anything).Return(pending("t2"), nil)
	api.On("GetTask", mock.Anything, "t2").Return(pending("t2"), nil).Once()
	api.On("ExportURL", mock.Anything, "t2").Return(pending("t3"), nil)
	api.On("GetTask", mock.Anything, "t3").Return(exported("t3", "https://host/out.pdf"), nil).Once()

	poll := fastPolling()
	poll.Mode = converter.PollModeSingle

	url, err := newOrchestrator(t, api, poll).
		Run(context.Background(), transport.RemoteURL("https://files.example/in.docx"), "docx", "pdf")

	require.NoError(t, err)
	assert.Equal(t, "https://host/out.pdf", url)
	api.AssertNumberOfCalls(t, "GetTask", 3)
}

func TestOrchestratorRun_CanceledWhileWaiting(t *testing.T) {
	api := new(MockTaskAPI)
	api.On("ImportURL", mock.Anything, mock.Anything).Return(finished("t1"), nil)
	api.On("GetTask", mock.Anything, "t1").Return(&cloudconvert.Task{ID: "t1", Status: cloudconvert.StatusWaiting}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	poll := fastPolling()
	poll.Interval = time.Hour
	poll.MaxInterval = time.Hour

	_, err := newOrchestrator(t, api, poll).
		Run(ctx, transport.RemoteURL("https://files.example/in.docx"), "docx", "pdf")

	require.Error(t, err)
	assert.True(t, apperrors.IsCanceled(err))
	assert.ErrorIs(t, err, context.Canceled)
	api.AssertNumberOfCalls(t, "GetTask", 1)
}

func TestOrchestratorRun_ImportErrorStopsChain(t *testing.T) {
	api := new(MockTaskAPI)
	api.On("ImportURL", mock.Anything, mock.Anything).
		Return(nil, apperrors.HTTPStatus(apperrors.StageImport, 422, `{"message":"invalid url"}`))

	_, err := newOrchestrator(t, api, fastPolling()).
		Run(context.Background(), transport.RemoteURL("not a url"), "docx", "pdf")

	require.Error(t, err)
	assert.True(t, apperrors.IsHTTPStatus(err))
	assert.Equal(t, apperrors.StageImport, apperrors.StageOf(err))
	api.AssertNotCalled(t, "GetTask", mock.Anything, mock.Anything)
}

func TestOrchestratorRun_UnknownRefKind(t *testing.T) {
	api := new(MockTaskAPI)

	_, err := newOrchestrator(t, api, fastPolling()).
		Run(context.Background(), transport.Ref{Value: "x"}, "docx", "pdf")

	require.Error(t, err)
	assert.False(t, errors.Is(err, context.Canceled))
	assert.True(t, apperrors.IsConfig(err))
	assert.Equal(t, apperrors.StageImport, apperrors.StageOf(err))
	api.AssertExpectations(t)
}

func TestDefaultPollConfig(t *testing.T) {
	cfg := converter.DefaultPollConfig()

	assert.Equal(t, converter.PollModeWait, cfg.Mode)
	assert.Equal(t, time.Second, cfg.Interval)
	assert.Equal(t, 15*time.Second, cfg.MaxInterval)
	assert.Equal(t, 120, cfg.MaxAttempts)
}
