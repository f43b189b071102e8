package converter_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"

	"github.com/narwhalmedia/docconvert/pkg/converter"
	"github.com/narwhalmedia/docconvert/pkg/errors"
	"github.com/narwhalmedia/docconvert/pkg/transport"
	"github.com/narwhalmedia/docconvert/test/testutil"
)

const localURL = "https://files.example/L"

type ConverterTestSuite struct {
	suite.Suite
	fake *testutil.FakeService
	path string
}

func (suite *ConverterTestSuite) SetupTest() {
	suite.fake = testutil.SetupFakeService(suite.T())
	suite.path = testutil.CreateTestDocument(suite.T())
}

func (suite *ConverterTestSuite) newConverter(opts ...converter.Option) *converter.Converter {
	base := []converter.Option{
		converter.WithBaseURL(suite.fake.URL("/v2")),
		converter.WithSyncURL(suite.fake.URL("/sync/v2")),
		converter.WithLogger(zaptest.NewLogger(suite.T())),
		converter.WithPollConfig(converter.PollConfig{Interval: time.Millisecond, MaxAttempts: 3}),
	}
	return converter.New("secret-key", append(base, opts...)...)
}

func (suite *ConverterTestSuite) fileHost() converter.Option {
	return converter.WithUploader(transport.NewFileHost(transport.WithFileHostEndpoint(suite.fake.URL("/filehost"))))
}

func (suite *ConverterTestSuite) scriptChain(exportResult map[string]any) {
	suite.fake.
		OnTask(http.MethodPost, "/v2/import/url", http.StatusCreated, map[string]any{"id": "t1"}).
		OnTask(http.MethodGet, "/sync/v2/tasks/t1", http.StatusOK, map[string]any{}).
		OnTask(http.MethodPost, "/v2/convert", http.StatusCreated, map[string]any{"id": "t2"}).
		OnTask(http.MethodGet, "/sync/v2/tasks/t2", http.StatusOK, map[string]any{}).
		OnTask(http.MethodPost, "/v2/export/url", http.StatusCreated, map[string]any{"id": "t3"}).
		OnTask(http.MethodGet, "/sync/v2/tasks/t3", http.StatusOK, exportResult)
}

func exportedFiles(urls ...string) map[string]any {
	files := make([]map[string]any, len(urls))
	for i, u := range urls {
		files[i] = map[string]any{"filename": "out.pdf", "url": u}
	}
	return map[string]any{"status": "finished", "result": map[string]any{"files": files}}
}

func (suite *ConverterTestSuite) TestConvert_RoundTrip() {
	suite.fake.On(http.MethodPost, "/filehost", http.StatusOK, `{"id":"L","link":"`+localURL+`"}`)
	suite.scriptChain(exportedFiles("https://host/out.pdf"))

	url, err := suite.newConverter(suite.fileHost()).Convert(context.Background(), suite.path, "docx", "pdf")

	suite.Require().NoError(err)
	suite.Equal("https://host/out.pdf", url)
	suite.Equal([]string{
		"POST /filehost",
		"POST /v2/import/url",
		"GET /sync/v2/tasks/t1",
		"POST /v2/convert",
		"GET /sync/v2/tasks/t2",
		"POST /v2/export/url",
		"GET /sync/v2/tasks/t3",
	}, suite.fake.Paths())

	calls := suite.fake.Calls()
	suite.Empty(calls[0].Authorization)
	for _, call := range calls[1:] {
		suite.Equal("Bearer secret-key", call.Authorization)
	}
	suite.Equal(map[string]any{"url": localURL}, calls[1].Body)
	suite.Equal(map[string]any{"input": "t1", "input_format": "docx", "output_format": "pdf"}, calls[3].Body)
	suite.Equal(map[string]any{"input": "t2"}, calls[5].Body)
}

func (suite *ConverterTestSuite) TestConvert_LegacyPolling() {
	suite.fake.On(http.MethodPost, "/filehost", http.StatusOK, `{"link":"`+localURL+`"}`)
	suite.scriptChain(exportedFiles("https://host/out.pdf"))

	url, err := suite.newConverter(suite.fileHost(), converter.WithLegacyPolling()).
		Convert(context.Background(), suite.path, "docx", "pdf")

	suite.Require().NoError(err)
	suite.Equal("https://host/out.pdf", url)
	suite.Len(suite.fake.Calls(), 7)
}

func (suite *ConverterTestSuite) TestConvert_DefaultVendorUpload() {
	suite.fake.
		OnTask(http.MethodPost, "/v2/import/upload", http.StatusCreated, map[string]any{
			"id": "t1",
			"result": map[string]any{"form": map[string]any{
				"url": suite.fake.URL("/presigned"),
				"parameters": map[string]any{
					"key": "k", "acl": "private", "X-Amz-Algorithm": "AWS4-HMAC-SHA256",
					"X-Amz-Credential": "c", "X-Amz-Date": "d", "X-Amz-Signature": "s",
					"Policy": "p", "success_action_status": "201",
				},
			}},
		}).
		On(http.MethodPost, "/presigned", http.StatusCreated, "").
		OnTask(http.MethodGet, "/sync/v2/tasks/t1", http.StatusOK, map[string]any{"status": "finished"}).
		OnTask(http.MethodPost, "/v2/convert", http.StatusCreated, map[string]any{"id": "t2"}).
		OnTask(http.MethodGet, "/sync/v2/tasks/t2", http.StatusOK, map[string]any{"status": "finished"}).
		OnTask(http.MethodPost, "/v2/export/url", http.StatusCreated, map[string]any{"id": "t3"}).
		OnTask(http.MethodGet, "/sync/v2/tasks/t3", http.StatusOK, exportedFiles("https://host/out.pdf"))

	conv := suite.newConverter()
	url, err := conv.Convert(context.Background(), suite.path, "docx", "pdf")

	suite.Require().NoError(err)
	suite.Equal("https://host/out.pdf", url)
	suite.Equal("vendor", conv.Uploader())
	suite.Equal([]string{
		"POST /v2/import/upload",
		"POST /presigned",
		"GET /sync/v2/tasks/t1",
		"POST /v2/convert",
		"GET /sync/v2/tasks/t2",
		"POST /v2/export/url",
		"GET /sync/v2/tasks/t3",
	}, suite.fake.Paths())
	suite.Empty(suite.fake.Calls()[1].Authorization)
}

func (suite *ConverterTestSuite) TestConvert_UploadFailureMakesNoAPICalls() {
	suite.fake.On(http.MethodPost, "/filehost", http.StatusInternalServerError, `{"error":"boom"}`)

	_, err := suite.newConverter(suite.fileHost()).Convert(context.Background(), suite.path, "docx", "pdf")

	suite.Require().Error(err)
	suite.True(errors.IsUpload(err))
	suite.True(errors.IsHTTPStatus(err))
	suite.Equal([]string{"POST /filehost"}, suite.fake.Paths())
}

func (suite *ConverterTestSuite) TestConvert_PresignedFormWithoutURL() {
	suite.fake.OnTask(http.MethodPost, "/v2/import/upload", http.StatusCreated, map[string]any{
		"id":     "t1",
		"result": map[string]any{"form": map[string]any{"parameters": map[string]any{}}},
	})

	_, err := suite.newConverter().Convert(context.Background(), suite.path, "docx", "pdf")

	suite.Require().Error(err)
	suite.True(errors.IsMissingField(err))
	suite.Equal([]string{"POST /v2/import/upload"}, suite.fake.Paths())
}

func (suite *ConverterTestSuite) TestConvert_ZeroExportFiles() {
	suite.fake.On(http.MethodPost, "/filehost", http.StatusOK, `{"link":"`+localURL+`"}`)
	suite.scriptChain(exportedFiles())

	_, err := suite.newConverter(suite.fileHost()).Convert(context.Background(), suite.path, "docx", "pdf")

	suite.Require().Error(err)
	suite.True(errors.IsEmptyResult(err))
}

func (suite *ConverterTestSuite) TestConvert_UnexpectedJSONShape() {
	suite.fake.On(http.MethodPost, "/filehost", http.StatusOK, `{"link":"`+localURL+`"}`)
	suite.fake.On(http.MethodPost, "/v2/import/url", http.StatusCreated, `{"data":["not","a","task"]}`)

	_, err := suite.newConverter(suite.fileHost()).Convert(context.Background(), suite.path, "docx", "pdf")

	suite.Require().Error(err)
	suite.True(errors.IsDeserialization(err))
}

func TestConverterTestSuite(t *testing.T) {
	suite.Run(t, new(ConverterTestSuite))
}

func TestNew_DefaultsToVendorUploader(t *testing.T) {
	conv := converter.New("key")

	assert.Equal(t, "vendor", conv.Uploader())
}

func TestNew_WithoutUploadCapableClient(t *testing.T) {
	conv := converter.New("key", converter.WithAPIClient(new(MockTaskAPI)))

	assert.Empty(t, conv.Uploader())
	_, err := conv.Convert(context.Background(), "in.docx", "docx", "pdf")
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}
