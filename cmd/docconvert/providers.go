package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/narwhalmedia/docconvert/internal/config"
	"github.com/narwhalmedia/docconvert/internal/download"
	"github.com/narwhalmedia/docconvert/internal/events"
	"github.com/narwhalmedia/docconvert/pkg/cloudconvert"
	"github.com/narwhalmedia/docconvert/pkg/converter"
	"github.com/narwhalmedia/docconvert/pkg/transport"
)

func provideHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.API.Timeout}
}

func provideAPIClient(cfg *config.Config, httpClient *http.Client, logger *zap.Logger) *cloudconvert.Client {
	return cloudconvert.NewClient(cfg.Credential,
		cloudconvert.WithBaseURL(cfg.API.BaseURL),
		cloudconvert.WithSyncURL(cfg.API.SyncURL),
		cloudconvert.WithHTTPClient(httpClient),
		cloudconvert.WithLogger(logger),
	)
}

func provideUploader(ctx context.Context, cfg *config.Config, api *cloudconvert.Client, httpClient *http.Client, logger *zap.Logger) (transport.Uploader, func(), error) {
	noop := func() {}
	t := cfg.Transport

	switch t.Type {
	case config.TransportFileHost:
		return transport.NewFileHost(
			transport.WithFileHostEndpoint(t.FileHost.Endpoint),
			transport.WithFileHostHTTPClient(httpClient),
			transport.WithFileHostLogger(logger),
		), noop, nil
	case config.TransportFileBin:
		return transport.NewFileBin(
			transport.WithFileBinBaseURL(t.FileBin.BaseURL),
			transport.WithFileBinHTTPClient(httpClient),
			transport.WithFileBinLogger(logger),
		), noop, nil
	case config.TransportS3:
		uploader, err := transport.NewS3(ctx, transport.S3Config{
			Bucket:          t.S3.Bucket,
			Region:          t.S3.Region,
			Prefix:          t.S3.Prefix,
			Endpoint:        t.S3.Endpoint,
			AccessKeyID:     t.S3.AccessKeyID,
			SecretAccessKey: t.S3.SecretAccessKey,
			PresignExpiry:   t.S3.PresignExpiry,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return uploader, noop, nil
	case config.TransportGCS:
		return transport.NewGCS(ctx, transport.GCSConfig{
			Bucket:          t.GCS.Bucket,
			Prefix:          t.GCS.Prefix,
			CredentialsFile: t.GCS.CredentialsFile,
			SignedURLExpiry: t.GCS.SignedURLExpiry,
		}, logger)
	case config.TransportVendor, "":
		return transport.NewVendor(api,
			transport.WithVendorHTTPClient(httpClient),
			transport.WithVendorLogger(logger),
		), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport type %q", t.Type)
	}
}

func provideConverter(cfg *config.Config, api *cloudconvert.Client, uploader transport.Uploader, httpClient *http.Client, logger *zap.Logger) *converter.Converter {
	return converter.New(cfg.Credential,
		converter.WithAPIClient(api),
		converter.WithUploader(uploader),
		converter.WithHTTPClient(httpClient),
		converter.WithPollConfig(cfg.Polling.PollConfig()),
		converter.WithLogger(logger),
	)
}

// provideDownloader uses its own client; the API timeout is too short for result files.
func provideDownloader(logger *zap.Logger) *download.Downloader {
	return download.NewDownloader(nil, logger)
}

func providePublisher(ctx context.Context, cfg *config.Config, logger *zap.Logger) (events.Publisher, func(), error) {
	switch cfg.Events.Type {
	case config.EventsNATS:
		publisher, err := events.NewNATSPublisher(ctx, events.NATSConfig{
			URL:           cfg.Events.NATS.URL,
			SubjectPrefix: cfg.Events.NATS.SubjectPrefix,
			Stream:        cfg.Events.NATS.Stream,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return publisher, closer(publisher, logger), nil
	case config.EventsKafka:
		publisher, err := events.NewKafkaPublisher(cfg.Events.Kafka.Brokers, cfg.Events.Kafka.Topic, logger)
		if err != nil {
			return nil, nil, err
		}
		return publisher, closer(publisher, logger), nil
	default:
		return events.NewNoopPublisher(), func() {}, nil
	}
}

func closer(publisher events.Publisher, logger *zap.Logger) func() {
	return func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("failed to close event publisher", zap.Error(err))
		}
	}
}
