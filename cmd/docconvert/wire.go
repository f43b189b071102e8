//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/narwhalmedia/docconvert/internal/cli"
	"github.com/narwhalmedia/docconvert/internal/config"
	"github.com/narwhalmedia/docconvert/internal/download"
	"github.com/narwhalmedia/docconvert/pkg/cloudconvert"
	"github.com/narwhalmedia/docconvert/pkg/converter"
)

func InitializeApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*cli.App, func(), error) {
	wire.Build(
		// Conversion service
		provideHTTPClient,
		provideAPIClient,
		wire.Bind(new(cli.TaskGetter), new(*cloudconvert.Client)),

		// Upload transport
		provideUploader,

		// Converter
		provideConverter,
		wire.Bind(new(cli.Converter), new(*converter.Converter)),

		// Result download
		provideDownloader,
		wire.Bind(new(cli.Downloader), new(*download.Downloader)),

		// Events
		providePublisher,

		wire.Struct(new(cli.App), "*"),
	)

	return nil, nil, nil
}
