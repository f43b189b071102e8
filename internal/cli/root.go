package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/narwhalmedia/docconvert/internal/config"
	"github.com/narwhalmedia/docconvert/internal/events"
	"github.com/narwhalmedia/docconvert/pkg/cloudconvert"
	"github.com/narwhalmedia/docconvert/pkg/logger"
)

// Converter runs one conversion
type Converter interface {
	Convert(ctx context.Context, path, inputFormat, outputFormat string) (string, error)
	Uploader() string
}

// TaskGetter fetches a task by id
type TaskGetter interface {
	GetTask(ctx context.Context, id string) (*cloudconvert.Task, error)
}

// Downloader stores a result file locally
type Downloader interface {
	Save(ctx context.Context, url, dir string) (string, error)
}

// App holds the collaborators the commands run against
type App struct {
	Converter  Converter
	Tasks      TaskGetter
	Publisher  events.Publisher
	Downloader Downloader
}

// Builder assembles an App from resolved configuration
type Builder func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, func(), error)

// Option configures the root command
type Option func(*root)

// WithManagerOptions passes options to the config manager
func WithManagerOptions(opts ...config.ManagerOption) Option {
	return func(r *root) { r.managerOpts = append(r.managerOpts, opts...) }
}

// WithLogger replaces the logger built from configuration
func WithLogger(l *zap.Logger) Option {
	return func(r *root) { r.logger = l }
}

type root struct {
	build       Builder
	managerOpts []config.ManagerOption

	configFile string
	credential string
	transport  string
	pollMode   string
	logLevel   string
	output     string

	cfg     *config.Config
	logger  *zap.Logger
	app     *App
	cleanup func()
}

// NewRootCommand creates the docconvert command tree
func NewRootCommand(build Builder, opts ...Option) *cobra.Command {
	_, cmd := newRoot(build, opts...)
	return cmd
}

// Execute runs the command tree and releases what the builder acquired,
// including when a command fails.
func Execute(ctx context.Context, build Builder, opts ...Option) error {
	r, cmd := newRoot(build, opts...)
	defer r.teardown(cmd, nil)
	return cmd.ExecuteContext(ctx)
}

func newRoot(build Builder, opts ...Option) (*root, *cobra.Command) {
	r := &root{build: build}
	for _, opt := range opts {
		opt(r)
	}

	cmd := &cobra.Command{
		Use:   "docconvert",
		Short: "Convert documents through a hosted conversion service",
		Long: "docconvert uploads a local file, converts it with a hosted conversion service " +
			"and prints a URL of the converted file.",
		SilenceUsage:       true,
		PersistentPreRunE:  r.setup,
		PersistentPostRunE: r.teardown,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&r.configFile, "config", "c", "", "Path to a YAML or JSON config file")
	flags.StringVar(&r.credential, "credential", "", "API credential (overrides DOCCONVERT_CREDENTIAL)")
	flags.StringVarP(&r.transport, "transport", "t", "", "Upload transport: vendor, filehost, filebin, s3 or gcs")
	flags.StringVar(&r.pollMode, "poll-mode", "", "Task polling: wait or single")
	flags.StringVar(&r.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVarP(&r.output, "output", "o", formatText, "Output format: text, json or yaml")

	cmd.AddCommand(newConvertCmd(r))
	cmd.AddCommand(newTaskCmd(r))

	return r, cmd
}

func (r *root) overrides(cmd *cobra.Command) map[string]any {
	overrides := make(map[string]any)
	set := func(flag, key, value string) {
		if cmd.Flags().Changed(flag) {
			overrides[key] = value
		}
	}
	set("credential", "credential", r.credential)
	set("transport", "transport.type", r.transport)
	set("poll-mode", "polling.mode", r.pollMode)
	set("log-level", "logger.level", r.logLevel)
	return overrides
}

func (r *root) setup(cmd *cobra.Command, args []string) error {
	if err := validateFormat(r.output); err != nil {
		return err
	}

	managerOpts := r.managerOpts
	if r.configFile != "" {
		managerOpts = append(managerOpts, config.WithConfigFile(r.configFile))
	}

	cfg, err := config.NewManager(managerOpts...).Load(r.overrides(cmd))
	if err != nil {
		return err
	}
	r.cfg = cfg

	if r.logger == nil {
		logCfg := logger.DefaultConfig()
		logCfg.Level = cfg.Logger.Level
		logCfg.Encoding = cfg.Logger.Encoding
		logCfg.Development = cfg.Logger.Development
		r.logger, err = logCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	app, cleanup, err := r.build(cmd.Context(), cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	r.app = app
	r.cleanup = cleanup

	cmd.SetContext(logger.WithContext(cmd.Context(), r.logger))
	return nil
}

func (r *root) teardown(cmd *cobra.Command, args []string) error {
	if r.cleanup != nil {
		r.cleanup()
		r.cleanup = nil
	}
	if r.logger != nil {
		_ = r.logger.Sync()
	}
	return nil
}
