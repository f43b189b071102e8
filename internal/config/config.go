package config

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/narwhalmedia/docconvert/pkg/cloudconvert"
	"github.com/narwhalmedia/docconvert/pkg/converter"
	"github.com/narwhalmedia/docconvert/pkg/transport"
)

func init() {
	// report validation errors by config key
	validation.ErrorTag = "koanf"
}

// Transport types
const (
	TransportVendor   = "vendor"
	TransportFileHost = "filehost"
	TransportFileBin  = "filebin"
	TransportS3       = "s3"
	TransportGCS      = "gcs"
)

// Event publisher types
const (
	EventsNone  = "none"
	EventsNATS  = "nats"
	EventsKafka = "kafka"
)

// Config holds all configuration for docconvert
type Config struct {
	Credential string          `koanf:"credential"`
	API        APIConfig       `koanf:"api"`
	Transport  TransportConfig `koanf:"transport"`
	Polling    PollingConfig   `koanf:"polling"`
	Logger     LoggerConfig    `koanf:"logger"`
	Events     EventsConfig    `koanf:"events"`
}

// APIConfig holds conversion service endpoints
type APIConfig struct {
	BaseURL string        `koanf:"base_url"`
	SyncURL string        `koanf:"sync_url"`
	Timeout time.Duration `koanf:"timeout"` // zero means no client-side timeout
}

// TransportConfig selects and configures the upload strategy
type TransportConfig struct {
	Type     string         `koanf:"type"`
	FileHost FileHostConfig `koanf:"filehost"`
	FileBin  FileBinConfig  `koanf:"filebin"`
	S3       S3Config       `koanf:"s3"`
	GCS      GCSConfig      `koanf:"gcs"`
}

// FileHostConfig configures the anonymous multipart host
type FileHostConfig struct {
	Endpoint string `koanf:"endpoint"`
}

// FileBinConfig configures the randomized-path host
type FileBinConfig struct {
	BaseURL string `koanf:"base_url"`
}

// S3Config configures the S3 uploader
type S3Config struct {
	Bucket          string        `koanf:"bucket"`
	Region          string        `koanf:"region"`
	Prefix          string        `koanf:"prefix"`
	Endpoint        string        `koanf:"endpoint"`
	AccessKeyID     string        `koanf:"access_key_id"`
	SecretAccessKey string        `koanf:"secret_access_key"`
	PresignExpiry   time.Duration `koanf:"presign_expiry"`
}

// GCSConfig configures the GCS uploader
type GCSConfig struct {
	Bucket          string        `koanf:"bucket"`
	Prefix          string        `koanf:"prefix"`
	CredentialsFile string        `koanf:"credentials_file"`
	SignedURLExpiry time.Duration `koanf:"signed_url_expiry"`
}

// PollingConfig controls how remote tasks are awaited
type PollingConfig struct {
	Mode        string        `koanf:"mode"` // wait or single
	Interval    time.Duration `koanf:"interval"`
	MaxInterval time.Duration `koanf:"max_interval"`
	MaxAttempts int           `koanf:"max_attempts"`
}

// LoggerConfig contains logging configuration.
type LoggerConfig struct {
	Level       string `koanf:"level"`    // debug, info, warn, error
	Encoding    string `koanf:"encoding"` // json, console
	Development bool   `koanf:"development"`
}

// EventsConfig selects where conversion outcomes are published
type EventsConfig struct {
	Type  string      `koanf:"type"`
	NATS  NATSConfig  `koanf:"nats"`
	Kafka KafkaConfig `koanf:"kafka"`
}

// NATSConfig holds NATS JetStream settings
type NATSConfig struct {
	URL           string `koanf:"url"`
	SubjectPrefix string `koanf:"subject_prefix"`
	Stream        string `koanf:"stream"`
}

// KafkaConfig holds Kafka producer settings
type KafkaConfig struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

// Defaults returns the configuration used before files and environment are applied.
func Defaults() *Config {
	poll := converter.DefaultPollConfig()

	return &Config{
		API: APIConfig{
			BaseURL: cloudconvert.DefaultBaseURL,
			SyncURL: cloudconvert.DefaultSyncURL,
		},
		Transport: TransportConfig{
			Type:     TransportVendor,
			FileHost: FileHostConfig{Endpoint: transport.DefaultFileHostEndpoint},
			FileBin:  FileBinConfig{BaseURL: transport.DefaultFileBinBaseURL},
			S3: S3Config{
				Region:        "us-east-1",
				Prefix:        "docconvert",
				PresignExpiry: transport.DefaultPresignExpiry,
			},
			GCS: GCSConfig{
				Prefix:          "docconvert",
				SignedURLExpiry: transport.DefaultPresignExpiry,
			},
		},
		Polling: PollingConfig{
			Mode:        string(poll.Mode),
			Interval:    poll.Interval,
			MaxInterval: poll.MaxInterval,
			MaxAttempts: poll.MaxAttempts,
		},
		Logger: LoggerConfig{
			Level:    "warn",
			Encoding: "console",
		},
		Events: EventsConfig{
			Type: EventsNone,
			NATS: NATSConfig{
				URL:           "nats://localhost:4222",
				SubjectPrefix: "docconvert",
				Stream:        "DOCCONVERT",
			},
			Kafka: KafkaConfig{
				Brokers: []string{"localhost:9092"},
				Topic:   "docconvert.conversions",
			},
		},
	}
}

// PollConfig converts the polling section for the converter
func (c PollingConfig) PollConfig() converter.PollConfig {
	return converter.PollConfig{
		Mode:        converter.PollMode(c.Mode),
		Interval:    c.Interval,
		MaxInterval: c.MaxInterval,
		MaxAttempts: c.MaxAttempts,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Credential, validation.Required.Error("credential is required (set DOCCONVERT_CREDENTIAL or --credential)")),
		validation.Field(&c.API),
		validation.Field(&c.Transport),
		validation.Field(&c.Polling),
		validation.Field(&c.Logger),
		validation.Field(&c.Events),
	)
}

func (c APIConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.SyncURL, validation.Required, is.URL),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

func (c TransportConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Type, validation.Required,
			validation.In(TransportVendor, TransportFileHost, TransportFileBin, TransportS3, TransportGCS)),
		validation.Field(&c.FileHost, validation.Skip.When(c.Type != TransportFileHost)),
		validation.Field(&c.FileBin, validation.Skip.When(c.Type != TransportFileBin)),
		validation.Field(&c.S3, validation.Skip.When(c.Type != TransportS3)),
		validation.Field(&c.GCS, validation.Skip.When(c.Type != TransportGCS)),
	)
}

func (c FileHostConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Endpoint, validation.Required, is.URL),
	)
}

func (c FileBinConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
	)
}

func (c S3Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Bucket, validation.Required),
		validation.Field(&c.Region, validation.Required),
		validation.Field(&c.Endpoint, is.URL),
		validation.Field(&c.SecretAccessKey, validation.When(c.AccessKeyID != "", validation.Required)),
		validation.Field(&c.PresignExpiry, validation.Min(time.Second), validation.Max(7*24*time.Hour)),
	)
}

func (c GCSConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Bucket, validation.Required),
		validation.Field(&c.SignedURLExpiry, validation.Min(time.Second), validation.Max(7*24*time.Hour)),
	)
}

func (c PollingConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Mode, validation.Required,
			validation.In(string(converter.PollModeWait), string(converter.PollModeSingle))),
		validation.Field(&c.Interval, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.MaxInterval, validation.Required, validation.Min(c.Interval)),
		validation.Field(&c.MaxAttempts, validation.Required, validation.Min(1)),
	)
}

func (c LoggerConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.Encoding, validation.In("json", "console")),
	)
}

func (c EventsConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Type, validation.Required, validation.In(EventsNone, EventsNATS, EventsKafka)),
		validation.Field(&c.NATS, validation.Skip.When(c.Type != EventsNATS)),
		validation.Field(&c.Kafka, validation.Skip.When(c.Type != EventsKafka)),
	)
}

func (c NATSConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.URL, validation.Required),
		validation.Field(&c.SubjectPrefix, validation.Required),
		validation.Field(&c.Stream, validation.Required),
	)
}

func (c KafkaConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Brokers, validation.Required),
		validation.Field(&c.Topic, validation.Required),
	)
}
