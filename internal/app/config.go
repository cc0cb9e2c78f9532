package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tejashwikalptaru/truestream/internal/adapter/clock"
	"github.com/tejashwikalptaru/truestream/internal/adapter/collaborator/aiprocess"
	"github.com/tejashwikalptaru/truestream/internal/adapter/collaborator/livecode"
	"github.com/tejashwikalptaru/truestream/internal/adapter/collaborator/telemetry"
	"github.com/tejashwikalptaru/truestream/internal/adapter/fetch"
	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/httpclient"
	"github.com/tejashwikalptaru/truestream/internal/logger"
	"github.com/tejashwikalptaru/truestream/internal/service"
)

// EnvPrefix prefixes every environment override, e.g. TRUESTREAM_LOG_LEVEL.
const EnvPrefix = "TRUESTREAM"

// Config holds application configuration.
type Config struct {
	// AppID is the unique application identifier
	AppID string

	// AppName is the display name
	AppName string

	// LogLevel and LogFormat configure the root logger
	LogLevel  string
	LogFormat string

	// Headless runs the pipeline without a window
	Headless bool

	// NullAudio discards decoded audio instead of opening a playback device
	NullAudio bool

	// MetricsAddr serves /metrics when set, e.g. ":9090"
	MetricsAddr string

	// File and URL are loaded once at startup when set
	File string
	URL  string

	Pipeline  PipelineConfig
	Window    WindowConfig
	HTTP      HTTPConfig
	Fetch     FetchConfig
	Telemetry TelemetryConfig
	AI        AIConfig
	LiveCode  LiveCodeConfig
	Sentry    SentryConfig

	// TestFyneApp allows injecting a test Fyne app for testing (nil for production)
	TestFyneApp fyne.App `mapstructure:"-"`
}

// PipelineConfig tunes the audio pipeline.
type PipelineConfig struct {
	FFTSize       int
	Smoothing     float64
	MinDecibels   float64
	MaxDecibels   float64
	FrameInterval time.Duration

	// DrainTimeout bounds the wait for the element on shutdown
	DrainTimeout time.Duration

	// CollaboratorTimeout bounds each telemetry or AI call
	CollaboratorTimeout time.Duration
}

// Analyser returns the analyser node parameters.
func (c PipelineConfig) Analyser() domain.AnalyserConfig {
	return domain.AnalyserConfig{
		FFTSize:     c.FFTSize,
		Smoothing:   c.Smoothing,
		MinDecibels: c.MinDecibels,
		MaxDecibels: c.MaxDecibels,
	}
}

// WindowConfig sizes the main window.
type WindowConfig struct {
	Width  float32
	Height float32
	FPS    int
	Seed   int64
}

// HTTPConfig configures the shared HTTP client.
type HTTPConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// FetchConfig configures remote source downloads.
type FetchConfig struct {
	MaxSize  int64
	CacheTTL time.Duration
}

// TelemetryConfig configures the Comet collaborator. Empty APIKey disables it.
type TelemetryConfig struct {
	APIKey        string
	Endpoint      string
	Workspace     string
	Project       string
	RatePerSecond float64
}

// AIConfig configures the Friendli collaborator. Empty APIKey disables it.
type AIConfig struct {
	APIKey   string
	Endpoint string
}

// LiveCodeConfig configures the Strudel collaborator.
type LiveCodeConfig struct {
	Endpoint string
}

// SentryConfig configures error reporting. Empty DSN disables it.
type SentryConfig struct {
	DSN         string
	Environment string
}

// DefaultConfig returns the default application configuration.
func DefaultConfig() Config {
	loggerCfg := logger.DefaultConfig()
	analyser := domain.DefaultAnalyserConfig()
	fetchCfg := fetch.DefaultConfig()

	return Config{
		AppID:     "com.truestream.app",
		AppName:   "TrueStream",
		LogLevel:  loggerCfg.Level.String(),
		LogFormat: loggerCfg.Format,
		Pipeline: PipelineConfig{
			FFTSize:             analyser.FFTSize,
			Smoothing:           analyser.Smoothing,
			MinDecibels:         analyser.MinDecibels,
			MaxDecibels:         analyser.MaxDecibels,
			FrameInterval:       clock.DefaultFrameInterval,
			DrainTimeout:        service.DefaultDrainTimeout,
			CollaboratorTimeout: service.DefaultCollaboratorTimeout,
		},
		Window: WindowConfig{
			Width:  960,
			Height: 640,
			FPS:    30,
			Seed:   42,
		},
		HTTP: HTTPConfig{
			Timeout:   httpclient.DefaultTimeout,
			UserAgent: GetVersionInfo().UserAgent(),
		},
		Fetch: FetchConfig{
			MaxSize:  fetchCfg.MaxSize,
			CacheTTL: fetchCfg.CacheTTL,
		},
		Telemetry: TelemetryConfig{
			Endpoint:      telemetry.DefaultEndpoint,
			Project:       telemetry.DefaultProject,
			RatePerSecond: telemetry.DefaultRate,
		},
		AI: AIConfig{
			Endpoint: aiprocess.DefaultEndpoint,
		},
		LiveCode: LiveCodeConfig{
			Endpoint: livecode.DefaultEndpoint,
		},
		Sentry: SentryConfig{
			Environment: "production",
		},
	}
}

// envBindings maps keys to their conventional variable names where those
// differ from the automatic TRUESTREAM_SECTION_KEY form.
var envBindings = map[string]string{
	"loglevel":          logger.EnvLevel,
	"telemetry.apikey":  EnvPrefix + "_TELEMETRY_API_KEY",
	"ai.apikey":         EnvPrefix + "_AI_API_KEY",
	"sentry.dsn":        EnvPrefix + "_SENTRY_DSN",
	"metricsaddr":       EnvPrefix + "_METRICS_ADDR",
	"livecode.endpoint": EnvPrefix + "_LIVECODE_ENDPOINT",
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"log-level":    "loglevel",
	"headless":     "headless",
	"null-audio":   "nullaudio",
	"file":         "file",
	"url":          "url",
	"metrics-addr": "metricsaddr",
}

// LoadConfig reads configuration from defaults, an optional YAML file at
// path, TRUESTREAM_* environment variables and the flags the user set, in
// increasing precedence. An empty path skips the file and flags may be nil.
func LoadConfig(path string, flags *pflag.FlagSet) (Config, error) {
	return loadConfig(viper.New(), path, flags)
}

func loadConfig(v *viper.Viper, path string, flags *pflag.FlagSet) (Config, error) {
	setDefaults(v, DefaultConfig())

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("appid", d.AppID)
	v.SetDefault("appname", d.AppName)
	v.SetDefault("loglevel", d.LogLevel)
	v.SetDefault("logformat", d.LogFormat)
	v.SetDefault("headless", d.Headless)
	v.SetDefault("nullaudio", d.NullAudio)
	v.SetDefault("metricsaddr", d.MetricsAddr)
	v.SetDefault("file", d.File)
	v.SetDefault("url", d.URL)

	v.SetDefault("pipeline.fftsize", d.Pipeline.FFTSize)
	v.SetDefault("pipeline.smoothing", d.Pipeline.Smoothing)
	v.SetDefault("pipeline.mindecibels", d.Pipeline.MinDecibels)
	v.SetDefault("pipeline.maxdecibels", d.Pipeline.MaxDecibels)
	v.SetDefault("pipeline.frameinterval", d.Pipeline.FrameInterval)
	v.SetDefault("pipeline.draintimeout", d.Pipeline.DrainTimeout)
	v.SetDefault("pipeline.collaboratortimeout", d.Pipeline.CollaboratorTimeout)

	v.SetDefault("window.width", d.Window.Width)
	v.SetDefault("window.height", d.Window.Height)
	v.SetDefault("window.fps", d.Window.FPS)
	v.SetDefault("window.seed", d.Window.Seed)

	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.useragent", d.HTTP.UserAgent)

	v.SetDefault("fetch.maxsize", d.Fetch.MaxSize)
	v.SetDefault("fetch.cachettl", d.Fetch.CacheTTL)

	v.SetDefault("telemetry.apikey", d.Telemetry.APIKey)
	v.SetDefault("telemetry.endpoint", d.Telemetry.Endpoint)
	v.SetDefault("telemetry.workspace", d.Telemetry.Workspace)
	v.SetDefault("telemetry.project", d.Telemetry.Project)
	v.SetDefault("telemetry.ratepersecond", d.Telemetry.RatePerSecond)

	v.SetDefault("ai.apikey", d.AI.APIKey)
	v.SetDefault("ai.endpoint", d.AI.Endpoint)

	v.SetDefault("livecode.endpoint", d.LiveCode.Endpoint)

	v.SetDefault("sentry.dsn", d.Sentry.DSN)
	v.SetDefault("sentry.environment", d.Sentry.Environment)
}

// Validate checks the settings that have no safe fallback.
func (c Config) Validate() error {
	if _, ok := logger.ParseLevel(c.LogLevel); !ok {
		return domain.NewValidationError("log_level", c.LogLevel, "must be debug, info, warn or error", nil)
	}
	if err := c.Pipeline.Analyser().Validate(); err != nil {
		return err
	}
	if c.Pipeline.FrameInterval <= 0 {
		return domain.NewValidationError("pipeline.frame_interval", c.Pipeline.FrameInterval, "must be positive", nil)
	}
	if c.Fetch.MaxSize <= 0 {
		return domain.NewValidationError("fetch.max_size", c.Fetch.MaxSize, "must be positive", nil)
	}
	if c.File != "" && c.URL != "" {
		return domain.NewValidationError("url", c.URL, "file and url are mutually exclusive", nil)
	}
	if c.Headless && c.File == "" && c.URL == "" {
		return domain.NewValidationError("headless", c.Headless, "headless mode needs a file or url", nil)
	}
	return nil
}
