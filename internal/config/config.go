package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5m"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15m"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	AuthToken string `env:"AUTH_TOKEN"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	// MaxUploadMB bounds uploads and direct downloads.
	MaxUploadMB int    `env:"MAX_UPLOAD_MB" envDefault:"200"`
	WorkDir     string `env:"WORK_DIR"`

	YtDlpPath    string        `env:"YTDLP_PATH" envDefault:"yt-dlp"`
	YtDlpFormat  string        `env:"YTDLP_FORMAT" envDefault:"best[height<=720]"`
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" envDefault:"5m"`
	AllowedHosts []string      `env:"ALLOWED_HOSTS" envSeparator:","`

	FFmpegPath string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`

	STTProvider     string        `env:"STT_PROVIDER" envDefault:"whisper"`
	WhisperURL      string        `env:"WHISPER_URL"`
	WhisperModel    string        `env:"WHISPER_MODEL" envDefault:"base"`
	WhisperTimeout  time.Duration `env:"WHISPER_TIMEOUT" envDefault:"10m"`
	WhisperLanguage string        `env:"WHISPER_LANGUAGE"`
	OpenAIAPIKey    string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string        `env:"OPENAI_BASE_URL"`
	OpenAIModel     string        `env:"OPENAI_MODEL" envDefault:"whisper-1"`
	STTCommand      string        `env:"STT_COMMAND" envDefault:"whisper-cli"`
	STTModelPath    string        `env:"STT_MODEL_PATH"`

	MQTTBrokerURL string `env:"MQTT_BROKER_URL"`
	MQTTClientID  string `env:"MQTT_CLIENT_ID" envDefault:"reelscribe"`
	MQTTTopic     string `env:"MQTT_TOPIC" envDefault:"reelscribe/jobs"`
	MQTTUsername  string `env:"MQTT_USERNAME"`
	MQTTPassword  string `env:"MQTT_PASSWORD"`

	NATSURL      string `env:"NATS_URL"`
	NATSSubject  string `env:"NATS_SUBJECT" envDefault:"reelscribe.jobs"`
	NATSToken    string `env:"NATS_TOKEN"`
	NATSUsername string `env:"NATS_USERNAME"`
	NATSPassword string `env:"NATS_PASSWORD"`

	// Tracing is off unless an OTLP endpoint is set or TRACE_STDOUT is true.
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `env:"OTEL_EXPORTER_OTLP_INSECURE"`
	TraceStdout  bool   `env:"TRACE_STDOUT"`

	// WatchDir enables the drop-folder intake when set.
	WatchDir string `env:"WATCH_DIR"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile     string
	HTTPAddr    string
	LogLevel    string
	WorkDir     string
	STTProvider string
	WatchDir    string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing)
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Apply CLI overrides (non-empty values win)
	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.WorkDir != "" {
		cfg.WorkDir = overrides.WorkDir
	}
	if overrides.STTProvider != "" {
		cfg.STTProvider = overrides.STTProvider
	}
	if overrides.WatchDir != "" {
		cfg.WatchDir = overrides.WatchDir
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.STTProvider = strings.ToLower(strings.TrimSpace(c.STTProvider))
	switch c.STTProvider {
	case "whisper":
		if c.WhisperURL == "" {
			return fmt.Errorf("WHISPER_URL is required when STT_PROVIDER=whisper")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when STT_PROVIDER=openai")
		}
	case "exec":
		if c.STTModelPath == "" {
			return fmt.Errorf("STT_MODEL_PATH is required when STT_PROVIDER=exec")
		}
	default:
		return fmt.Errorf("invalid STT_PROVIDER %q: must be whisper, openai or exec", c.STTProvider)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid MAX_UPLOAD_MB %d: must be > 0", c.MaxUploadMB)
	}
	for i, h := range c.AllowedHosts {
		c.AllowedHosts[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return nil
}

// MaxUploadBytes is MaxUploadMB in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}
