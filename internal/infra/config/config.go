package config

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	DBHost     string `env:"DB_HOST"     envDefault:"odysseus_db"`
	DBPort     int    `env:"DB_PORT"     envDefault:"5432"`
	DBUser     string `env:"DB_USER"     envDefault:"hockey_user"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"strongpassword"`
	DBName     string `env:"DB_NAME"     envDefault:"hockey_analytics"`
	DBSSLMode  string `env:"DB_SSLMODE"  envDefault:"disable"`

	// Sources holds the references to ingest this run; SourceFile, when
	// set, names a newline-delimited file appended to it.
	Sources    []string `env:"SOURCES" envSeparator:","`
	SourceFile string   `env:"SOURCE_FILE"`

	RawVideoDir string `env:"RAW_VIDEO_DIR" envDefault:"/workspace/data/raw_video"`
	ClipsDir    string `env:"CLIPS_DIR"     envDefault:"/workspace/data/processed/clips"`
	FramesDir   string `env:"FRAMES_DIR"    envDefault:"/workspace/data/processed/frames"`

	SceneThreshold float64       `env:"SCENE_THRESHOLD" envDefault:"27.0"`
	FrameRateHz    float64       `env:"FRAME_RATE_HZ"   envDefault:"2"`
	StepTimeout    time.Duration `env:"STEP_TIMEOUT"    envDefault:"15m"`
	AcquireTimeout time.Duration `env:"ACQUIRE_TIMEOUT" envDefault:"30m"`
	WorkerCount    int           `env:"WORKER_COUNT"    envDefault:"1"`

	// Optional status-event publishing; disabled when the URL is empty.
	RabbitMQURL      string `env:"RABBITMQ_URL"`
	RabbitMQExchange string `env:"RABBITMQ_EXCHANGE" envDefault:"odysseus.ingest"`
	StatusQueue      string `env:"STATUS_QUEUE"      envDefault:"video.status"`

	// Optional object-store acquisition for s3:// source references.
	MinIOEndpoint  string `env:"MINIO_ENDPOINT"`
	MinIOAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinIOSecretKey string `env:"MINIO_SECRET_KEY"`
	MinIOUseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`

	// Optional operator notification; disabled when the host is empty.
	SMTPHost       string `env:"SMTP_HOST"`
	SMTPPort       int    `env:"SMTP_PORT" envDefault:"25"`
	SMTPFrom       string `env:"SMTP_FROM" envDefault:"noreply@odysseus.local"`
	NotificationTo string `env:"NOTIFICATION_TO"`

	MetricsPort    int    `env:"METRICS_PORT"    envDefault:"8083"`
	JaegerEndpoint string `env:"JAEGER_ENDPOINT" envDefault:"http://jaeger:4318/v1/traces"`
	LogLevel       string `env:"LOG_LEVEL"       envDefault:"info"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DatabaseURL assembles the pgx connection string from the discrete
// connection parameters.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPassword),
		c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SourceList merges the inline source list with the optional source file,
// dropping blanks and #-comments while preserving order.
func (c *Config) SourceList() ([]string, error) {
	sources := make([]string, 0, len(c.Sources))
	for _, s := range c.Sources {
		if s = strings.TrimSpace(s); s != "" {
			sources = append(sources, s)
		}
	}

	if c.SourceFile == "" {
		return sources, nil
	}

	f, err := os.Open(c.SourceFile)
	if err != nil {
		return nil, fmt.Errorf("open source file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sources = append(sources, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read source file: %w", err)
	}
	return sources, nil
}
