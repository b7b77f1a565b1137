package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN       string        `env:"DATABASE_DSN,required=true"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,default=25"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,default=5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,default=1h"`

	RabbitMQURL string `env:"RABBITMQ_URL,required=true"`
	RedisURL    string `env:"REDIS_URL"`
	Host        string `env:"HOST_ID"`

	MailGatewayURL        string `env:"MAIL_GATEWAY_URL"`
	MailFrom              string `env:"MAIL_FROM,default=faultline@localhost"`
	MailEndpointParam     string `env:"MAIL_ENDPOINT_PARAM,default=SOA_URL"`
	MailRateLimit         int    `env:"MAIL_RATE_LIMIT,default=20"`
	MailRateWindowSeconds int    `env:"MAIL_RATE_WINDOW_SECONDS,default=60"`

	AppName           string `env:"APP_NAME,default=Pricing Engine"`
	EnvName           string `env:"ENV_NAME"`
	SubjectPrefix     string `env:"SUBJECT_PREFIX,default=Pricing Engine Exception Report"`
	DefaultTemplateID string `env:"DEFAULT_TEMPLATE_ID,default=ERR_MAIL_01"`

	ReportQueue            string `env:"REPORT_QUEUE,default=errors.report"`
	EventsQueue            string `env:"EVENTS_QUEUE,default=errors.events"`
	PublishPersistedEvents bool   `env:"PUBLISH_PERSISTED_EVENTS,default=false"`

	StorageTimeout time.Duration `env:"STORAGE_TIMEOUT,default=5s"`
	MailTimeout    time.Duration `env:"MAIL_TIMEOUT,default=10s"`
	QueueTimeout   time.Duration `env:"QUEUE_TIMEOUT,default=5s"`

	WorkerConcurrency int    `env:"WORKER_CONCURRENCY,default=4"`
	WorkerPrefetch    int    `env:"WORKER_PREFETCH,default=10"`
	APIPort           int    `env:"API_PORT,default=8080"`
	LogLevel          string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// MailRateWindow returns the rate limiter window as a duration.
func (c *Config) MailRateWindow() time.Duration {
	if c == nil || c.MailRateWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.MailRateWindowSeconds) * time.Second
}
