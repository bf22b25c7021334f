package notify

import (
	"time"

	"github.com/tienminhktvn/dataops-project/httpclient"
	"github.com/tienminhktvn/dataops-project/logger"
	"github.com/tienminhktvn/dataops-project/validation"
	"github.com/tienminhktvn/dataops-project/version"
)

// Config is the notify section of the service config. Without a webhook URL
// messages are written to the log.
type Config struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url" validate:"omitempty,url"`
	// WebhookToken is sent as a bearer token when set.
	WebhookToken string `yaml:"webhook_token" mapstructure:"webhook_token"`
	// LogsURL is the template for the failure message's logs link.
	LogsURL string        `yaml:"logs_url" mapstructure:"logs_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Retries is the number of extra delivery attempts after the first.
	Retries    int           `yaml:"retries" mapstructure:"retries" validate:"gte=0,lte=10"`
	RetryDelay time.Duration `yaml:"retry_delay" mapstructure:"retry_delay"`
	// CircuitFailures consecutive failures stop delivery attempts for a while.
	// Zero disables the breaker.
	CircuitFailures int `yaml:"circuit_failures" mapstructure:"circuit_failures" validate:"gte=0"`
}

func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
}

func (c *Config) Validate() error {
	v := validation.New()
	v.Positive("notify.timeout", c.Timeout)
	if err := v.Validate(); err != nil {
		return err
	}
	return validation.Validate(c)
}

// Enabled reports whether a webhook is configured.
func (c Config) Enabled() bool {
	return c.WebhookURL != ""
}

// ClientConfig returns the httpclient settings for the webhook.
func (c Config) ClientConfig() httpclient.Config {
	cfg := httpclient.Config{
		Name:    "notify-webhook",
		Timeout: c.Timeout,
		Headers: map[string]string{"User-Agent": version.UserAgent("dataops")},
	}
	if c.WebhookToken != "" {
		cfg.Auth = httpclient.BearerAuth(c.WebhookToken)
	}
	if c.Retries > 0 {
		retry := httpclient.DefaultRetryConfig()
		retry.MaxAttempts = c.Retries + 1
		retry.InitialBackoff = c.RetryDelay
		cfg.Retry = retry
	}
	if c.CircuitFailures > 0 {
		cb := httpclient.DefaultCircuitBreakerConfig(cfg.Name)
		cb.MaxFailures = c.CircuitFailures
		cfg.CircuitBreaker = cb
	}
	return cfg
}

// New builds a notifier from cfg: a webhook messenger when a URL is set,
// otherwise a LogMessenger.
func New(cfg Config, log *logger.Logger) (*Notifier, error) {
	var client *httpclient.Client
	if cfg.Enabled() {
		cfg.ApplyDefaults()
		var err error
		if client, err = httpclient.New(cfg.ClientConfig()); err != nil {
			return nil, err
		}
	}
	return NewWithClient(cfg, client, log)
}

// NewWithClient is New with the webhook client supplied, typically by an
// httpclient.Component already started by the registry. A nil client
// writes messages to the log.
func NewWithClient(cfg Config, client *httpclient.Client, log *logger.Logger) (*Notifier, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Get("notify")
	}
	var m Messenger
	if cfg.Enabled() && client != nil {
		m = NewWebhookMessenger(client, cfg.WebhookURL)
	}
	return NewNotifier(m,
		WithLogger(log),
		WithLogsURL(cfg.LogsURL),
		WithSendTimeout(cfg.Timeout*time.Duration(cfg.Retries+1)+cfg.RetryDelay*time.Duration(cfg.Retries)),
	), nil
}
