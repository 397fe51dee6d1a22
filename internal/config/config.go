package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/edvin/eventrelay/internal/model"
)

type Config struct {
	AWSRegion          string `env:"AWS_REGION" validate:"required"`
	AWSAccountID       string `env:"AWS_ACCOUNT_ID" validate:"required"`
	AWSEndpointURL     string `env:"AWS_ENDPOINT_URL" validate:"omitempty,url"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`

	BaseURL             string `env:"BASE_URL" validate:"required,url"`
	APIVersion          string `env:"API_VERSION" validate:"required"`
	ClientID            string `env:"CLIENT_ID" validate:"required"`
	ClientSecret        string `env:"CLIENT_SECRET" validate:"required"`
	RedirectURI         string `env:"REDIRECT_URI" validate:"required_if=Role serve"`
	AuthTokenEndpoint   string `env:"AUTH_TOKEN_ENDPOINT" validate:"required_if=Role serve"`
	AccessTokenEndpoint string `env:"ACCESS_TOKEN_ENDPOINT" validate:"required,url"`

	NamedCredName     string `env:"NAMED_CRED_NAME" validate:"required"`
	NamedCredLabel    string `env:"NAMED_CRED_LABEL" validate:"required"`
	EventRelayName    string `env:"EVENT_RELAY_NAME" validate:"required"`
	EventRelayLabel   string `env:"EVENT_RELAY_LABEL" validate:"required"`
	EventChannelName  string `env:"EVENT_CHANNEL_NAME" validate:"required"`
	PlatformEventName string `env:"PLATFORM_EVENT_NAME" validate:"required"`

	Targets     []model.Target `env:"TARGET_ID_<n>/TARGET_ARN_<n>" validate:"min=1,dive"`
	TargetsFile string         `env:"TARGETS_FILE"`

	LogGroupName string `env:"LOG_GROUP_NAME" validate:"required"`
	Environment  string `env:"ENVIRONMENT" validate:"required"`

	LogLevel       string `env:"LOG_LEVEL"`
	LogFormat      string `env:"LOG_FORMAT" validate:"oneof=json console"`
	HTTPListenAddr string `env:"HTTP_LISTEN_ADDR" validate:"required_if=Role serve"`
	MetricsAddr    string `env:"METRICS_ADDR"`

	FeedbackPollInterval time.Duration `env:"FEEDBACK_POLL_INTERVAL" validate:"gte=0"`
	FeedbackMaxAttempts  int           `env:"FEEDBACK_MAX_ATTEMPTS" validate:"gte=1"`
	SourcePollInterval   time.Duration `env:"SOURCE_POLL_INTERVAL" validate:"gte=0"`
	SourceMaxRetries     int           `env:"SOURCE_MAX_RETRIES" validate:"gte=0"`
	LogSettleDelay       time.Duration `env:"LOG_SETTLE_DELAY" validate:"gte=0"`
	HTTPTimeout          time.Duration `env:"HTTP_TIMEOUT" validate:"gt=0"`

	ReportBucket string `env:"REPORT_BUCKET"`
	ReportPrefix string `env:"REPORT_PREFIX"`

	// Role is the command being validated for ("serve" or "run"). It is set
	// by Validate and only drives the conditional rules above.
	Role string `validate:"-"`
}

// LoadEnvFiles seeds the process environment from .env files. Missing files
// are skipped and variables already present in the environment win.
func LoadEnvFiles(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}

func Load() (*Config, error) {
	cfg := &Config{
		AWSRegion:          strings.ToLower(getEnv("AWS_REGION", "")),
		AWSAccountID:       getEnv("AWS_ACCOUNT_ID", ""),
		AWSEndpointURL:     getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),

		BaseURL:             strings.TrimRight(getEnv("BASE_URL", ""), "/"),
		APIVersion:          getEnv("API_VERSION", ""),
		ClientID:            getEnv("CLIENT_ID", ""),
		ClientSecret:        getEnv("CLIENT_SECRET", ""),
		RedirectURI:         getEnv("REDIRECT_URI", ""),
		AuthTokenEndpoint:   getEnv("AUTH_TOKEN_ENDPOINT", ""),
		AccessTokenEndpoint: getEnv("ACCESS_TOKEN_ENDPOINT", ""),

		NamedCredName:     getEnv("NAMED_CRED_NAME", ""),
		NamedCredLabel:    getEnv("NAMED_CRED_LABEL", ""),
		EventRelayName:    getEnv("EVENT_RELAY_NAME", ""),
		EventRelayLabel:   getEnv("EVENT_RELAY_LABEL", ""),
		EventChannelName:  getEnv("EVENT_CHANNEL_NAME", ""),
		PlatformEventName: getEnv("PLATFORM_EVENT_NAME", ""),

		TargetsFile: getEnv("TARGETS_FILE", ""),

		LogGroupName: getEnv("LOG_GROUP_NAME", ""),
		Environment:  getEnv("ENVIRONMENT", ""),

		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		HTTPListenAddr: getEnv("HTTP_LISTEN_ADDR", ":3000"),
		MetricsAddr:    getEnv("METRICS_ADDR", ""),

		ReportBucket: getEnv("REPORT_BUCKET", ""),
		ReportPrefix: getEnv("REPORT_PREFIX", "event-relay-reports/"),
	}

	var err error
	if cfg.FeedbackPollInterval, err = getDuration("FEEDBACK_POLL_INTERVAL", 180*time.Second); err != nil {
		return nil, err
	}
	if cfg.FeedbackMaxAttempts, err = getInt("FEEDBACK_MAX_ATTEMPTS", 20); err != nil {
		return nil, err
	}
	if cfg.SourcePollInterval, err = getDuration("SOURCE_POLL_INTERVAL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.SourceMaxRetries, err = getInt("SOURCE_MAX_RETRIES", 10); err != nil {
		return nil, err
	}
	if cfg.LogSettleDelay, err = getDuration("LOG_SETTLE_DELAY", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getDuration("HTTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	cfg.Targets = envTargets()
	if cfg.TargetsFile != "" {
		fileTargets, err := loadTargetsFile(cfg.TargetsFile)
		if err != nil {
			return nil, err
		}
		cfg.Targets = append(cfg.Targets, fileTargets...)
	}

	return cfg, nil
}

// NamedCredentialEndpoint is the callout endpoint the named credential is
// pointed at: the AWS account in the configured region.
func (c *Config) NamedCredentialEndpoint() string {
	return fmt.Sprintf("arn:aws:%s:%s", c.AWSRegion, c.AWSAccountID)
}

// RuleName is the EventBridge rule created on the partner bus.
func (c *Config) RuleName() string {
	return c.Environment + "-EventRelay-Rule"
}

// EventSource is the Source__c value carried by the synthetic test event.
func (c *Config) EventSource() string {
	return fmt.Sprintf("salesforce.%s.ecrmd.event-relay", c.Environment)
}

// envTargets reads TARGET_ID_1/TARGET_ARN_1, TARGET_ID_2/TARGET_ARN_2, ...
// stopping at the first index where both are unset.
func envTargets() []model.Target {
	var targets []model.Target
	for i := 1; ; i++ {
		id := os.Getenv(fmt.Sprintf("TARGET_ID_%d", i))
		arn := os.Getenv(fmt.Sprintf("TARGET_ARN_%d", i))
		if id == "" && arn == "" {
			return targets
		}
		targets = append(targets, model.Target{ID: id, ARN: arn})
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}
