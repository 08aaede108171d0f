package notify

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
)

const (
	DefaultWebhookTimeout = 5 * time.Second
	DefaultWebhookRetries = 2

	webhookRetryWaitTime    = 200 * time.Millisecond
	webhookRetryMaxWaitTime = 2 * time.Second
)

// WebhookConfig configures alert delivery over HTTP
type WebhookConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	Retries int           `yaml:"retries"`
}

// WebhookPayload is the JSON body posted for every alert
type WebhookPayload struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Host      string    `json:"host"`
	Timestamp time.Time `json:"timestamp"`
}

// WebhookNotifier posts alerts as JSON. Transport errors and 5xx responses are retried.
type WebhookNotifier struct {
	config WebhookConfig
	client *resty.Client
	host   string
	logger logging.Logger
}

func NewWebhookNotifier(config WebhookConfig, logger logging.Logger) (*WebhookNotifier, error) {
	if config.URL == "" {
		return nil, errors.NewInvalidArgumentError("webhook.url", "must be non-empty")
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultWebhookTimeout
	}
	if config.Retries < 0 {
		return nil, errors.NewInvalidArgumentError("webhook.retries", "must not be negative")
	}

	client := resty.New()
	client.SetTimeout(config.Timeout).
		SetRetryCount(config.Retries).
		SetRetryWaitTime(webhookRetryWaitTime).
		SetRetryMaxWaitTime(webhookRetryMaxWaitTime)
	client.AddRetryCondition(
		func(r *resty.Response, err error) bool {
			return err != nil || (r != nil && r.StatusCode() >= http.StatusInternalServerError)
		},
	)

	host, _ := os.Hostname()
	return &WebhookNotifier{
		config: config,
		client: client,
		host:   host,
		logger: logger,
	}, nil
}

func (n *WebhookNotifier) Notify(ctx context.Context, title, message string) error {
	payload := WebhookPayload{
		Title:     title,
		Message:   message,
		Host:      n.host,
		Timestamp: time.Now().UTC(),
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(n.config.URL)
	if err != nil {
		return errors.NewNetworkError("webhook delivery failed", err).WithContext("url", n.config.URL)
	}
	if resp.IsError() {
		return errors.NewNotifyError("webhook rejected alert", nil).
			WithContext("url", n.config.URL).
			WithContext("status", resp.StatusCode())
	}

	n.logger.Debugf("Alert delivered to webhook, url: %s, status: %d", n.config.URL, resp.StatusCode())
	return nil
}
