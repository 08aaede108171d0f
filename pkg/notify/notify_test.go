package notify

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
)

type TestLogger struct{}

func (l *TestLogger) Debugf(format string, args ...interface{})               {}
func (l *TestLogger) Infof(format string, args ...interface{})                {}
func (l *TestLogger) Warnf(format string, args ...interface{})                {}
func (l *TestLogger) Errorf(format string, args ...interface{})               {}
func (l *TestLogger) LogLevelf(level int, format string, args ...interface{}) {}

type funcNotifier func(ctx context.Context, title, message string) error

func (f funcNotifier) Notify(ctx context.Context, title, message string) error {
	return f(ctx, title, message)
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	notifier := NewLogNotifier(logging.NewZapLoggerFrom(zap.New(core)))

	require.NoError(t, notifier.Notify(context.Background(), "Alert", "The process app (pid 7) is being suspended!"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Alert: The process app (pid 7) is being suspended!", entries[0].Message)
}

func TestMultiNotifier(t *testing.T) {
	var delivered int32
	ok := funcNotifier(func(context.Context, string, string) error {
		atomic.AddInt32(&delivered, 1)
		return nil
	})
	failing := funcNotifier(func(context.Context, string, string) error {
		return errors.NewNetworkError("unreachable", nil)
	})

	multi := NewMultiNotifier(failing, ok, ok)
	err := multi.Notify(context.Background(), "Alert", "message")

	require.Error(t, err)
	assert.True(t, errors.IsNetworkError(err))
	assert.Equal(t, int32(2), atomic.LoadInt32(&delivered))
	assert.Equal(t, 3, multi.Len())

	assert.NoError(t, NewMultiNotifier(ok).Notify(context.Background(), "Alert", "message"))
}

func TestWebhookNotifier_Delivers(t *testing.T) {
	received := make(chan WebhookPayload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload WebhookPayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		received <- payload
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(WebhookConfig{URL: server.URL}, &TestLogger{})
	require.NoError(t, err)

	require.NoError(t, notifier.Notify(context.Background(), "Alert", "The process app (pid 7) is being suspended!"))

	select {
	case payload := <-received:
		assert.Equal(t, "Alert", payload.Title)
		assert.Contains(t, payload.Message, "pid 7")
		assert.False(t, payload.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("webhook not called")
	}
}

func TestWebhookNotifier_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(WebhookConfig{URL: server.URL, Retries: 2}, &TestLogger{})
	require.NoError(t, err)

	require.NoError(t, notifier.Notify(context.Background(), "Alert", "message"))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWebhookNotifier_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(WebhookConfig{URL: server.URL, Retries: 0}, &TestLogger{})
	require.NoError(t, err)

	err = notifier.Notify(context.Background(), "Alert", "message")
	require.Error(t, err)
	assert.True(t, errors.IsNotifyError(err))
}

func TestWebhookNotifier_Config(t *testing.T) {
	_, err := NewWebhookNotifier(WebhookConfig{}, &TestLogger{})
	field, ok := errors.InvalidField(err)
	require.True(t, ok)
	assert.Equal(t, "webhook.url", field)

	_, err = NewWebhookNotifier(WebhookConfig{URL: "http://localhost", Retries: -1}, &TestLogger{})
	assert.True(t, errors.IsInvalidArgumentError(err))

	notifier, err := NewWebhookNotifier(WebhookConfig{URL: "http://localhost"}, &TestLogger{})
	require.NoError(t, err)
	assert.Equal(t, DefaultWebhookTimeout, notifier.config.Timeout)
}

func TestWebhookNotifier_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	notifier, err := NewWebhookNotifier(WebhookConfig{URL: url, Timeout: time.Second}, &TestLogger{})
	require.NoError(t, err)

	err = notifier.Notify(context.Background(), "Alert", "message")
	require.Error(t, err)
	assert.True(t, errors.IsNetworkError(err))
}

func TestMessageBoxNotifier_Unsupported(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("message box is supported on windows")
	}
	_, err := NewMessageBoxNotifier(&TestLogger{})
	assert.True(t, errors.IsConfigurationError(err))

	var n *MessageBoxNotifier
	err = n.Notify(context.Background(), "Alert", "message")
	assert.True(t, errors.IsNotifyError(err))
	assert.False(t, stderrors.Is(err, context.Canceled))
}
