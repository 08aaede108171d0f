package scheduler

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultJitter     = 0.10
	DefaultMultiplier = backoff.DefaultMultiplier
)

// RetrySettings shapes the exponential backoff used for failed paths
type RetrySettings struct {
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	MaxElapsedTime  time.Duration `yaml:"max_elapsed_time"`
	Multiplier      float64       `yaml:"multiplier"`
	Jitter          float64       `yaml:"jitter"`
}

func DefaultRetrySettings() RetrySettings {
	return RetrySettings{
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		MaxElapsedTime:  2 * time.Minute,
		Multiplier:      DefaultMultiplier,
		Jitter:          DefaultJitter,
	}
}

// Enabled reports whether failed paths are retried at all
func (s RetrySettings) Enabled() bool {
	return s.MaxElapsedTime > 0
}

// WaitUntil runs operation until it succeeds, returns a permanent error, ctx ends or MaxElapsedTime passes
func WaitUntil(ctx context.Context, settings RetrySettings, operation backoff.Operation) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = settings.InitialInterval
	eb.MaxInterval = settings.MaxInterval
	eb.MaxElapsedTime = settings.MaxElapsedTime
	eb.RandomizationFactor = settings.Jitter
	eb.Multiplier = settings.Multiplier

	return backoff.Retry(operation, backoff.WithContext(eb, ctx))
}
