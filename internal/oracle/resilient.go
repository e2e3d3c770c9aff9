package oracle

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"

	"github.com/fakeyudi/proofread/internal/correction"
)

// ResilienceConfig controls retries and the overall deadline of one analysis.
type ResilienceConfig struct {
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration
}

// DefaultResilienceConfig returns the settings used when none are configured.
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		MaxAttempts: 2,
		RetryDelay:  time.Second,
		Timeout:     120 * time.Second,
	}
}

// ResilientProvider retries transient failures and bounds the whole call.
type ResilientProvider struct {
	inner Provider
	cfg   ResilienceConfig
}

// NewResilientProvider wraps inner. Zero fields in cfg take their defaults.
func NewResilientProvider(inner Provider, cfg ResilienceConfig) *ResilientProvider {
	def := DefaultResilienceConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &ResilientProvider{inner: inner, cfg: cfg}
}

func (p *ResilientProvider) ID() string {
	return p.inner.ID()
}

// attempt carries a permanent failure as a value so the retrier stops on it.
type attempt struct {
	result correction.Result
	err    error
}

func (p *ResilientProvider) Analyze(ctx context.Context, text string) (correction.Result, error) {
	r := retry.New[attempt](retry.Config{
		MaxAttempts:   p.cfg.MaxAttempts,
		InitialDelay:  p.cfg.RetryDelay,
		BackoffPolicy: retry.BackoffExponential,
	})
	t := timeout.New[attempt](timeout.Config{
		DefaultTimeout: p.cfg.Timeout,
	})

	a, err := t.Execute(ctx, p.cfg.Timeout, func(ctx context.Context) (attempt, error) {
		return r.Do(ctx, func(ctx context.Context) (attempt, error) {
			res, err := p.inner.Analyze(ctx, text)
			if err != nil && !Transient(err) {
				return attempt{err: err}, nil
			}
			return attempt{result: res}, err
		})
	})
	if err != nil {
		return correction.Result{}, err
	}
	return a.result, a.err
}
