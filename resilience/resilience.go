// Package resilience wraps remote model calls with a per-attempt timeout,
// error classification and retry with backoff.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrFatal            = errors.New("fatal provider error")
	ErrRetriesExhausted = errors.New("retries exhausted")
)

const (
	DefaultMaxRetries = 4
	DefaultBaseDelay  = time.Second
	DefaultTimeout    = 60 * time.Second

	// MaxJitter bounds the random delay added to each exponential backoff.
	MaxJitter = 500 * time.Millisecond

	// MaxBackoff caps the exponential part of the delay.
	MaxBackoff = 5 * time.Minute
)

type Config struct {
	MaxRetries int           `yaml:"maxRetries"`
	BaseDelay  time.Duration `yaml:"baseDelay"`
	Timeout    time.Duration `yaml:"timeout"`
}

func DefaultConfig() Config {
	return Config{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		Timeout:    DefaultTimeout,
	}
}

type Class int

const (
	Fatal Class = iota
	Transient
)

func (c Class) String() string {
	switch c {
	case Transient:
		return "transient"
	default:
		return "fatal"
	}
}

var transientMarkers = []string{
	// capacity
	"503", "overloaded", "unavailable",
	// rate limiting
	"429", "resource_exhausted", "quota",
}

// Classify reports whether err is worth retrying. Only capacity and rate
// limit failures are transient.
func Classify(err error) Class {
	if err == nil {
		return Fatal
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return Transient
		}
	}

	return Fatal
}

var retryHints = []*regexp.Regexp{
	regexp.MustCompile(`(?i)retry in\s+([0-9]+(?:\.[0-9]+)?)\s*(ms|s)?`),
	regexp.MustCompile(`(?i)"?retryDelay"?\s*[:=]\s*"?([0-9]+(?:\.[0-9]+)?)\s*(ms|s)?`),
}

// ParseRetryHint extracts a server suggested delay from an error message.
func ParseRetryHint(msg string) (time.Duration, bool) {
	for _, re := range retryHints {
		m := re.FindStringSubmatch(msg)
		if m == nil {
			continue
		}

		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}

		unit := time.Second
		if strings.EqualFold(m[2], "ms") {
			unit = time.Millisecond
		}

		return time.Duration(n * float64(unit)), true
	}

	return 0, false
}

type Policy struct {
	cfg    Config
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
	log    *zap.Logger
}

type Option func(*Policy)

// WithSleeper replaces the wall-clock sleep between attempts.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Policy) {
		p.sleep = sleep
	}
}

// WithJitter replaces the random jitter source.
func WithJitter(jitter func() time.Duration) Option {
	return func(p *Policy) {
		p.jitter = jitter
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(p *Policy) {
		p.log = log
	}
}

func NewPolicy(cfg Config, opts ...Option) *Policy {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}

	if cfg.BaseDelay < 0 {
		cfg.BaseDelay = 0
	}

	p := &Policy{
		cfg:    cfg,
		sleep:  sleepContext,
		jitter: randomJitter,
		log: zap.L().With(
			zap.String("component", "resilience"),
		),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Policy) Config() Config {
	return p.cfg
}

// Backoff returns the exponential delay for a 1-based attempt number.
func (p *Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := p.cfg.BaseDelay
	for i := 1; i < attempt && delay > 0 && delay < MaxBackoff; i++ {
		delay *= 2
	}

	return min(delay, MaxBackoff) + p.jitter()
}

// Delay returns how long to wait after err on the given attempt.
func (p *Policy) Delay(err error, attempt int) time.Duration {
	if d, ok := ParseRetryHint(err.Error()); ok {
		return d
	}

	return p.Backoff(attempt)
}

// Do runs op under the policy. A nil policy runs op exactly once.
func Do[T any](ctx context.Context, p *Policy, op func(ctx context.Context) (T, error)) (T, error) {
	if p == nil {
		return op(ctx)
	}

	var (
		zero    T
		lastErr error
	)

	for attempt := 1; attempt <= p.cfg.MaxRetries; attempt++ {
		result, err := runAttempt(ctx, p.cfg.Timeout, op)
		if err == nil {
			return result, nil
		}

		lastErr = err

		if Classify(err) == Fatal {
			return zero, fmt.Errorf("%w: %w", ErrFatal, err)
		}

		if attempt == p.cfg.MaxRetries {
			break
		}

		delay := p.Delay(err, attempt)

		p.log.Warn(err.Error(),
			zap.String("action", "retry"),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", p.cfg.MaxRetries),
			zap.Duration("delay", delay),
		)

		if err := p.sleep(ctx, delay); err != nil {
			return zero, fmt.Errorf("retry aborted after %d attempts: %w: %w", attempt, err, lastErr)
		}
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, p.cfg.MaxRetries, lastErr)
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return op(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func randomJitter() time.Duration {
	return time.Duration(rand.Int64N(int64(MaxJitter)))
}
