// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package generation wraps the text generation providers behind a single
// client that retries the primary provider with exponential backoff and falls
// back to the secondary provider once the primary is exhausted.
//
// The per request state machine is:
//   - PrimaryAttempt(n) for n in [0, MaxRetries).
//   - A transient failure (QuotaExceeded, ProviderUnavailable) sleeps
//     2^(n+1)*BaseDelay plus jitter in [0, MaxJitter) and retries, as long as
//     n < MaxRetries-1.
//   - A terminal failure, a response that does not parse, or exhausted
//     retries moves to SecondaryAttempt, which is tried exactly once.
//   - When the secondary also fails the primary's error is returned.
package generation

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
	DefaultMaxJitter  = time.Second
)

// Request is a provider neutral completion request.
type Request struct {
	System string
	Prompt string
	// JSON asks the provider for a JSON object response.
	JSON bool
}

// Provider is a single text completion backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Client retries and falls back between two providers.
type Client struct {
	Primary    Provider
	Secondary  Provider
	MaxRetries int
	BaseDelay  time.Duration
	MaxJitter  time.Duration
	// Sleep waits for d or until ctx is done. Tests replace it to observe the
	// backoff schedule without waiting.
	Sleep func(ctx context.Context, d time.Duration) error
	// Jitter returns a random duration in [0, max).
	Jitter func(max time.Duration) time.Duration
	Logger *slog.Logger

	tracer    trace.Tracer
	retries   metric.Int64Counter
	fallbacks metric.Int64Counter
	exhausted metric.Int64Counter
}

// NewClient creates a client with the default retry policy. Either provider
// may be nil when its credentials are not configured.
func NewClient(primary Provider, secondary Provider) *Client {
	meter := otel.Meter("github.com/wrapperai/wrapper-ai/generation")
	c := &Client{
		Primary:    primary,
		Secondary:  secondary,
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxJitter:  DefaultMaxJitter,
		Sleep:      sleepContext,
		Jitter:     fullJitter,
		Logger:     slog.Default(),
		tracer:     otel.Tracer("generation"),
	}
	var err error
	if c.retries, err = meter.Int64Counter("generation.retry"); err != nil {
		slog.Warn("error creating generation retry counter", slog.Any("error", err))
	}
	if c.fallbacks, err = meter.Int64Counter("generation.fallback"); err != nil {
		slog.Warn("error creating generation fallback counter", slog.Any("error", err))
	}
	if c.exhausted, err = meter.Int64Counter("generation.exhausted"); err != nil {
		slog.Warn("error creating generation exhausted counter", slog.Any("error", err))
	}
	return c
}

// Backoff returns the wait before primary attempt n+1.
func (c *Client) Backoff(n int) time.Duration {
	base := c.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	delay := time.Duration(1<<(n+1)) * base
	if c.MaxJitter > 0 {
		jitter := c.Jitter
		if jitter == nil {
			jitter = fullJitter
		}
		delay += jitter(c.MaxJitter)
	}
	return delay
}

// Text runs a plain text completion through the retry and fallback policy.
func (c *Client) Text(ctx context.Context, req Request) (string, []model.GenerationAttempt, error) {
	return Generate(ctx, c, req, func(raw string) (string, error) {
		return raw, nil
	})
}

// Generate runs req through the retry and fallback policy. parse converts the
// raw response; a parse error is treated like a terminal provider failure.
func Generate[T any](ctx context.Context, c *Client, req Request, parse func(string) (T, error)) (T, []model.GenerationAttempt, error) {
	var zero T
	tracer := c.tracer
	if tracer == nil {
		tracer = otel.Tracer("generation")
	}
	ctx, span := tracer.Start(ctx, "generate")
	defer span.End()

	logger := c.logger()
	attempts := make([]model.GenerationAttempt, 0, c.maxRetries()+1)

	var primaryErr error
	if c.Primary == nil {
		primaryErr = apperr.New(apperr.ConfigurationMissing, "the primary generation provider is not configured")
	} else {
		for n := 0; n < c.maxRetries(); n++ {
			value, err := call(ctx, c.Primary, req, parse)
			if err == nil {
				attempts = append(attempts, attempt(model.ProviderPrimary, n, model.OutcomeSuccess))
				span.SetAttributes(attribute.String("provider", c.Primary.Name()), attribute.Int("attempts", len(attempts)))
				return value, attempts, nil
			}
			primaryErr = err
			if !apperr.IsTransient(err) {
				attempts = append(attempts, attempt(model.ProviderPrimary, n, model.OutcomeTerminalFailure))
				logger.WarnContext(ctx, "generation: primary provider failed terminally",
					slog.String("provider", c.Primary.Name()), slog.Int("attempt", n), slog.Any("error", err))
				break
			}
			attempts = append(attempts, attempt(model.ProviderPrimary, n, model.OutcomeTransientFailure))
			if n >= c.maxRetries()-1 {
				logger.WarnContext(ctx, "generation: primary provider retries exhausted",
					slog.String("provider", c.Primary.Name()), slog.Int("attempts", n+1), slog.Any("error", err))
				break
			}
			delay := c.Backoff(n)
			logger.WarnContext(ctx, "generation: transient failure, backing off",
				slog.String("provider", c.Primary.Name()), slog.Int("attempt", n), slog.Duration("delay", delay), slog.Any("error", err))
			c.add(ctx, c.retries, c.Primary.Name())
			if serr := c.sleep(ctx, delay); serr != nil {
				return zero, attempts, primaryErr
			}
		}
	}

	if c.Secondary == nil {
		c.add(ctx, c.exhausted, "none")
		return zero, attempts, primaryErr
	}
	if ctx.Err() != nil {
		return zero, attempts, primaryErr
	}

	c.add(ctx, c.fallbacks, c.Secondary.Name())
	value, err := call(ctx, c.Secondary, req, parse)
	if err == nil {
		attempts = append(attempts, attempt(model.ProviderSecondary, 0, model.OutcomeSuccess))
		span.SetAttributes(attribute.String("provider", c.Secondary.Name()), attribute.Int("attempts", len(attempts)))
		return value, attempts, nil
	}
	attempts = append(attempts, attempt(model.ProviderSecondary, 0, outcomeOf(err)))
	logger.ErrorContext(ctx, "generation: secondary provider failed",
		slog.String("provider", c.Secondary.Name()), slog.Any("error", err), slog.Any("primary_error", primaryErr))
	c.add(ctx, c.exhausted, c.Secondary.Name())
	span.RecordError(primaryErr)
	return zero, attempts, primaryErr
}

func call[T any](ctx context.Context, p Provider, req Request, parse func(string) (T, error)) (T, error) {
	var zero T
	raw, err := p.Complete(ctx, req)
	if err != nil {
		return zero, err
	}
	return parse(raw)
}

func attempt(p model.Provider, n int, outcome model.AttemptOutcome) model.GenerationAttempt {
	return model.GenerationAttempt{Provider: p, AttemptNumber: n, Outcome: outcome}
}

func outcomeOf(err error) model.AttemptOutcome {
	if apperr.IsTransient(err) {
		return model.OutcomeTransientFailure
	}
	return model.OutcomeTerminalFailure
}

func (c *Client) maxRetries() int {
	if c.MaxRetries <= 0 {
		return DefaultMaxRetries
	}
	return c.MaxRetries
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep == nil {
		return sleepContext(ctx, d)
	}
	return c.Sleep(ctx, d)
}

func (c *Client) add(ctx context.Context, counter metric.Int64Counter, provider string) {
	if counter == nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func fullJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max)))
}
