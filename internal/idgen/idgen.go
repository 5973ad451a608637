// internal/idgen/idgen.go
package idgen

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

const (
	orderNumberPrefix = "ORD"
	shortCodeAttempts = 10
	shortCodeMin      = 100000
	shortCodeSpan     = 900000
)

// Source answers the read-only questions the generator asks the store.
type Source interface {
	CountOrders(ctx context.Context) (int64, error)
	ShortCodeExists(ctx context.Context, code string) (bool, error)
}

// Generator produces order numbers and six digit short codes. Neither is
// guaranteed unique on its own: the store's unique constraints decide, and
// callers retry on conflict.
type Generator struct {
	source Source
	logger *slog.Logger
	now    func() time.Time
	intn   func(n int) int
}

// Option customizes a Generator.
type Option func(*Generator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithRand replaces the random source. intn must return a value in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(g *Generator) { g.intn = intn }
}

// New creates a Generator.
func New(source Source, logger *slog.Logger, opts ...Option) *Generator {
	g := &Generator{
		source: source,
		logger: logger,
		now:    time.Now,
		intn:   rand.Intn,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateOrderNumber returns "ORD" + unix millis + the zero padded order
// count plus one.
func (g *Generator) GenerateOrderNumber(ctx context.Context) (string, error) {
	count, err := g.source.CountOrders(ctx)
	if err != nil {
		return "", fmt.Errorf("generate order number: %w", err)
	}
	return fmt.Sprintf("%s%d%04d", orderNumberPrefix, g.now().UnixMilli(), count+1), nil
}

// FallbackOrderNumber returns "ORD" + unix millis + four random digits. It is
// used after the sequential number collided.
func (g *Generator) FallbackOrderNumber() string {
	return fmt.Sprintf("%s%d%04d", orderNumberPrefix, g.now().UnixMilli(), g.intn(10000))
}

// GenerateShortCode draws random six digit codes until one is free, up to
// ten attempts, then falls back to the last six digits of the clock.
func (g *Generator) GenerateShortCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < shortCodeAttempts; attempt++ {
		code := fmt.Sprintf("%06d", shortCodeMin+g.intn(shortCodeSpan))
		exists, err := g.source.ShortCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("generate short code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}

	code := g.TimestampShortCode()
	g.logger.Warn("Short code attempts exhausted, using timestamp fallback", "code", code)
	return code, nil
}

// TimestampShortCode is the last six digits of the current time in microseconds.
func (g *Generator) TimestampShortCode() string {
	return fmt.Sprintf("%06d", g.now().UnixMicro()%1000000)
}
