package library

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/Faultbox/vrmkit/internal/library"

// meter uses the global provider, which is a no-op unless the host installs
// one.
func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type metrics struct {
	loaded   metric.Int64Counter
	migrated metric.Int64Counter
	errors   metric.Int64Counter
	hits     metric.Int64Counter
	misses   metric.Int64Counter
	duration metric.Float64Histogram
}

func newMetrics() (*metrics, error) {
	m := meter()
	var (
		met metrics
		err error
	)

	if met.loaded, err = m.Int64Counter(
		"library.avatars.loaded",
		metric.WithDescription("Avatars parsed from disk"),
	); err != nil {
		return nil, fmt.Errorf("creating loaded counter: %w", err)
	}
	if met.migrated, err = m.Int64Counter(
		"library.avatars.migrated",
		metric.WithDescription("Current-schema avatars migrated to the legacy shape"),
	); err != nil {
		return nil, fmt.Errorf("creating migrated counter: %w", err)
	}
	if met.errors, err = m.Int64Counter(
		"library.avatars.errors",
		metric.WithDescription("Avatar loads that failed"),
	); err != nil {
		return nil, fmt.Errorf("creating errors counter: %w", err)
	}
	if met.hits, err = m.Int64Counter(
		"library.cache.hits",
		metric.WithDescription("Loads served from the cache"),
	); err != nil {
		return nil, fmt.Errorf("creating hits counter: %w", err)
	}
	if met.misses, err = m.Int64Counter(
		"library.cache.misses",
		metric.WithDescription("Loads that had to parse the file"),
	); err != nil {
		return nil, fmt.Errorf("creating misses counter: %w", err)
	}
	if met.duration, err = m.Float64Histogram(
		"library.load.duration",
		metric.WithDescription("Time spent parsing and migrating one avatar"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}
	return &met, nil
}

func (m *metrics) failed(ctx context.Context, stage string) {
	m.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}
