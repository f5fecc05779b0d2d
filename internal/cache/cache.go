package cache

import (
	"context"
	"time"

	"pasmi/terminal/internal/domain"
)

// ReportsCache keeps recent reports feeds so payment hints do not refetch
// the whole sheet for every pending order.
type ReportsCache interface {
	Get(ctx context.Context, key string) ([]domain.ReportRecord, bool, error)
	Set(ctx context.Context, key string, value []domain.ReportRecord, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

type NoopReportsCache struct{}

func (NoopReportsCache) Get(_ context.Context, _ string) ([]domain.ReportRecord, bool, error) {
	return nil, false, nil
}

func (NoopReportsCache) Set(_ context.Context, _ string, _ []domain.ReportRecord, _ time.Duration) error {
	return nil
}

func (NoopReportsCache) Invalidate(_ context.Context, _ ...string) error {
	return nil
}

// ReportsKey names the cache entry for a reports feed, "all" when undated.
func ReportsKey(date string) string {
	if date == "" {
		date = "all"
	}
	return "pasmi:reports:" + date
}
