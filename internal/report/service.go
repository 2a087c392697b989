package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrJamesThe3rd/comanda/internal/transaction"
)

// DefaultPeriods is the length of the series charts and forecasts use.
const DefaultPeriods = 12

var ErrInvalidPeriod = errors.New("invalid period")

// Lister is the read side of the transaction service.
type Lister interface {
	List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error)
}

// Cache stores computed reports. Each entry is tagged with the months it was built
// from so a change to any of them drops it.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, months []string) error
	Invalidate(ctx context.Context, month string) error
}

type Service struct {
	txs   Lister
	cache Cache
}

// NewService builds a report service. cache may be nil to always compute from the store.
func NewService(txs Lister, cache Cache) *Service {
	return &Service{txs: txs, cache: cache}
}

// Forecast is an estimate together with the series it was computed from.
type Forecast struct {
	Trend    []TrendPoint `json:"trend"`
	Estimate Estimate     `json:"estimate"`
}

// ParseMonth validates a YYYY-MM key and returns the first day of that month.
func ParseMonth(month string) (time.Time, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: month %q must be in YYYY-MM format", ErrInvalidPeriod, month)
	}

	return t, nil
}

func (s *Service) Monthly(ctx context.Context, month string) (*MonthlyData, error) {
	if _, err := ParseMonth(month); err != nil {
		return nil, err
	}

	var data MonthlyData
	if s.cached(ctx, "monthly:"+month, &data) {
		return &data, nil
	}

	txs, err := s.txs.List(ctx, transaction.ListFilter{Month: &month})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", month, err)
	}

	data = Aggregate(month, txs)
	s.store(ctx, "monthly:"+month, data, month)

	return &data, nil
}

func (s *Service) Professionals(ctx context.Context, month string) ([]ProfessionalSummary, error) {
	if _, err := ParseMonth(month); err != nil {
		return nil, err
	}

	var out []ProfessionalSummary
	if s.cached(ctx, "professionals:"+month, &out) {
		return out, nil
	}

	txs, err := s.txs.List(ctx, transaction.ListFilter{Month: &month})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", month, err)
	}

	out = ByProfessional(txs)
	s.store(ctx, "professionals:"+month, out, month)

	return out, nil
}

// Trend builds the periods months ending at ref's month from a single range query.
func (s *Service) Trend(ctx context.Context, ref time.Time, periods int) ([]TrendPoint, error) {
	if periods <= 0 || periods > 120 {
		return nil, fmt.Errorf("%w: periods must be between 1 and 120, got %d", ErrInvalidPeriod, periods)
	}

	months := Periods(ref, periods)
	key := fmt.Sprintf("trend:%s:%d", months[len(months)-1], periods)

	var points []TrendPoint
	if s.cached(ctx, key, &points) {
		return points, nil
	}

	start, _ := ParseMonth(months[0])
	last, _ := ParseMonth(months[len(months)-1])
	end := last.AddDate(0, 1, -1)

	txs, err := s.txs.List(ctx, transaction.ListFilter{StartDate: &start, EndDate: &end})
	if err != nil {
		return nil, fmt.Errorf("listing %s to %s: %w", months[0], months[len(months)-1], err)
	}

	points = BuildTrend(txs, periods, ref)
	s.store(ctx, key, points, months...)

	return points, nil
}

// Forecast predicts the month after ref's month from a DefaultPeriods series.
func (s *Service) Forecast(ctx context.Context, ref time.Time) (*Forecast, error) {
	points, err := s.Trend(ctx, ref, DefaultPeriods)
	if err != nil {
		return nil, err
	}

	return &Forecast{Trend: points, Estimate: Predict(points)}, nil
}

// Invalidate drops every cached report built from month.
func (s *Service) Invalidate(ctx context.Context, month string) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Invalidate(ctx, month); err != nil {
		slog.Warn("invalidating report cache", "month", month, "error", err)
	}
}

// InvalidateChange drops cached reports for every month ch touches, including the
// month an updated transaction moved out of.
func (s *Service) InvalidateChange(ctx context.Context, ch transaction.Change) {
	for _, month := range ch.Months() {
		s.Invalidate(ctx, month)
	}
}

// cached and store treat the cache as best effort: failures are logged and the
// report is computed from the store instead.
func (s *Service) cached(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}

	found, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		slog.Warn("reading report cache", "key", key, "error", err)
		return false
	}

	return found
}

func (s *Service) store(ctx context.Context, key string, v any, months ...string) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Set(ctx, key, v, months); err != nil {
		slog.Warn("writing report cache", "key", key, "error", err)
	}
}
