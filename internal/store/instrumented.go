package store

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/itemservice/internal/model"
)

// Outcome label values.
const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// Prometheus metrics.
var (
	repositoryOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "item_repository_operations_total",
			Help: "Total number of item repository operations",
		},
		[]string{"strategy", "operation", "outcome"},
	)

	repositoryOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "item_repository_operation_duration_seconds",
			Help:    "Item repository operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy", "operation"},
	)
)

// instrumented decorates an ItemRepository with metrics and logging.
type instrumented struct {
	next     ItemRepository
	strategy string
	logger   *zap.Logger
}

// Instrument wraps repo so that every call is counted, timed and logged under
// the given strategy name.
func Instrument(repo ItemRepository, strategy string, logger *zap.Logger) ItemRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &instrumented{
		next:     repo,
		strategy: strategy,
		logger:   logger.With(zap.String("strategy", strategy)),
	}
}

func (r *instrumented) Save(ctx context.Context, item *model.Item) (*model.Item, error) {
	start := time.Now()
	saved, err := r.next.Save(ctx, item)
	r.observe("save", start, err, zap.Int64("id", idOf(saved)))
	return saved, err
}

func (r *instrumented) Update(ctx context.Context, id int64, param model.ItemUpdate) error {
	start := time.Now()
	err := r.next.Update(ctx, id, param)
	r.observe("update", start, err, zap.Int64("id", id))
	return err
}

func (r *instrumented) FindByID(ctx context.Context, id int64) (model.Item, bool, error) {
	start := time.Now()
	item, ok, err := r.next.FindByID(ctx, id)
	r.observe("find_by_id", start, err, zap.Int64("id", id), zap.Bool("found", ok))
	return item, ok, err
}

func (r *instrumented) FindAll(ctx context.Context, cond model.ItemSearch) ([]model.Item, error) {
	start := time.Now()
	items, err := r.next.FindAll(ctx, cond)
	r.observe("find_all", start, err, zap.String("item_name", cond.ItemName), zap.Int("results", len(items)))
	return items, err
}

func (r *instrumented) observe(op string, start time.Time, err error, fields ...zap.Field) {
	elapsed := time.Since(start)
	repositoryOperationDuration.WithLabelValues(r.strategy, op).Observe(elapsed.Seconds())

	fields = append(fields, zap.String("operation", op), zap.Duration("duration", elapsed))
	if err != nil {
		repositoryOperationsTotal.WithLabelValues(r.strategy, op, outcomeError).Inc()
		r.logger.Error("repository operation failed", append(fields, zap.Error(err))...)
		return
	}

	repositoryOperationsTotal.WithLabelValues(r.strategy, op, outcomeOK).Inc()
	r.logger.Debug("repository operation", fields...)
}

func idOf(item *model.Item) int64 {
	if item == nil {
		return 0
	}
	return item.ID
}
