package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/localrivet/resourcemcp/internal/errortypes"
	"github.com/localrivet/resourcemcp/internal/record"
	"github.com/localrivet/resourcemcp/internal/telemetry"
)

// Operation names used in logs and metrics.
const (
	OpCreate = "create"
	OpGet    = "get"
	OpList   = "list"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Operations lists the operation names in contract order.
var Operations = []string{OpCreate, OpGet, OpList, OpUpdate, OpDelete}

// InstrumentedAPI wraps another API, logging every call and recording
// per-operation metrics. It does not alter results or errors.
type InstrumentedAPI struct {
	next        API
	logger      *slog.Logger
	metrics     *telemetry.MetricsCollector
	mu          sync.Mutex
	collections map[string]struct{}
}

// NewInstrumentedAPI decorates next. A nil logger uses slog.Default(); a nil
// metrics collector gets a fresh one.
func NewInstrumentedAPI(next API, logger *slog.Logger, metrics *telemetry.MetricsCollector) *InstrumentedAPI {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = telemetry.NewMetricsCollector()
	}
	return &InstrumentedAPI{
		next:        next,
		logger:      logger,
		metrics:     metrics,
		collections: make(map[string]struct{}),
	}
}

// Metrics returns the collector the decorator records into.
func (a *InstrumentedAPI) Metrics() *telemetry.MetricsCollector {
	return a.metrics
}

// Unwrap returns the decorated API.
func (a *InstrumentedAPI) Unwrap() API {
	return a.next
}

// Close closes the decorated API when it holds resources.
func (a *InstrumentedAPI) Close() error {
	return Close(a.next)
}

func (a *InstrumentedAPI) observe(op, collection string, started time.Time, err error, args ...any) {
	elapsed := time.Since(started)
	a.metrics.IncrementCounter(telemetry.OperationMetric(telemetry.MetricCalls, op), 1)
	a.metrics.RecordTimer(telemetry.OperationMetric(telemetry.MetricResponseTime, op), elapsed)
	a.metrics.RecordTimestamp(telemetry.OperationMetric(telemetry.MetricLastCall, op))

	attrs := append([]any{"op", op, "collection", collection, "duration", elapsed}, args...)
	if err == nil {
		a.logger.Debug("Resource operation completed", attrs...)
		return
	}

	a.metrics.IncrementCounter(telemetry.OperationMetric(telemetry.MetricFailures, op), 1)
	switch errortypes.KindOf(err) {
	case errortypes.KindNotFound:
		a.metrics.IncrementCounter(telemetry.OperationMetric(telemetry.MetricNotFound, op), 1)
	case errortypes.KindInvalidURI:
		a.metrics.IncrementCounter(telemetry.OperationMetric(telemetry.MetricInvalidURI, op), 1)
	}
	a.logger.Info("Resource operation failed", append(attrs, "error", err, "kind", string(errortypes.KindOf(err)))...)
}

func (a *InstrumentedAPI) Create(ctx context.Context, collection string, data record.Record) (CreateResult, error) {
	started := time.Now()
	res, err := a.next.Create(ctx, collection, data)
	a.observe(OpCreate, collection, started, err, "id", res.ID)
	if err == nil {
		a.mu.Lock()
		a.collections[collection] = struct{}{}
		seen := len(a.collections)
		a.mu.Unlock()
		a.metrics.SetGauge(telemetry.MetricCollections, float64(seen))
	}
	return res, err
}

func (a *InstrumentedAPI) Get(ctx context.Context, collection, id string) (record.Record, error) {
	started := time.Now()
	rec, err := a.next.Get(ctx, collection, id)
	a.observe(OpGet, collection, started, err, "id", id)
	return rec, err
}

func (a *InstrumentedAPI) List(ctx context.Context, collection string, query record.Query) ([]record.Record, error) {
	started := time.Now()
	items, err := a.next.List(ctx, collection, query)
	a.observe(OpList, collection, started, err, "query_fields", len(query), "count", len(items))
	return items, err
}

func (a *InstrumentedAPI) Update(ctx context.Context, collection, id string, data record.Record) error {
	started := time.Now()
	err := a.next.Update(ctx, collection, id, data)
	a.observe(OpUpdate, collection, started, err, "id", id, "fields", len(data))
	return err
}

func (a *InstrumentedAPI) Delete(ctx context.Context, collection, id string) error {
	started := time.Now()
	err := a.next.Delete(ctx, collection, id)
	a.observe(OpDelete, collection, started, err, "id", id)
	return err
}
