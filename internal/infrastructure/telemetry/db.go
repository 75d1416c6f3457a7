package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultSlowQuery = 200 * time.Millisecond
	startedAtKey     = "telemetry:started_at"
)

// DBOptions configures InstrumentDB.
type DBOptions struct {
	// Tracing registers the otelgorm plugin so every statement gets a span.
	Tracing bool
	// LogFullSQL keeps bound variables in span statements. Development only.
	LogFullSQL bool
	// DBSystem names the database on spans, e.g. "postgresql" or "sqlite".
	DBSystem string
	// SlowThreshold marks statements slower than this on spans, metrics and logs.
	SlowThreshold time.Duration
	// Meter enables query and pool metrics when set.
	Meter  metric.Meter
	Logger *zap.Logger
}

// DBInstrumentation is a gorm plugin adding spans, query metrics and slow
// statement detection.
type DBInstrumentation struct {
	opts DBOptions

	queryTotal    *Counter
	slowQueries   *Counter
	queryDuration *Histogram
}

// InstrumentDB installs tracing and metrics on db according to opts.
func InstrumentDB(db *gorm.DB, opts DBOptions) (*DBInstrumentation, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.SlowThreshold <= 0 {
		opts.SlowThreshold = defaultSlowQuery
	}
	if opts.DBSystem == "" {
		opts.DBSystem = db.Dialector.Name()
	}

	if opts.Tracing {
		pluginOpts := []otelgorm.Option{otelgorm.WithDBName(opts.DBSystem)}
		if !opts.LogFullSQL {
			pluginOpts = append(pluginOpts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(pluginOpts...)); err != nil {
			return nil, err
		}
	}

	inst := &DBInstrumentation{opts: opts}
	if opts.Meter != nil {
		if err := inst.createInstruments(db); err != nil {
			return nil, err
		}
	}
	if err := db.Use(inst); err != nil {
		return nil, err
	}

	opts.Logger.Info("Database instrumentation enabled",
		zap.Bool("tracing", opts.Tracing),
		zap.Bool("metrics", opts.Meter != nil),
		zap.Duration("slow_threshold", opts.SlowThreshold),
	)
	return inst, nil
}

// Name implements gorm.Plugin.
func (i *DBInstrumentation) Name() string {
	return "storefront:instrumentation"
}

// Initialize implements gorm.Plugin.
func (i *DBInstrumentation) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	steps := []struct {
		op     string
		before func(name string, fn func(*gorm.DB)) error
		after  func(name string, fn func(*gorm.DB)) error
	}{
		{"create",
			func(n string, fn func(*gorm.DB)) error { return cb.Create().Before("gorm:create").Register(n, fn) },
			func(n string, fn func(*gorm.DB)) error { return cb.Create().After("gorm:create").Register(n, fn) }},
		{"select",
			func(n string, fn func(*gorm.DB)) error { return cb.Query().Before("gorm:query").Register(n, fn) },
			func(n string, fn func(*gorm.DB)) error { return cb.Query().After("gorm:query").Register(n, fn) }},
		{"update",
			func(n string, fn func(*gorm.DB)) error { return cb.Update().Before("gorm:update").Register(n, fn) },
			func(n string, fn func(*gorm.DB)) error { return cb.Update().After("gorm:update").Register(n, fn) }},
		{"delete",
			func(n string, fn func(*gorm.DB)) error { return cb.Delete().Before("gorm:delete").Register(n, fn) },
			func(n string, fn func(*gorm.DB)) error { return cb.Delete().After("gorm:delete").Register(n, fn) }},
		{"row",
			func(n string, fn func(*gorm.DB)) error { return cb.Row().Before("gorm:row").Register(n, fn) },
			func(n string, fn func(*gorm.DB)) error { return cb.Row().After("gorm:row").Register(n, fn) }},
		{"raw",
			func(n string, fn func(*gorm.DB)) error { return cb.Raw().Before("gorm:raw").Register(n, fn) },
			func(n string, fn func(*gorm.DB)) error { return cb.Raw().After("gorm:raw").Register(n, fn) }},
	}

	for _, s := range steps {
		op := s.op
		if err := s.before("storefront:before_"+op, markStart); err != nil {
			return err
		}
		if err := s.after("storefront:after_"+op, func(tx *gorm.DB) { i.observe(tx, op) }); err != nil {
			return err
		}
	}
	return nil
}

func (i *DBInstrumentation) createInstruments(db *gorm.DB) error {
	meter := i.opts.Meter
	var err error
	if i.queryTotal, err = NewCounter(meter, "db_query_total", "Database statements executed", "{query}"); err != nil {
		return err
	}
	if i.slowQueries, err = NewCounter(meter, "db_slow_query_total", "Statements slower than the slow threshold", "{query}"); err != nil {
		return err
	}
	if i.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database statement latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return err
	}
	return registerPoolMetrics(meter, db)
}

func markStart(tx *gorm.DB) {
	tx.InstanceSet(startedAtKey, time.Now())
}

func (i *DBInstrumentation) observe(tx *gorm.DB, op string) {
	ctx := tx.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}

	var elapsed time.Duration
	if v, ok := tx.InstanceGet(startedAtKey); ok {
		if started, ok := v.(time.Time); ok {
			elapsed = time.Since(started)
		}
	}
	slow := elapsed > i.opts.SlowThreshold
	failed := tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound)

	if i.queryTotal != nil {
		outcome := "ok"
		if failed {
			outcome = "error"
		}
		attrs := []attribute.KeyValue{
			attribute.String("db.operation", op),
			attribute.String("db.table", tx.Statement.Table),
		}
		i.queryTotal.Inc(ctx, append(attrs, AttrOutcome.String(outcome))...)
		i.queryDuration.RecordDuration(ctx, elapsed, attrs...)
		if slow {
			i.slowQueries.Inc(ctx, attrs...)
		}
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(attribute.Int64("db.rows_affected", tx.Statement.RowsAffected))
		if slow {
			span.AddEvent("slow_query", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", i.opts.SlowThreshold.Milliseconds()),
			))
		}
	}

	if slow {
		i.opts.Logger.Warn("Slow database statement",
			zap.String("operation", op),
			zap.String("table", tx.Statement.Table),
			zap.Duration("elapsed", elapsed),
			zap.String("trace_id", GetTraceID(ctx)),
		)
	}
}

// registerPoolMetrics exposes sql.DB pool statistics as observable gauges.
func registerPoolMetrics(meter metric.Meter, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	connections, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Pool connections by state"), metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	maxOpen, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Configured maximum open connections"), metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	waits, err := meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Connections waited for"), metric.WithUnit("{wait}"))
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(connections, int64(stats.InUse), metric.WithAttributes(AttrDBPoolState.String("in_use")))
		o.ObserveInt64(connections, int64(stats.Idle), metric.WithAttributes(AttrDBPoolState.String("idle")))
		o.ObserveInt64(maxOpen, int64(stats.MaxOpenConnections))
		o.ObserveInt64(waits, stats.WaitCount)
		return nil
	}, connections, maxOpen, waits)
	return err
}
