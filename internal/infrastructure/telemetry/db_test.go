package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type widget struct {
	ID   uint
	Name string
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestInstrumentDB_RecordsQueryMetrics(t *testing.T) {
	db := openTestDB(t)
	meter, reader := newTestMeter(t)

	_, err := InstrumentDB(db, DBOptions{Meter: meter, SlowThreshold: time.Hour})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&widget{}))
	require.NoError(t, db.Create(&widget{Name: "a"}).Error)
	var found []widget
	require.NoError(t, db.Find(&found).Error)
	require.Len(t, found, 1)

	assert.GreaterOrEqual(t, intSum(t, reader, "db_query_total"), int64(2))
	_, slow := collectMetric(t, reader, "db_slow_query_total")
	assert.False(t, slow, "nothing should exceed an hour")

	hist, ok := collectMetric(t, reader, "db_query_duration_seconds")
	require.True(t, ok)
	assert.NotEmpty(t, hist.Data.(metricdata.Histogram[float64]).DataPoints)
}

func TestInstrumentDB_FlagsSlowStatements(t *testing.T) {
	db := openTestDB(t)
	meter, reader := newTestMeter(t)
	core, logs := observer.New(zapcore.WarnLevel)

	_, err := InstrumentDB(db, DBOptions{Meter: meter, SlowThreshold: time.Nanosecond, Logger: zap.New(core)})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&widget{}))
	require.NoError(t, db.Create(&widget{Name: "slow"}).Error)

	assert.Positive(t, intSum(t, reader, "db_slow_query_total"))
	assert.NotZero(t, logs.FilterMessage("Slow database statement").Len())
}

func TestInstrumentDB_PoolMetrics(t *testing.T) {
	db := openTestDB(t)
	meter, reader := newTestMeter(t)

	_, err := InstrumentDB(db, DBOptions{Meter: meter})
	require.NoError(t, err)

	m, ok := collectMetric(t, reader, "db_pool_connections_max")
	require.True(t, ok)
	gauge := m.Data.(metricdata.Gauge[int64])
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(1), gauge.DataPoints[0].Value)
}

func TestInstrumentDB_WithoutMeterOnlyLogs(t *testing.T) {
	db := openTestDB(t)
	inst, err := InstrumentDB(db, DBOptions{})
	require.NoError(t, err)
	assert.Equal(t, "storefront:instrumentation", inst.Name())
	assert.Equal(t, "sqlite", inst.opts.DBSystem)

	require.NoError(t, db.AutoMigrate(&widget{}))
	require.NoError(t, db.Create(&widget{Name: "plain"}).Error)
}

func TestInstrumentDB_Tracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	db := openTestDB(t)
	_, err := InstrumentDB(db, DBOptions{Tracing: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&widget{}))
	require.NoError(t, db.WithContext(context.Background()).Create(&widget{Name: "traced"}).Error)

	assert.NotEmpty(t, recorder.Ended())
}
