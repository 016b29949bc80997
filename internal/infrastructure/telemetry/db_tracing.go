package telemetry

import (
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const queryStartKey = "telemetry:query_start"

// DBTracingConfig holds database tracing settings
type DBTracingConfig struct {
	Enabled         bool
	DBName          string
	LogFullSQL      bool // include bind variables in spans; development only
	SlowQueryThresh time.Duration
}

// RegisterDBTracing installs the otelgorm plugin and a slow query marker on db
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	thresh := cfg.SlowQueryThresh
	if thresh <= 0 {
		thresh = 200 * time.Millisecond
	}
	marker := &slowQueryMarker{thresh: thresh, logger: logger}
	if err := marker.register(db); err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", thresh),
	)
	return nil
}

type slowQueryMarker struct {
	thresh time.Duration
	logger *zap.Logger
}

func (m *slowQueryMarker) register(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("telemetry:before_create", m.before),
		cb.Create().After("gorm:create").Register("telemetry:after_create", m.after),
		cb.Query().Before("gorm:query").Register("telemetry:before_query", m.before),
		cb.Query().After("gorm:query").Register("telemetry:after_query", m.after),
		cb.Update().Before("gorm:update").Register("telemetry:before_update", m.before),
		cb.Update().After("gorm:update").Register("telemetry:after_update", m.after),
		cb.Delete().Before("gorm:delete").Register("telemetry:before_delete", m.before),
		cb.Delete().After("gorm:delete").Register("telemetry:after_delete", m.after),
	)
}

func (m *slowQueryMarker) before(db *gorm.DB) {
	db.InstanceSet(queryStartKey, time.Now())
}

func (m *slowQueryMarker) after(db *gorm.DB) {
	v, ok := db.InstanceGet(queryStartKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)
	if elapsed <= m.thresh {
		return
	}

	m.logger.Warn("Slow query",
		zap.String("table", db.Statement.Table),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows_affected", db.Statement.RowsAffected),
	)
	if ctx := db.Statement.Context; ctx != nil {
		span := trace.SpanFromContext(ctx)
		if span.IsRecording() {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
		}
	}
}
