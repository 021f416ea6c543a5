package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/smith3v/tg-phrasebook/pkg/config"
	"github.com/smith3v/tg-phrasebook/pkg/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	defaultSlowQuery  = 200 * time.Millisecond
	defaultQueryLevel = gormlogger.Warn
)

// queryLevels maps logging.gorm_level values to gorm levels.
var queryLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
}

// appLevels is the pkg/logger level a gorm level has to pass as well.
var appLevels = map[gormlogger.LogLevel]struct {
	app  logger.LogLevel
	slog slog.Level
}{
	gormlogger.Error: {logger.ERROR, slog.LevelError},
	gormlogger.Warn:  {logger.WARN, slog.LevelWarn},
	gormlogger.Info:  {logger.INFO, slog.LevelInfo},
}

// queryLogger writes store queries to pkg/logger tagged with the driver.
// A record is written only when logging.gorm_level and logging.level both
// allow it. Missing rows are normal lookups here (no progress yet, unknown
// pair id) and are never logged.
type queryLogger struct {
	driver string
	slow   time.Duration
	level  gormlogger.LogLevel
}

// newQueryLogger builds the logger for driver from cfg. An unknown gorm level
// falls back to warn and is reported in the error.
func newQueryLogger(cfg config.LoggingConfig, driver string) (*queryLogger, error) {
	l := &queryLogger{
		driver: driver,
		slow:   defaultSlowQuery,
		level:  defaultQueryLevel,
	}
	if cfg.SlowQueryMS > 0 {
		l.slow = time.Duration(cfg.SlowQueryMS) * time.Millisecond
	}
	value := strings.ToLower(strings.TrimSpace(cfg.GormLevel))
	if value == "" {
		return l, nil
	}
	level, ok := queryLevels[value]
	if !ok {
		return l, fmt.Errorf("invalid gorm log level %q", cfg.GormLevel)
	}
	l.level = level
	return l, nil
}

func (l *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *queryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.write(ctx, gormlogger.Info, fmt.Sprintf(msg, data...))
}

func (l *queryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.write(ctx, gormlogger.Warn, fmt.Sprintf(msg, data...))
}

func (l *queryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.write(ctx, gormlogger.Error, fmt.Sprintf(msg, data...))
}

func (l *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level == gormlogger.Silent || errors.Is(err, gorm.ErrRecordNotFound) {
		return
	}
	elapsed := time.Since(begin)
	level, msg := gormlogger.Info, "store query"
	switch {
	case err != nil:
		level, msg = gormlogger.Error, "store query failed"
	case elapsed > l.slow:
		level, msg = gormlogger.Warn, "slow store query"
	}
	if !l.enabled(level) {
		return
	}

	sql, rows := fc()
	attrs := []any{"driver", l.driver, "elapsed", elapsed, "rows", rows, "sql", sql}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	l.write(ctx, level, msg, attrs...)
}

func (l *queryLogger) write(ctx context.Context, level gormlogger.LogLevel, msg string, attrs ...any) {
	if !l.enabled(level) {
		return
	}
	logger.Logger.Log(ctx, appLevels[level].slog, msg, attrs...)
}

func (l *queryLogger) enabled(level gormlogger.LogLevel) bool {
	mapped, ok := appLevels[level]
	if !ok || l.level == gormlogger.Silent || l.level < level {
		return false
	}
	return logger.Enabled(mapped.app)
}
