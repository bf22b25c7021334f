package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/tienminhktvn/dataops-project/logger"
	"github.com/tienminhktvn/dataops-project/resilience"
)

// DB wraps a gorm database with the service logger.
type DB struct {
	GormDB *gorm.DB
	log    *logger.Logger
	cfg    Config
	closed bool
	mu     sync.Mutex
}

// Open connects using the dialector for cfg.Driver.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()
	dialector, err := Dialector(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return NewWithContext(ctx, dialector, cfg, log)
}

// NewWithContext opens a connection through dialector, retrying with
// backoff until cfg.MaxRetries attempts are used or ctx ends.
func NewWithContext(ctx context.Context, dialector gorm.Dialector, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Get("database")
	}

	slowThreshold, _ := time.ParseDuration(cfg.SlowQueryThreshold)
	gormCfg := &gorm.Config{
		Logger: newGormLogger(log, slowThreshold, parseLogLevel(cfg.LogLevel)),
	}

	retry := resilience.RetryConfig{
		MaxAttempts:    cfg.MaxRetries,
		InitialBackoff: time.Second,
		MaxBackoff:     10 * time.Second,
		BackoffFactor:  2,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			log.Warn("Database connection attempt failed, retrying", logger.Fields(
				logger.FieldAttempt, attempt,
				logger.FieldError, err.Error(),
				logger.FieldBackoff, backoff.String(),
			))
		},
	}

	db, err := resilience.Retry(ctx, retry, func() (*gorm.DB, error) {
		db, err := gorm.Open(dialector, gormCfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		return db, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", cfg.MaxRetries, err)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	if lifetime, parseErr := time.ParseDuration(cfg.ConnMaxLifetime); parseErr == nil {
		sqlDB.SetConnMaxLifetime(lifetime)
	}
	if idleTime, parseErr := time.ParseDuration(cfg.ConnMaxIdleTime); parseErr == nil {
		sqlDB.SetConnMaxIdleTime(idleTime)
	}

	log.Info("Database connection established", logger.Fields("driver", cfg.Driver))
	return &DB{GormDB: db, log: log, cfg: cfg}, nil
}

// QueryScalarCount runs query and scans its single numeric column. Errors
// come back as QUERY_FAILED AppErrors.
func (d *DB) QueryScalarCount(ctx context.Context, query string) (int64, error) {
	if timeout := d.cfg.queryTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var count int64
	if err := d.GormDB.WithContext(ctx).Raw(query).Scan(&count).Error; err != nil {
		return 0, FromDatabase(err)
	}
	return count, nil
}

// Close closes the underlying pool. Safe to call multiple times.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	d.log.Info("Closing database connection")
	d.closed = true
	return sqlDB.Close()
}

// PingContext verifies the connection is alive.
func (d *DB) PingContext(ctx context.Context) error {
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// WithContext returns a gorm session scoped to ctx.
func (d *DB) WithContext(ctx context.Context) *gorm.DB {
	return d.GormDB.WithContext(ctx)
}

// AutoMigrate runs gorm auto-migration for the given models.
func (d *DB) AutoMigrate(models ...interface{}) error {
	d.log.Info("Running auto-migration", logger.Fields("models", len(models)))
	for _, model := range models {
		if err := d.GormDB.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}
	return nil
}

// HealthStatus reports connectivity and pool usage.
type HealthStatus struct {
	Connected  bool          `json:"connected"`
	Error      string        `json:"error,omitempty"`
	Latency    time.Duration `json:"latency"`
	OpenConns  int           `json:"open_connections"`
	InUseConns int           `json:"in_use_connections"`
	IdleConns  int           `json:"idle_connections"`
}

// CheckHealth pings the database and reports pool statistics.
func (d *DB) CheckHealth(ctx context.Context) HealthStatus {
	start := time.Now()

	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return HealthStatus{Error: err.Error(), Latency: time.Since(start)}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return HealthStatus{Error: err.Error(), Latency: time.Since(start)}
	}

	stats := sqlDB.Stats()
	return HealthStatus{
		Connected:  true,
		Latency:    time.Since(start),
		OpenConns:  stats.OpenConnections,
		InUseConns: stats.InUse,
		IdleConns:  stats.Idle,
	}
}
