package database

import (
	"context"
	"fmt"

	"github.com/tienminhktvn/dataops-project/component"
	"github.com/tienminhktvn/dataops-project/logger"
)

// Component wraps DB and implements component.Component.
type Component struct {
	db  *DB
	cfg Config
	log *logger.Logger
}

// NewComponent creates a database component for the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Get("database")
	}
	return &Component{
		cfg: cfg,
		log: log.WithComponent("database"),
	}
}

// DB returns the underlying *DB, or nil if not started.
func (c *Component) DB() *DB {
	return c.db
}

// QueryScalarCount delegates to the started DB.
func (c *Component) QueryScalarCount(ctx context.Context, query string) (int64, error) {
	if c.db == nil {
		return 0, FromDatabase(fmt.Errorf("database is closed"))
	}
	return c.db.QueryScalarCount(ctx, query)
}

var _ component.Component = (*Component)(nil)

func (c *Component) Name() string { return "database" }

// Start connects and, when configured, migrates the run table.
func (c *Component) Start(ctx context.Context) error {
	db, err := Open(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("database start: %w", err)
	}
	c.db = db

	if c.cfg.AutoMigrate {
		if err := NewRunStore(db).Migrate(); err != nil {
			return fmt.Errorf("database auto-migrate: %w", err)
		}
	}
	return nil
}

func (c *Component) Stop(_ context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Component) Health(ctx context.Context) component.Health {
	if c.db == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "database not initialized"}
	}
	status := c.db.CheckHealth(ctx)
	if !status.Connected {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "ping failed: " + status.Error}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("driver=%s pool=%d/%d", c.cfg.Driver, c.cfg.MaxOpenConns, c.cfg.MaxIdleConns)
	if c.cfg.AutoMigrate {
		details += " auto-migrate=on"
	}
	return component.Description{Name: "Database", Type: "database", Details: details}
}
