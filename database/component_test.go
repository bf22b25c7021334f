package database

import (
	"context"
	"testing"

	"github.com/tienminhktvn/dataops-project/component"
	"github.com/tienminhktvn/dataops-project/logger"
)

func TestComponent_Lifecycle(t *testing.T) {
	cfg := Config{Enabled: true, Driver: DriverSQLite, DSN: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1, AutoMigrate: true}
	comp := NewComponent(cfg, logger.Nop())
	ctx := context.Background()

	var _ component.Component = comp
	if comp.Name() != "database" {
		t.Errorf("Name() = %q", comp.Name())
	}
	if h := comp.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before start, got %s", h.Status)
	}
	if _, err := comp.QueryScalarCount(ctx, "SELECT 1"); err == nil {
		t.Error("expected error before start")
	}

	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if h := comp.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy, got %+v", h)
	}
	if !comp.DB().GormDB.Migrator().HasTable(&RunRecord{}) {
		t.Error("run table should have been migrated")
	}
	n, err := comp.QueryScalarCount(ctx, "SELECT 42")
	if err != nil || n != 42 {
		t.Errorf("QueryScalarCount = %d, %v", n, err)
	}

	if err := comp.Stop(ctx); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
}

func TestComponent_Describe(t *testing.T) {
	comp := NewComponent(Config{Driver: DriverMySQL, AutoMigrate: true}, logger.Nop())
	d := comp.Describe()
	if d.Type != "database" || d.Details != "driver=mysql pool=5/2 auto-migrate=on" {
		t.Errorf("unexpected description %+v", d)
	}
}
