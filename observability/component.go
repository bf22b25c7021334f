package observability

import (
	"context"
	stderrors "errors"
	"fmt"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tienminhktvn/dataops-project/component"
	"github.com/tienminhktvn/dataops-project/logger"
)

// Component installs the OTLP providers on Start and flushes them on Stop.
// Instruments created from Meter() and Tracer() before Start are picked up
// by the global providers once installed.
type Component struct {
	cfg Config
	svc ServiceInfo
	log *logger.Logger

	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent returns the observability component.
func NewComponent(cfg Config, svc ServiceInfo, log *logger.Logger) *Component {
	if log == nil {
		log = logger.Get("observability")
	}
	return &Component{cfg: cfg, svc: svc, log: log.WithComponent("observability")}
}

func (c *Component) Name() string { return "observability" }

func (c *Component) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}
	tp, err := InitTracer(ctx, c.cfg, c.svc)
	if err != nil {
		return err
	}
	mp, err := InitMeter(ctx, c.cfg, c.svc)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return err
	}
	c.tp, c.mp = tp, mp
	c.log.Info("telemetry exporting", logger.Fields(
		"endpoint", c.cfg.Endpoint,
		"sample_rate", c.cfg.SampleRate,
		"interval", c.cfg.Interval.String(),
	))
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	var errs []error
	if c.mp != nil {
		if err := c.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
	}
	if c.tp != nil {
		if err := c.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	return stderrors.Join(errs...)
}

func (c *Component) Health(_ context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if !c.cfg.Enabled {
		h.Message = "disabled"
	}
	return h
}

func (c *Component) Describe() component.Description {
	details := "disabled"
	if c.cfg.Enabled {
		details = "otlp http " + c.cfg.Endpoint
	}
	return component.Description{Name: "Telemetry", Type: "observability", Details: details}
}
