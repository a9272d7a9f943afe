// internal/metrics/server.go
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/tamzrod/health-watchdog/internal/watchdog"
)

// ModuleReport is one module in the /healthz body.
type ModuleReport struct {
	Module              string    `json:"module"`
	Status              string    `json:"status"`
	Message             string    `json:"message,omitempty"`
	ConsecutiveFailures uint32    `json:"consecutive_failures"`
	TotalFailures       uint32    `json:"total_failures"`
	LastAction          string    `json:"last_action"`
	LastCheck           time.Time `json:"last_check"`
	Recoverable         bool      `json:"recoverable"`
}

// HealthReport is the /healthz body.
type HealthReport struct {
	Status          string         `json:"status"` // healthy, unhealthy or starting
	System          string         `json:"system,omitempty"`
	Fed             bool           `json:"fed"`
	FeedCount       uint64         `json:"feed_count"`
	Ticks           uint64         `json:"ticks"`
	RebootRequested bool           `json:"reboot_requested"`
	Modules         []ModuleReport `json:"modules,omitempty"`

	// HardwareTimeoutMs is the device timeout; 0 without a device or when
	// the driver does not report it.
	HardwareTimeoutMs int64 `json:"hardware_timeout_ms"`
}

// Report builds the /healthz body from a snapshot.
func Report(s watchdog.Snapshot, ready bool, hwTimeout time.Duration) HealthReport {
	if !ready {
		return HealthReport{Status: "starting", HardwareTimeoutMs: hwTimeout.Milliseconds()}
	}

	r := HealthReport{
		Status:            "healthy",
		System:            s.System.String(),
		Fed:               s.Fed,
		FeedCount:         s.FeedCount,
		Ticks:             s.Ticks,
		RebootRequested:   s.RebootRequested,
		HardwareTimeoutMs: hwTimeout.Milliseconds(),
	}
	if !s.Healthy() {
		r.Status = "unhealthy"
	}
	for _, m := range s.Modules {
		r.Modules = append(r.Modules, ModuleReport{
			Module:              m.ID.String(),
			Status:              m.Status.String(),
			Message:             m.Message,
			ConsecutiveFailures: m.ConsecutiveFailures,
			TotalFailures:       m.TotalFailures,
			LastAction:          m.LastAction.String(),
			LastCheck:           m.LastCheck,
			Recoverable:         m.HasRecoverer,
		})
	}
	return r
}

// HealthHandler serves the latest snapshot; 503 unless healthy.
func (c *Collector) HealthHandler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		snap, ready := c.Latest()
		report := Report(snap, ready, c.HardwareTimeout())

		code := http.StatusOK
		if report.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		ctx.JSON(code, report)
	}
}

// Handler returns the Prometheus metrics HTTP handler for the private registry.
func (c *Collector) Handler() gin.HandlerFunc {
	handler := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
	return func(ctx *gin.Context) {
		handler.ServeHTTP(ctx.Writer, ctx.Request)
	}
}

// Router wires /metrics and /healthz.
func (c *Collector) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/metrics", c.Handler())
	r.GET("/healthz", c.HealthHandler())
	return r
}

// Serve runs the HTTP server until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, listen string, log logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           c.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("listen", listen).Info("metrics: serving /metrics and /healthz")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
