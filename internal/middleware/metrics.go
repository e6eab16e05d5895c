package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts failed Redis commands by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "footballsocial_redis_errors_total",
		Help: "Total number of failed Redis commands",
	}, []string{"command"})

	// ActiveWebSockets is the number of open view sessions.
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "footballsocial_active_websockets",
		Help: "Number of open websocket view sessions",
	})

	// RateLimited counts requests rejected by the write rate limiter.
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "footballsocial_rate_limited_total",
		Help: "Total number of writes rejected by the rate limiter",
	}, []string{"resource"})
)

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// InitMetrics builds the fiberprometheus collector for the given service. The
// collector registers with the default registry, so later calls return the
// first one.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New(serviceName)
	})
	return prom
}

// MetricsMiddleware records request metrics through prom.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
