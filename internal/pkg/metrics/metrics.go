package metrics

import (
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rentalcrm"

// Booking update outcomes.
const (
	UpdateChanged = "changed"
	UpdateNoop    = "noop"
	UpdateFailed  = "failed"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	bookingUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_updates_total",
			Help:      "Booking update requests by outcome.",
		},
		[]string{"result"},
	)

	bookingFieldChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_field_changes_total",
			Help:      "Tracked booking fields recorded as changed on the timeline.",
		},
		[]string{"field"},
	)
)

// Register registers the collectors with the default registry. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingUpdates, bookingFieldChanges)
	})
}

// Middleware counts requests by matched route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler exposes the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func ObserveBookingUpdate(result string) {
	bookingUpdates.WithLabelValues(result).Inc()
}

func IncFieldChange(field string) {
	bookingFieldChanges.WithLabelValues(field).Inc()
}
