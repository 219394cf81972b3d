// Package metrics exposes Prometheus instrumentation for the chat service:
// request counts and latency per route, plus member and message throughput.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts HTTP requests by route template, method and status.
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "groupchat_http_requests_total",
		Help: "Total number of HTTP requests handled",
	}, []string{"route", "method", "status"})

	// RequestLatency records handler latency in seconds.
	RequestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "groupchat_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"route"})

	// MembersRegistered counts successful registrations.
	MembersRegistered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "groupchat_members_registered_total",
		Help: "Total number of registered members",
	})

	// Logins counts login attempts, labeled by result: "ok" or "rejected".
	Logins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "groupchat_logins_total",
		Help: "Total number of login attempts",
	}, []string{"result"})

	// MessagesPosted counts messages appended to the log.
	MessagesPosted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "groupchat_messages_posted_total",
		Help: "Total number of chat messages posted",
	})
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestLatency,
		MembersRegistered,
		Logins,
		MessagesPosted,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records every request against its route template so path
// parameters do not explode label cardinality.
func Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		RequestLatency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
