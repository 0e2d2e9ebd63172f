package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ApplicationsCreated counts successful intakes by initiating role.
	ApplicationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buildfund_applications_created_total",
		Help: "Applications created, labelled by initiating role.",
	}, []string{"initiated_by"})

	// IntakeRejections counts failed intakes by taxonomy class.
	IntakeRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buildfund_application_intake_rejections_total",
		Help: "Application intake rejections, labelled by error class.",
	}, []string{"reason"})

	// ItemTransitions counts information-request item state transitions.
	ItemTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buildfund_information_item_transitions_total",
		Help: "Information request item transitions, labelled by target state.",
	}, []string{"to"})

	// DealsCreated counts deals derived from accepted applications.
	DealsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "buildfund_deals_created_total",
		Help: "Deals created from accepted applications.",
	})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "buildfund_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// RequestDuration observes per-request latency. Unmatched routes are grouped
// under "unmatched" to keep cardinality bounded.
func RequestDuration() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
