package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// PlanMutations 计划变更次数，op 为 generate/update_task/regenerate/add_topics
	PlanMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyplan_plan_mutations_total",
			Help: "Plan mutations by operation and result",
		},
		[]string{"op", "result"},
	)

	PlanBuildDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studyplan_plan_build_duration_seconds",
			Help:    "Time spent scheduling plan tasks",
			Buckets: []float64{0.005, 0.02, 0.1, 0.5, 2},
		},
		[]string{"op"},
	)

	LedgerEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyplan_ledger_entries_total",
			Help: "Ledger entries appended by kind",
		},
		[]string{"kind"},
	)

	RemindersEvaluated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyplan_reminders_evaluated_total",
			Help: "Reminder evaluations by outcome reason",
		},
		[]string{"reason", "sent"},
	)

	LeaseConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "studyplan_lease_conflicts_total",
			Help: "Plan mutations rejected because the student's lease was held",
		},
	)

	// HeatmapFallbacks 热力图计算失败、按主题等权排程的次数
	HeatmapFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "studyplan_heatmap_fallbacks_total",
			Help: "Plan schedules built without a heatmap because it could not be computed",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(PlanMutations)
	prometheus.MustRegister(PlanBuildDuration)
	prometheus.MustRegister(LedgerEntries)
	prometheus.MustRegister(RemindersEvaluated)
	prometheus.MustRegister(LeaseConflicts)
	prometheus.MustRegister(HeatmapFallbacks)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

// ObservePlanBuild 记录一次排程耗时
func ObservePlanBuild(op string, start time.Time) {
	PlanBuildDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
