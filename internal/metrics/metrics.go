package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 提交单创建数
	submissionsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "submissions_created_total",
			Help: "Total number of form submissions created",
		},
	)

	// 工作流操作数
	workflowActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_actions_total",
			Help: "Total number of workflow actions",
		},
		[]string{"action"}, // sent, approved, rejected, cancelled, deleted
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// 提交单状态分布
	submissionsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "submissions_by_status",
			Help: "Number of submissions by status",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(submissionsCreatedTotal)
	prometheus.MustRegister(workflowActionsTotal)
	prometheus.MustRegister(databaseConnectionsActive)
	prometheus.MustRegister(databaseConnectionsIdle)
	prometheus.MustRegister(submissionsByStatus)
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, duration float64) {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("%d", status)
	}
	apiRequestsTotal.WithLabelValues(method, path, statusText).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordSubmissionCreated 记录提交单创建
func RecordSubmissionCreated() {
	submissionsCreatedTotal.Inc()
}

// RecordWorkflowAction 记录工作流操作
func RecordWorkflowAction(action string) {
	workflowActionsTotal.WithLabelValues(action).Inc()
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.OpenConnections - stats.Idle))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	return nil
}

// UpdateSubmissionsByStatus 更新提交单状态分布指标
func UpdateSubmissionsByStatus(status string, count float64) {
	submissionsByStatus.WithLabelValues(status).Set(count)
}
