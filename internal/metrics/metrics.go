// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hitoshi/think/internal/graph"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	thoughtSaves      *prometheus.CounterVec
	graphChanges      *prometheus.CounterVec
	integrityFailures *prometheus.CounterVec
	sessionsSwept     prometheus.Counter
	httpStatus        *prometheus.CounterVec
	httpLatency       prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		thoughtSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "think_thought_saves_total",
			Help: "Thought保存の成功数（create/update別）",
		}, []string{"operation"}),
		graphChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "think_graph_changes_total",
			Help: "保存で書き込まれたNode/Connectionの変更数",
		}, []string{"change"}),
		integrityFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "think_integrity_failures_total",
			Help: "参照整合性エラーで中止された保存の数",
		}, []string{"operation"}),
		sessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "think_sessions_swept_total",
			Help: "期限切れで削除されたセッションの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "think_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "think_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.thoughtSaves,
		c.graphChanges,
		c.integrityFailures,
		c.sessionsSwept,
		c.httpStatus,
		c.httpLatency,
	)

	return c
}

// RecordThoughtSave は保存の成功と変更件数を記録する。
func (c *Collector) RecordThoughtSave(operation string, stats graph.Stats) {
	c.thoughtSaves.WithLabelValues(operation).Inc()
	c.graphChanges.WithLabelValues("nodes_created").Add(float64(stats.NodesCreated))
	c.graphChanges.WithLabelValues("nodes_updated").Add(float64(stats.NodesUpdated))
	c.graphChanges.WithLabelValues("nodes_deleted").Add(float64(stats.NodesDeleted))
	c.graphChanges.WithLabelValues("connections_created").Add(float64(stats.ConnectionsCreated))
	c.graphChanges.WithLabelValues("connections_deleted").Add(float64(stats.ConnectionsDeleted))
}

// RecordIntegrityFailure は参照整合性エラーを記録する。
func (c *Collector) RecordIntegrityFailure(operation string) {
	c.integrityFailures.WithLabelValues(operation).Inc()
}

// RecordSessionsSwept は削除したセッション数を記録する。
func (c *Collector) RecordSessionsSwept(count int64) {
	c.sessionsSwept.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordHTTPLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordHTTPLatency(duration time.Duration) {
	c.httpLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// ワーカープロセスが単独でメトリクスを公開する際に使う。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
