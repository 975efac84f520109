// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とHTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordDiveCreated(diveType string)
	RecordAccountDeletion(outcome string)
	RecordReviewsAnonymized(count int64)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	divesCreated      *prometheus.CounterVec
	accountDeletions  *prometheus.CounterVec
	reviewsAnonymized prometheus.Counter
	httpStatus        *prometheus.CounterVec
	requestLatency    prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		divesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "divelog_dives_created_total",
			Help: "作成されたダイブ記録のダイブ種別ごとの合計数",
		}, []string{"dive_type"}),
		accountDeletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "divelog_account_deletions_total",
			Help: "アカウント削除試行の結果ごとの合計数",
		}, []string{"outcome"}),
		reviewsAnonymized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "divelog_reviews_anonymized_total",
			Help: "アカウント削除で匿名化されたレビューの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "divelog_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "divelog_request_latency_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.divesCreated,
		c.accountDeletions,
		c.reviewsAnonymized,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordDiveCreated はダイブ記録の作成を記録する。
func (c *Collector) RecordDiveCreated(diveType string) {
	c.divesCreated.WithLabelValues(diveType).Inc()
}

// RecordAccountDeletion はアカウント削除試行の結果を記録する。
// outcomeはcommitted/denied/not_found/rolled_backのいずれか。
func (c *Collector) RecordAccountDeletion(outcome string) {
	c.accountDeletions.WithLabelValues(outcome).Inc()
}

// RecordReviewsAnonymized は匿名化されたレビュー数を記録する。
func (c *Collector) RecordReviewsAnonymized(count int64) {
	c.reviewsAnonymized.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
