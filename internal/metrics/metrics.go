// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 関数呼び出し結果のラベル値
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// MetricsCollector はメトリクス収集のインターフェース。
// トリガー層やサービス層から利用する。
type MetricsCollector interface {
	RecordInvocation(function string, result string, duration time.Duration)
	RecordDeduplicated()
	RecordImagesDeleted(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	invocations   *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	deduplicated  prometheus.Counter
	imagesDeleted prometheus.Counter
}

var _ MetricsCollector = (*Collector)(nil)

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_function_invocations_total",
			Help: "関数呼び出しの結果別の合計数",
		}, []string{"function", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backoffice_function_duration_seconds",
			Help:    "関数の処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"function"}),
		deduplicated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backoffice_events_deduplicated_total",
			Help: "重複配信として処理をスキップしたイベントの合計数",
		}),
		imagesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backoffice_images_deleted_total",
			Help: "削除した画像オブジェクトの合計数",
		}),
	}

	reg.MustRegister(
		c.invocations,
		c.duration,
		c.deduplicated,
		c.imagesDeleted,
	)

	return c
}

// RecordInvocation は関数呼び出しの結果と処理時間を記録する。
func (c *Collector) RecordInvocation(function string, result string, duration time.Duration) {
	c.invocations.WithLabelValues(function, result).Inc()
	c.duration.WithLabelValues(function).Observe(duration.Seconds())
}

// RecordDeduplicated は重複配信のスキップを記録する。
func (c *Collector) RecordDeduplicated() {
	c.deduplicated.Inc()
}

// RecordImagesDeleted は削除した画像数を記録する。
func (c *Collector) RecordImagesDeleted(count int) {
	c.imagesDeleted.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
