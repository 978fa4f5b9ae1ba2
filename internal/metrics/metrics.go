// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// セッション・カート・ストレージ・ストアAPIクライアントの各記録先インターフェースを満たす。
type Collector struct {
	authOutcomes   *prometheus.CounterVec
	staleResponses *prometheus.CounterVec
	apiCalls       *prometheus.CounterVec
	apiLatency     *prometheus.HistogramVec
	cartMutations  *prometheus.CounterVec
	cartItems      prometheus.Gauge
	storageFaults  *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	checkouts      prometheus.Counter
	imageProxy     *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_auth_outcomes_total",
			Help: "認証操作の結果別の回数",
		}, []string{"op", "outcome"}),
		staleResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_stale_responses_total",
			Help: "ログアウト等で破棄された古い応答の数",
		}, []string{"op"}),
		apiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_store_api_calls_total",
			Help: "ストアAPI呼び出しのメソッド・結果別の回数",
		}, []string{"method", "outcome"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_store_api_latency_seconds",
			Help:    "ストアAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "カート操作の種類別の回数",
		}, []string{"op"}),
		cartItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_cart_items",
			Help: "現在のカート内の商品数量の合計",
		}),
		storageFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_storage_faults_total",
			Help: "永続化領域の障害の操作別の回数",
		}, []string{"op"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		checkouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_checkouts_total",
			Help: "受け付けた注文の数",
		}),
		imageProxy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_image_proxy_total",
			Help: "画像プロキシの結果別の回数",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.authOutcomes,
		c.staleResponses,
		c.apiCalls,
		c.apiLatency,
		c.cartMutations,
		c.cartItems,
		c.storageFaults,
		c.httpStatus,
		c.checkouts,
		c.imageProxy,
	)

	return c
}

// RecordAuthOutcome は認証操作の結果を記録する。
func (c *Collector) RecordAuthOutcome(op, outcome string) {
	c.authOutcomes.WithLabelValues(op, outcome).Inc()
}

// RecordStaleResponse は破棄された古い応答を記録する。
func (c *Collector) RecordStaleResponse(op string) {
	c.staleResponses.WithLabelValues(op).Inc()
}

// RecordAPICall はストアAPI呼び出しの結果とレイテンシを記録する。
func (c *Collector) RecordAPICall(method, outcome string, duration time.Duration) {
	c.apiCalls.WithLabelValues(method, outcome).Inc()
	c.apiLatency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordCartMutation はカート操作を記録する。
func (c *Collector) RecordCartMutation(op string) {
	c.cartMutations.WithLabelValues(op).Inc()
}

// SetCartItems はカート内の数量合計を設定する。
func (c *Collector) SetCartItems(n int) {
	c.cartItems.Set(float64(n))
}

// RecordStorageFault は永続化領域の障害を記録する。
func (c *Collector) RecordStorageFault(op string) {
	c.storageFaults.WithLabelValues(op).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordCheckout は注文の受付を記録する。
func (c *Collector) RecordCheckout() {
	c.checkouts.Inc()
}

// RecordImageProxy は画像プロキシの結果を記録する。
func (c *Collector) RecordImageProxy(outcome string) {
	c.imageProxy.WithLabelValues(outcome).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
