// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hitoshi/podclub/internal/auth"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやゲートウェイ層から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordGatewayError(code string)
	RecordCommentPosted()
	RecordEpisodesImported(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus       *prometheus.CounterVec
	requestLatency   prometheus.Histogram
	gatewayErrors    *prometheus.CounterVec
	signIns          prometheus.Counter
	signOuts         prometheus.Counter
	commentsPosted   prometheus.Counter
	episodesImported prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "podclub_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "podclub_request_latency_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		gatewayErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "podclub_gateway_errors_total",
			Help: "エラーコード別のゲートウェイエラー数",
		}, []string{"code"}),
		signIns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "podclub_sign_ins_total",
			Help: "サインイン成功の合計数",
		}),
		signOuts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "podclub_sign_outs_total",
			Help: "サインアウトの合計数",
		}),
		commentsPosted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "podclub_comments_posted_total",
			Help: "投稿されたコメントの合計数",
		}),
		episodesImported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "podclub_episodes_imported_total",
			Help: "RSSインポートで取り込まれたエピソードの合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.gatewayErrors,
		c.signIns,
		c.signOuts,
		c.commentsPosted,
		c.episodesImported,
	)

	return c
}

// ObserveAuthEvents はセッション変化通知を購読し、サインイン/サインアウトを計数する。
// 返り値は購読解除関数。
func (c *Collector) ObserveAuthEvents(notifier *auth.Notifier) func() {
	return notifier.Subscribe(func(event auth.Event) {
		switch event.Type {
		case auth.EventSignedIn:
			c.signIns.Inc()
		case auth.EventSignedOut:
			c.signOuts.Inc()
		}
	})
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordGatewayError はエラーコード別のゲートウェイエラーを記録する。
func (c *Collector) RecordGatewayError(code string) {
	c.gatewayErrors.WithLabelValues(code).Inc()
}

// RecordCommentPosted はコメント投稿を記録する。
func (c *Collector) RecordCommentPosted() {
	c.commentsPosted.Inc()
}

// RecordEpisodesImported は取り込まれたエピソード数を記録する。
func (c *Collector) RecordEpisodesImported(count int) {
	c.episodesImported.Add(float64(count))
}

// SetupMetricsRoute は/metricsエンドポイントのハンドラーを返す。
func SetupMetricsRoute(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Middleware はHTTPステータスとレイテンシを記録するミドルウェアを返す。
func (c *Collector) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rec, r)

			c.RecordHTTPStatus(rec.statusCode)
			c.RecordRequestLatency(time.Since(start))
		})
	}
}

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}
