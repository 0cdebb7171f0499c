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
// 検索サービスとRedditクライアントから利用する。
type MetricsCollector interface {
	RecordSearch()
	RecordSearchFailure()
	RecordPostsClassified(count int)
	RecordQuestionsFound(count int)
	RecordRedditStatus(statusCode int)
	RecordRedditLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	searchTotal     prometheus.Counter
	searchFail      prometheus.Counter
	postsClassified prometheus.Counter
	questionsFound  prometheus.Counter
	redditStatus    *prometheus.CounterVec
	redditLatency   prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		searchTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "askman_search_total",
			Help: "検索実行の合計数",
		}),
		searchFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "askman_search_fail_total",
			Help: "検索実行失敗の合計数",
		}),
		postsClassified: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "askman_posts_classified_total",
			Help: "分類パイプラインを通過した投稿の合計数",
		}),
		questionsFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "askman_questions_found_total",
			Help: "未回答と分類された質問の合計数",
		}),
		redditStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "askman_reddit_http_status_total",
			Help: "Reddit APIのHTTPステータスコード別レスポンス数",
		}, []string{"status_code"}),
		redditLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "askman_reddit_latency_seconds",
			Help:    "Reddit API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.searchTotal,
		c.searchFail,
		c.postsClassified,
		c.questionsFound,
		c.redditStatus,
		c.redditLatency,
	)

	return c
}

// RecordSearch は検索実行を記録する。
func (c *Collector) RecordSearch() {
	c.searchTotal.Inc()
}

// RecordSearchFailure は検索実行の失敗を記録する。
func (c *Collector) RecordSearchFailure() {
	c.searchFail.Inc()
}

// RecordPostsClassified は分類した投稿数を記録する。
func (c *Collector) RecordPostsClassified(count int) {
	c.postsClassified.Add(float64(count))
}

// RecordQuestionsFound は発見した未回答質問数を記録する。
func (c *Collector) RecordQuestionsFound(count int) {
	c.questionsFound.Add(float64(count))
}

// RecordRedditStatus はReddit APIのHTTPステータスコードを記録する。
func (c *Collector) RecordRedditStatus(statusCode int) {
	c.redditStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRedditLatency はReddit API呼び出しのレイテンシを記録する。
func (c *Collector) RecordRedditLatency(duration time.Duration) {
	c.redditLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
// ルーターが/metricsパスにマウントする。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
