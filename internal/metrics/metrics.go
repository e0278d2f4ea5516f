package metrics

import (
	"net/http"

	"github.com/lvdashuaibi/littlerank/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "littlerank"

// NewRegistry 创建带有Go运行时与进程指标的注册表
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler 返回 /metrics 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Metrics 文章与投票相关指标
type Metrics struct {
	ArticlesPosted prometheus.Counter
	Votes          *prometheus.CounterVec
	GroupCache     *prometheus.CounterVec
	EventsFailed   prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ArticlesPosted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_posted_total",
			Help:      "Total number of posted articles.",
		}),
		Votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Total number of votes, by outcome.",
		}, []string{"outcome"}),
		GroupCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "group_cache",
			Name:      "lookups_total",
			Help:      "Total number of group ranking cache lookups, by order and result.",
		}, []string{"order", "result"}),
		EventsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_publish_failed_total",
			Help:      "Total number of article events that could not be published.",
		}),
	}

	reg.MustRegister(m.ArticlesPosted, m.Votes, m.GroupCache, m.EventsFailed)
	return m
}

func (m *Metrics) ArticlePosted() {
	m.ArticlesPosted.Inc()
}

func (m *Metrics) VoteRegistered(outcome model.VoteOutcome) {
	m.Votes.WithLabelValues(outcome.String()).Inc()
}

func (m *Metrics) GroupCacheHit(order model.Order) {
	m.GroupCache.WithLabelValues(string(order), "hit").Inc()
}

func (m *Metrics) GroupCacheMiss(order model.Order) {
	m.GroupCache.WithLabelValues(string(order), "miss").Inc()
}

func (m *Metrics) EventPublishFailed() {
	m.EventsFailed.Inc()
}
