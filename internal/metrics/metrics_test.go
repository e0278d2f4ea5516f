package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lvdashuaibi/littlerank/internal/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCounters(t *testing.T) {
	m := New(NewRegistry())

	m.ArticlePosted()
	m.VoteRegistered(model.VoteAccepted)
	m.VoteRegistered(model.VoteAccepted)
	m.VoteRegistered(model.VoteAlreadyVoted)
	m.GroupCacheMiss(model.OrderByScore)
	m.GroupCacheHit(model.OrderByScore)
	m.GroupCacheHit(model.OrderByScore)
	m.EventPublishFailed()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ArticlesPosted))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Votes.WithLabelValues("accepted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Votes.WithLabelValues("already_voted")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.GroupCache.WithLabelValues("score", "hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.GroupCache.WithLabelValues("score", "miss")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsFailed))
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := NewRegistry()
	m := New(reg)
	m.ArticlePosted()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "littlerank_articles_posted_total 1"))
}
