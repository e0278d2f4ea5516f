package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"
	"github.com/lvdashuaibi/littlerank/config"
	"github.com/lvdashuaibi/littlerank/internal/api/graph"
	"github.com/lvdashuaibi/littlerank/internal/metrics"
	"github.com/lvdashuaibi/littlerank/internal/repository"
	"github.com/lvdashuaibi/littlerank/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := repository.NewRedisRepositoryWithClient(client)
	reg := metrics.NewRegistry()
	svc := service.NewArticleService(store,
		clockwork.NewFakeClockAt(time.Unix(1000, 0)),
		config.DefaultRanking(),
		service.WithRecorder(metrics.New(reg)),
	)

	return NewRouter(Dependencies{
		Service:     svc,
		GraphQL:     graph.NewGraphQLServer(svc),
		GraphQLPath: "/graphql",
		Metrics:     metrics.Handler(reg),
		Store:       store,
	})
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestArticleLifecycle(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/articles", `{"author":"alice","title":"Go","link":"https://go.dev"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"1"}`, rec.Body.String())

	rec = do(t, r, http.MethodPost, "/articles/1/votes", `{"user":"bob"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"outcome":"accepted"}`, rec.Body.String())

	rec = do(t, r, http.MethodPost, "/articles/1/votes", `{"user":"bob"}`)
	assert.JSONEq(t, `{"outcome":"already_voted"}`, rec.Body.String())

	rec = do(t, r, http.MethodGet, "/articles/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"1","title":"Go","link":"https://go.dev","author":"alice","createdAt":1000,"voteCount":2}`, rec.Body.String())

	rec = do(t, r, http.MethodPost, "/articles/1/groups", `{"groups":["programming"]}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, r, http.MethodGet, "/groups/programming/articles?order=time", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Articles []struct {
			ID string `json:"id"`
		} `json:"articles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Articles, 1)
	assert.Equal(t, "1", list.Articles[0].ID)

	rec = do(t, r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `littlerank_votes_total{outcome="accepted"} 1`)
}

func TestErrorMapping(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown article", http.MethodGet, "/articles/99", "", http.StatusNotFound},
		{"malformed id", http.MethodGet, "/articles/abc", "", http.StatusNotFound},
		{"missing fields", http.MethodPost, "/articles", `{"author":"alice"}`, http.StatusBadRequest},
		{"bad order", http.MethodGet, "/articles?order=random", "", http.StatusBadRequest},
		{"bad page", http.MethodGet, "/articles?page=x", "", http.StatusBadRequest},
		{"group unknown article", http.MethodPost, "/articles/7/groups", `{"groups":["a"]}`, http.StatusNotFound},
		{"empty group list", http.MethodPost, "/articles/7/groups", `{"groups":[]}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestVoteUnknownArticle(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/articles/nonexistent-id/votes", `{"user":"x"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"outcome":"not_found"}`, rec.Body.String())
}

func TestListPagination(t *testing.T) {
	r := newTestRouter(t)
	for i := 0; i < 30; i++ {
		rec := do(t, r, http.MethodPost, "/articles", `{"author":"a","title":"t","link":"l"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	for page, want := range map[string]int{"1": 25, "2": 5, "3": 0} {
		rec := do(t, r, http.MethodGet, "/articles?page="+page, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var list struct {
			Articles []json.RawMessage `json:"articles"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		assert.Len(t, list.Articles, want, "page %s", page)
	}
}

func TestGraphQLMounted(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/graphql", `{"query":"mutation { postArticle(author: \"a\", title: \"t\", link: \"l\") }"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"postArticle":"1"}}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	rec := do(t, NewRouter(Dependencies{Store: fakePinger{}}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, NewRouter(Dependencies{Store: fakePinger{err: errors.New("down")}}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
