package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qinglingtaxue/youtube--sub001/pkg/algorithms"
	"github.com/qinglingtaxue/youtube--sub001/pkg/analysis"
	"github.com/qinglingtaxue/youtube--sub001/pkg/analytics"
	"github.com/qinglingtaxue/youtube--sub001/pkg/auth"
	"github.com/qinglingtaxue/youtube--sub001/pkg/health"
	"github.com/qinglingtaxue/youtube--sub001/pkg/metrics"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
	"github.com/qinglingtaxue/youtube--sub001/pkg/report"
	"github.com/qinglingtaxue/youtube--sub001/pkg/source"
)

const testSecret = "test-secret-that-is-at-least-32-characters"

var asOf = time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

func vid(id, channel string, views float64, kws ...string) records.ContentRecord {
	return records.ContentRecord{
		ID: id, Kind: records.KindVideo, ChannelID: channel, Keywords: kws,
		PublishedAt: asOf.Add(-48 * time.Hour),
		Metrics:     map[string]float64{records.MetricViews: views},
	}
}

func corpus() []records.ContentRecord {
	return []records.ContentRecord{
		{ID: "UC1", Kind: records.KindChannel, Title: "Big"},
		{ID: "UC2", Kind: records.KindChannel, Title: "Small"},
		{ID: "go", Kind: records.KindKeyword, Metrics: map[string]float64{records.MetricSearchVolume: 5000}},
		vid("v1", "UC1", 9000, "go", "graphs"),
		vid("v2", "UC1", 7000, "go", "graphs"),
		vid("v3", "UC1", 6000, "go", "concurrency"),
		vid("v4", "UC2", 300, "graphs", "rust"),
		vid("v5", "UC2", 200, "rust", "wasm"),
	}
}

func newService(t *testing.T) *analytics.Service {
	t.Helper()
	src := source.NewMemory(corpus(), source.WithClock(func() time.Time { return asOf }))
	engine := algorithms.NewEngine(algorithms.DefaultConfig())
	synth := report.NewSynthesizer(report.Config{ModuleTimeout: 2 * time.Second}, analysis.Default(analysis.Config{}))
	return analytics.New(src, engine, synth, analytics.Options{DefaultWindow: records.Window30d})
}

func newTestServer(t *testing.T, svc Service, cfg Config, opts ...Option) http.Handler {
	t.Helper()
	s, err := NewServer(svc, cfg, opts...)
	require.NoError(t, err)
	return s.Handler()
}

func do(t *testing.T, h http.Handler, method, path, token string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e), rr.Body.String())
	return e
}

func TestRankingsEndpoint(t *testing.T) {
	h := newTestServer(t, newService(t), Config{})

	rr := do(t, h, http.MethodGet, "/api/v1/rankings?dimension=video&rankingKey=betweenness&limit=2&offset=1", "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	var got analytics.Ranking
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, records.Window30d, got.Window)
	assert.Equal(t, 5, got.Total)
	require.Len(t, got.Items, 2)
	assert.Equal(t, 2, got.Items[0].Rank)
	assert.Equal(t, records.KindVideo, got.Items[0].Kind)
	assert.NotEmpty(t, got.Fingerprint)
}

func TestRankingsEndpoint_InvalidParams(t *testing.T) {
	h := newTestServer(t, newService(t), Config{})

	for _, path := range []string{
		"/api/v1/rankings?limit=abc",
		"/api/v1/rankings?window=1y",
		"/api/v1/rankings?rankingKey=views",
		"/api/v1/rankings?dimension=playlist",
	} {
		rr := do(t, h, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, path)
		e := decodeError(t, rr)
		assert.Equal(t, "INVALID_REQUEST", e.Code, path)
		assert.Equal(t, "Bad Request", e.Error, path)
		assert.NotEmpty(t, e.Message, path)
	}
}

func TestQuadrantsEndpoint(t *testing.T) {
	h := newTestServer(t, newService(t), Config{})

	rr := do(t, h, http.MethodGet, "/api/v1/quadrants?dimension=keyword&window=all", "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var got struct {
		Window    string                    `json:"window"`
		Dimension string                    `json:"dimension"`
		Total     int                       `json:"total"`
		Quadrants map[string]map[string]any `json:"quadrants"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "all", got.Window)
	assert.Equal(t, "keyword", got.Dimension)
	assert.Len(t, got.Quadrants, 4)
	assert.Equal(t, 5, got.Total)

	rr = do(t, h, http.MethodGet, "/api/v1/quadrants", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReportEndpoint(t *testing.T) {
	h := newTestServer(t, newService(t), Config{})

	rr := do(t, h, http.MethodGet, "/api/v1/report?channelId=UC2", "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var rep report.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rep))
	assert.NotEmpty(t, rep.ID)
	assert.Equal(t, "channel:UC2", rep.Research.Scope.Focus)
	assert.Equal(t, records.Window30d, rep.Research.Scope.Window)

	rr = do(t, h, http.MethodGet, "/api/v1/report?videoId=missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rr).Code)

	rr = do(t, h, http.MethodGet, "/api/v1/report?videoId=v1&channelId=UC1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestInvalidateEndpoint(t *testing.T) {
	h := newTestServer(t, newService(t), Config{})

	rr := do(t, h, http.MethodGet, "/api/v1/rankings", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/v1/snapshots/30D/invalidate", "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got InvalidateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "30d", got.Window)
	assert.Equal(t, 2, got.Dropped)

	rr = do(t, h, http.MethodPost, "/api/v1/snapshots/*/invalidate", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "*", got.Window)
	assert.Equal(t, 0, got.Dropped)

	rr = do(t, h, http.MethodPost, "/api/v1/snapshots/1y/invalidate", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/v1/snapshots/30d/invalidate", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestAuthentication(t *testing.T) {
	jwtm, err := auth.NewJWTManager(testSecret, "opportunityd", time.Hour)
	require.NoError(t, err)
	viewer, err := jwtm.GenerateToken("alice", auth.RoleViewer)
	require.NoError(t, err)
	admin, err := jwtm.GenerateToken("ops", auth.RoleAdmin)
	require.NoError(t, err)

	hc := health.NewHealthChecker()
	hc.RegisterReadinessCheck("source", health.SimpleCheck("source"))
	h := newTestServer(t, newService(t), Config{}, WithAuth(jwtm), WithHealth(hc))

	rr := do(t, h, http.MethodGet, "/api/v1/rankings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, rr).Code)
	assert.Contains(t, rr.Header().Get("WWW-Authenticate"), "Bearer")

	rr = do(t, h, http.MethodGet, "/api/v1/rankings", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/v1/rankings", viewer, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/v1/snapshots/30d/invalidate", viewer, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/v1/snapshots/30d/invalidate", admin, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodPost, "/graphql", "", strings.NewReader(`{"query":"{ health }"}`))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	for _, path := range []string{"/health", "/health/live", "/health/ready", "/version"} {
		rr = do(t, h, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestRateLimiting(t *testing.T) {
	h := newTestServer(t, newService(t), Config{RateLimit: 1, RateBurst: 1})

	rr := do(t, h, http.MethodGet, "/api/v1/rankings", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/v1/rankings", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, rr).Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}

func TestGraphQLEndpoint(t *testing.T) {
	h := newTestServer(t, newService(t), Config{})

	body := `{"query":"{ ranking(dimension: \"channel\") { total items { nodeId } } }"}`
	rr := do(t, h, http.MethodPost, "/graphql", "", strings.NewReader(body))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var got struct {
		Data struct {
			Ranking struct {
				Total int `json:"total"`
				Items []struct {
					NodeID string `json:"nodeId"`
				} `json:"items"`
			} `json:"ranking"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Empty(t, got.Errors)
	assert.Equal(t, 2, got.Data.Ranking.Total)
	require.Len(t, got.Data.Ranking.Items, 2)
	assert.True(t, strings.HasPrefix(got.Data.Ranking.Items[0].NodeID, "channel:"))
}

func TestBodySizeLimit(t *testing.T) {
	h := newTestServer(t, newService(t), Config{MaxBodyBytes: 16})

	rr := do(t, h, http.MethodPost, "/graphql", "", strings.NewReader(`{"query":"{ health }   padding"}`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := metrics.NewRegistry()
	h := newTestServer(t, newService(t), Config{}, WithMetrics(reg, reg.Handler()))

	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/rankings", "", nil).Code)

	rr := do(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `opportunity_http_requests_total{method="GET",path="/api/v1/rankings",status="200"} 1`)
}

func TestNotFound(t *testing.T) {
	h := newTestServer(t, newService(t), Config{})

	rr := do(t, h, http.MethodGet, "/api/v2/nothing", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rr).Code)
}

func TestCORS(t *testing.T) {
	h := newTestServer(t, newService(t), Config{CORSOrigins: []string{"https://app.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/rankings", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/rankings", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

type failingService struct {
	Service
	err error
}

func (f failingService) GetRanking(context.Context, analytics.RankingQuery) (*analytics.Ranking, error) {
	return nil, f.err
}

func TestServiceErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"internal is sanitized", errors.New("open /var/data/secret.json: permission denied"), http.StatusInternalServerError, "INTERNAL", "ranking failed"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "COMPUTATION_TIMEOUT", context.DeadlineExceeded.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, failingService{Service: newService(t), err: tt.err}, Config{})
			rr := do(t, h, http.MethodGet, "/api/v1/rankings", "", nil)
			assert.Equal(t, tt.status, rr.Code)
			e := decodeError(t, rr)
			assert.Equal(t, tt.code, e.Code)
			assert.Equal(t, tt.message, e.Message)
		})
	}
}
