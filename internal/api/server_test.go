package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verbetes/verbete-server/internal/auth"
	"github.com/verbetes/verbete-server/internal/domain"
	"github.com/verbetes/verbete-server/internal/ratelimit"
	"github.com/verbetes/verbete-server/internal/search"
	"github.com/verbetes/verbete-server/internal/service"
	"github.com/verbetes/verbete-server/internal/store/sqlite"
)

var (
	fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	alice    = domain.Principal{UserID: "user-alice", Name: "Alice", Role: domain.RoleAuthor}
	bob      = domain.Principal{UserID: "user-bob", Name: "Bob", Role: domain.RoleAuthor}
	reviewer = domain.Principal{UserID: "user-rev", Name: "Rita", Role: domain.RoleReviewer}
)

// testEnvelope mirrors the response envelope with typed data.
type testEnvelope[T any] struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Error     string            `json:"error"`
	Timestamp string            `json:"timestamp"`
	Data      T                 `json:"data"`
	Details   map[string]string `json:"details"`
}

// testServer wraps the API server for handler tests.
type testServer struct {
	*Server
	api     humatest.TestAPI
	store   *sqlite.Store
	tokens  *auth.TokenService
	dataDir string
}

// setupTestServer wires the real services over a temporary sqlite store
// and an in-memory search index.
func setupTestServer(t *testing.T, configure ...func(*Options)) *testServer {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "verbete-api-test-*")
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)

	st, err := sqlite.Open(filepath.Join(tmpDir, "test.db"), logger)
	require.NoError(t, err)

	idx, err := search.New(search.Options{Logger: logger})
	require.NoError(t, err)

	key, err := auth.LoadOrGenerateKey(tmpDir)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, 15*time.Minute)
	require.NoError(t, err)

	services := &Services{
		Submissions: service.NewSubmissionService(st, idx, nil, logger),
		Catalog:     service.NewCatalogService(st, idx, nil, logger),
		Fixer: service.NewContentFixer(st, service.FixerOptions{
			LockPath: filepath.Join(tmpDir, "fix-content.lock"),
		}, logger),
	}

	opts := Options{
		CORSOrigins: []string{"http://localhost:3000"},
		Now:         func() time.Time { return fixedNow },
	}
	for _, fn := range configure {
		fn(&opts)
	}

	s := NewServer(services, tokens, opts, logger)

	t.Cleanup(func() {
		if opts.RateLimiter != nil {
			opts.RateLimiter.Stop()
		}
		_ = idx.Close()
		_ = st.Close()
		_ = os.RemoveAll(tmpDir)
	})

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.API()),
		store:   st,
		tokens:  tokens,
		dataDir: tmpDir,
	}
}

// authHeader issues a token for p in humatest header form.
func (ts *testServer) authHeader(t *testing.T, p domain.Principal) string {
	t.Helper()
	token, err := ts.tokens.GenerateAccessToken(p)
	require.NoError(t, err)
	return "Authorization: Bearer " + token
}

func decodeEnvelope[T any](t *testing.T, resp *httptest.ResponseRecorder) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), "body: %s", resp.Body.String())
	return env
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decodeEnvelope[HealthResponse](t, resp)
	assert.True(t, env.Success)
	assert.Equal(t, "2024-03-01T12:00:00Z", env.Timestamp)
	assert.Equal(t, statusHealthy, env.Data.Components["database"].Status)
	assert.Equal(t, statusDegraded, env.Data.Components["search"].Status, "fresh index is empty")
	assert.Equal(t, statusDegraded, env.Data.Status)
}

func TestUnknownRoute(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/nope")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	env := decodeEnvelope[any](t, resp)
	assert.False(t, env.Success)
	assert.Equal(t, "Route not found", env.Error)
}

func TestRateLimit(t *testing.T) {
	ts := setupTestServer(t, func(o *Options) {
		o.RateLimiter = ratelimit.New(0.001, 1)
	})

	first := ts.api.Get("/health")
	assert.Equal(t, http.StatusOK, first.Code)

	second := ts.api.Get("/health")
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))

	env := decodeEnvelope[any](t, second)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "Too many requests")
}

func TestCORSPreflight(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Do(http.MethodOptions, "/articles",
		"Origin: http://localhost:3000",
		"Access-Control-Request-Method: GET",
	)
	assert.Equal(t, "http://localhost:3000", resp.Header().Get("Access-Control-Allow-Origin"))

	resp = ts.api.Do(http.MethodOptions, "/articles",
		"Origin: https://elsewhere.example",
		"Access-Control-Request-Method: GET",
	)
	assert.Empty(t, resp.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	ts.api.Get("/health")
	resp := ts.api.Get("/metrics")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "verbete_http_requests_total")
}

func TestOpenAPIDocument(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/openapi.json")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "/person-articles")
	assert.Contains(t, resp.Body.String(), "PASETO")
}
