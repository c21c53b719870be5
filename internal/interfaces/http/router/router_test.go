package router

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitchforge-ai-api/internal/application/deck"
	"pitchforge-ai-api/internal/config"
	"pitchforge-ai-api/internal/domain/entity"
	"pitchforge-ai-api/internal/domain/repository"
	"pitchforge-ai-api/internal/interfaces/http/handler"
	apperrors "pitchforge-ai-api/pkg/errors"
	"pitchforge-ai-api/pkg/utils"
)

type fakeService struct{}

func (fakeService) Generate(context.Context, entity.DeckRequest) (*deck.Result, error) {
	return &deck.Result{
		Artifact: &entity.ExportArtifact{Data: []byte("deck"), MimeType: deck.MimePPTX, FileName: "A_Pitch_Deck.pptx"},
		Handle:   &entity.TemplateHandle{DocumentID: "doc"},
	}, nil
}

func (fakeService) Preview(context.Context, entity.DeckRequest) (*deck.Result, error) {
	return nil, apperrors.ErrContentGeneration
}

func (fakeService) SubmitJob(context.Context, entity.DeckRequest) (*entity.DeckJob, error) {
	return nil, apperrors.New(apperrors.CodeServiceUnavailable, "async deck jobs are not enabled")
}

func (fakeService) GetJob(context.Context, string) (*entity.DeckJob, error) {
	return nil, apperrors.ErrJobNotFound
}

func (fakeService) ListJobs(context.Context, *repository.DeckJobFilter, repository.Pagination) (*repository.PagedResult[*entity.DeckJob], error) {
	return nil, apperrors.New(apperrors.CodeServiceUnavailable, "async deck jobs are not enabled")
}

func (fakeService) GetArtifact(context.Context, string) (*entity.DeckJob, *entity.ExportArtifact, error) {
	return nil, nil, apperrors.ErrJobNotFound
}

type countingLimiter struct {
	mu    sync.Mutex
	limit int
	seen  map[string]int
}

func (l *countingLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[key]++
	return l.seen[key] <= l.limit, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Name = "pitchforge-test"
	cfg.Observability.Metrics.Enabled = true
	cfg.Observability.Metrics.Path = "/metrics"
	return cfg
}

func newTestRouter(cfg *config.Config, limiter *countingLimiter) *Router {
	gin.SetMode(gin.TestMode)
	svc := fakeService{}
	handlers := &RouterHandlers{
		Health:  handler.NewHealthHandler(nil, nil, "memory", "test"),
		Deck:    handler.NewDeckHandler(svc),
		DeckJob: handler.NewDeckJobHandler(svc),
	}
	if limiter == nil {
		return NewWithDeps(cfg, handlers, nil)
	}
	return NewWithDeps(cfg, handlers, limiter)
}

func serve(r *Router, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, req)
	return w
}

func TestRouter_ProbesAndMetrics(t *testing.T) {
	r := newTestRouter(testConfig(), nil)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/live", "", nil).Code)

	// 内存后端未连接 pg / redis，均为 disabled，不影响就绪
	ready := serve(r, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, ready.Code)
	assert.Contains(t, ready.Body.String(), `"disabled"`)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/metrics", "", nil).Code)
}

func TestRouter_LegacyGenerateAlias(t *testing.T) {
	r := newTestRouter(testConfig(), nil)

	legacy := serve(r, http.MethodPost, "/generate", `{"idea":"x"}`, nil)
	v1 := serve(r, http.MethodPost, "/v1/decks", `{"idea":"x"}`, nil)

	require.Equal(t, http.StatusOK, legacy.Code)
	assert.Equal(t, v1.Code, legacy.Code)
	assert.Equal(t, v1.Body.String(), legacy.Body.String())
	assert.NotEmpty(t, legacy.Header().Get("X-Request-ID"))
}

func TestRouter_ErrorStatuses(t *testing.T) {
	r := newTestRouter(testConfig(), nil)

	assert.Equal(t, http.StatusBadGateway, serve(r, http.MethodPost, "/v1/decks/preview", `{"idea":"x"}`, nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(r, http.MethodPost, "/v1/deck-jobs", `{"idea":"x"}`, nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/v1/deck-jobs/abc", "", nil).Code)
}

func TestRouter_RateLimitPerClient(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RateLimit.Enabled = true
	cfg.Security.RateLimit.RequestsPerMinute = 2
	limiter := &countingLimiter{limit: 2, seen: map[string]int{}}
	r := newTestRouter(cfg, limiter)

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/v1/decks", `{"idea":"x"}`, nil).Code)
	}
	w := serve(r, http.MethodPost, "/v1/decks", `{"idea":"x"}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	// 探针不受限流影响
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", "", nil).Code)
}

func TestRouter_JWTAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Security.JWT.Enabled = true
	cfg.Security.JWT.Secret = "test-secret"
	cfg.Security.JWT.Issuer = "pitchforge"
	r := newTestRouter(cfg, nil)

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/v1/decks", `{"idea":"x"}`, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/generate", `{"idea":"x"}`, http.Header{
		"Authorization": {"Bearer nonsense"},
	}).Code)

	token, err := utils.NewJWTManager("test-secret", "pitchforge").GenerateToken("user-1", "", time.Minute)
	require.NoError(t, err)
	w := serve(r, http.MethodPost, "/v1/decks", `{"idea":"x"}`, http.Header{
		"Authorization": {"Bearer " + token},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", "", nil).Code)
}
