package api

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/intern-diary/diary/config"
	"github.com/ZanzyTHEbar/intern-diary/diary/generation/harness"
	"github.com/ZanzyTHEbar/intern-diary/diary/generation/harness/adapters"
	ports "github.com/ZanzyTHEbar/intern-diary/diary/generation/harness/ports"
)

const reply = `Here's your completed daily diary entry 👇

Work Summary:

Reviewed pull requests for the auth module and wrote unit tests.

Learnings / Outcomes:

Learned how token validation is structured.

Blockers / Risks:

Some review comments need clarification from the authors.

Reference Links: Not Applicable
`

type stubProvider struct {
	complete func(ctx context.Context, in ports.PromptInput, opts ports.Options) (ports.Completion, error)
	calls    atomic.Int32
}

func (p *stubProvider) Complete(ctx context.Context, in ports.PromptInput, opts ports.Options) (ports.Completion, error) {
	p.calls.Add(1)
	if p.complete != nil {
		return p.complete(ctx, in, opts)
	}
	return ports.Completion{Text: reply}, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		Addr:              "127.0.0.1:0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
		CORSEnabled:       true,
		GzipEnabled:       true,
	}
}

func newTestServer(t *testing.T, provider ports.Provider, policy *harness.Policy) *Server {
	t.Helper()
	orchestrator := harness.NewDiaryOrchestrator(
		provider,
		harness.NewPromptBuilder(),
		harness.NewResponseParser(),
		harness.NewGuardrails(),
		adapters.NewTTLCache(time.Hour),
		adapters.NewTokenBucket(10, time.Second),
		adapters.NewZerologTracer(zerolog.Nop()),
		policy,
	)
	return NewServer(testServerConfig(), orchestrator, zerolog.Nop())
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestIndex(t *testing.T) {
	s := newTestServer(t, &stubProvider{}, nil)
	w := do(t, s, http.MethodGet, "/", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Internship Diary Generator API", body["message"])
	assert.Equal(t, "1.0.0", body["version"])
	assert.Equal(t, "running", body["status"])
	assert.Contains(t, body["endpoints"], "POST /api/generate")

	errs, ok := body["errors"].(map[string]any)
	require.True(t, ok)
	generateErrs, ok := errs["POST /api/generate"].(map[string]any)
	require.True(t, ok)
	for _, code := range []string{"400", "429", "500"} {
		assert.Contains(t, generateErrs, code)
	}
}

func TestHealth(t *testing.T) {
	provider := &stubProvider{}
	s := newTestServer(t, provider, nil)

	w := do(t, s, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "API is running", body["message"])
	assert.EqualValues(t, 0, body["cache_entries"])

	do(t, s, http.MethodPost, "/api/generate", `{"summary":"wrote tests","api_key":"sk-test"}`)

	body = decode(t, do(t, s, http.MethodGet, "/api/health", ""))
	assert.EqualValues(t, 1, body["cache_entries"])
	cache, ok := body["cache"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 3600, cache["expiry_seconds"])
	assert.Equal(t, int32(1), provider.calls.Load())
}

func TestGenerate_Success(t *testing.T) {
	provider := &stubProvider{}
	s := newTestServer(t, provider, nil)

	w := do(t, s, http.MethodPost, "/api/generate", `{"summary":"Reviewed pull requests and wrote unit tests for the auth module.","api_key":"sk-test"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp generateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.False(t, resp.Cached)
	assert.Equal(t, reply, resp.FullResponse)
	assert.Equal(t, "Reviewed pull requests for the auth module and wrote unit tests.", resp.Fields.WorkSummary)
	assert.Empty(t, resp.Fields.Skills)
	assert.Equal(t, "Not Applicable", resp.Fields.ReferenceLinks)

	// Field keys keep their display names.
	fields := decode(t, w)["fields"].(map[string]any)
	for _, name := range harness.FieldNames {
		assert.Contains(t, fields, name)
	}

	w = do(t, s, http.MethodPost, "/api/generate", `{"summary":"Reviewed pull requests and wrote unit tests for the auth module.","api_key":"sk-test"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["cached"])
	assert.Equal(t, int32(1), provider.calls.Load())
}

func TestGenerate_BadRequests(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{"missing api key", `{"summary":"did work"}`, "OpenAI API key is required"},
		{"key checked first", `{"summary":""}`, "OpenAI API key is required"},
		{"missing summary", `{"api_key":"sk-test"}`, "Work summary is required"},
		{"blank summary", `{"summary":"   ","api_key":"sk-test"}`, "Work summary is required"},
		{"summary wrong type", `{"summary":42,"api_key":"sk-test"}`, "invalid request body"},
		{"not json", `summary=hi`, "not valid JSON"},
		{"empty body", ``, "not valid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &stubProvider{}
			s := newTestServer(t, provider, nil)

			w := do(t, s, http.MethodPost, "/api/generate", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, decode(t, w)["error"], tt.wantError)
			assert.Equal(t, int32(0), provider.calls.Load())
		})
	}
}

func TestGenerate_EnvironmentDefaultKey(t *testing.T) {
	var seen string
	provider := &stubProvider{
		complete: func(ctx context.Context, in ports.PromptInput, opts ports.Options) (ports.Completion, error) {
			seen = opts.Credentials
			return ports.Completion{Text: reply}, nil
		},
	}
	policy := harness.DefaultPolicy()
	policy.DefaultCredentials = "sk-env"
	s := newTestServer(t, provider, policy)

	w := do(t, s, http.MethodPost, "/api/generate", `{"summary":"did work"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sk-env", seen)

	w = do(t, s, http.MethodPost, "/api/generate", `{"summary":"did other work","api_key":"sk-request"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sk-request", seen)
}

func TestGenerate_UpstreamFailure(t *testing.T) {
	provider := &stubProvider{
		complete: func(ctx context.Context, in ports.PromptInput, opts ports.Options) (ports.Completion, error) {
			return ports.Completion{}, errors.New("status 401: Incorrect API key provided: sk-secret-123456")
		},
	}
	s := newTestServer(t, provider, nil)

	w := do(t, s, http.MethodPost, "/api/generate", `{"summary":"did work","api_key":"sk-secret-123456"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	msg, _ := decode(t, w)["error"].(string)
	assert.Contains(t, msg, "error calling OpenAI API")
	assert.NotContains(t, msg, "sk-secret-123456")
}

func TestGenerate_RateLimited(t *testing.T) {
	s := newTestServer(t, &stubProvider{}, nil)
	orchestrator := harness.NewDiaryOrchestrator(
		&stubProvider{},
		harness.NewPromptBuilder(),
		harness.NewResponseParser(),
		nil,
		nil,
		exhaustedLimiter{},
		nil,
		nil,
	)
	s.Generator = orchestrator

	w := do(t, s, http.MethodPost, "/api/generate", `{"summary":"did work","api_key":"sk-test"}`)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.NotEmpty(t, decode(t, w)["error"])
}

type exhaustedLimiter struct{}

func (exhaustedLimiter) Acquire(ctx context.Context, key string) (func(), error) {
	return nil, adapters.ErrRateLimitExceeded
}

func TestClearCache(t *testing.T) {
	s := newTestServer(t, &stubProvider{}, nil)
	do(t, s, http.MethodPost, "/api/generate", `{"summary":"one","api_key":"sk-test"}`)
	do(t, s, http.MethodPost, "/api/generate", `{"summary":"two","api_key":"sk-test"}`)

	w := do(t, s, http.MethodPost, "/api/cache/clear", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 2, body["cleared"])
	assert.NotEmpty(t, body["message"])

	assert.EqualValues(t, 0, decode(t, do(t, s, http.MethodGet, "/api/health", ""))["cache_entries"])
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t, &stubProvider{}, nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/nope"},
		{http.MethodGet, "/api/generate"},
	} {
		w := do(t, s, tc.method, tc.path, "")
		require.Equal(t, http.StatusNotFound, w.Code)
		body := decode(t, w)
		assert.Equal(t, "Not Found", body["error"])
		assert.Contains(t, body["available_endpoints"], "GET /api/health")
	}
}

func TestPanicRecovery(t *testing.T) {
	s := newTestServer(t, &stubProvider{}, nil)
	s.Router.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := do(t, s, http.MethodGet, "/boom", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Internal Server Error", body["error"])
	assert.Equal(t, "An error occurred on the server.", body["message"])
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, &stubProvider{}, nil)

	w := do(t, s, http.MethodGet, "/", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "9b2f0e4c-1b3a-4c4e-8a2d-7f5e6d4c3b2a")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "9b2f0e4c-1b3a-4c4e-8a2d-7f5e6d4c3b2a", w.Header().Get("X-Request-ID"))
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, &stubProvider{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestGzipLargeResponses(t *testing.T) {
	long := strings.Replace(reply, "Not Applicable", strings.Repeat("https://go.dev/doc/ : Go documentation\n", 100), 1)
	provider := &stubProvider{
		complete: func(ctx context.Context, in ports.PromptInput, opts ports.Options) (ports.Completion, error) {
			return ports.Completion{Text: long}, nil
		},
	}
	s := newTestServer(t, provider, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"summary":"did work","api_key":"sk-test"}`))
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)

	var resp generateResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	assert.Equal(t, long, resp.FullResponse)
}

func TestServeAndShutdown(t *testing.T) {
	s := newTestServer(t, &stubProvider{}, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var wg conc.WaitGroup
	wg.Go(func() {
		assert.NoError(t, s.Serve(ln))
	})

	url := "http://" + ln.Addr().String() + "/api/health"
	assert.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	wg.Wait()
}
