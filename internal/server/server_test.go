package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/born-ml/einsum/internal/bank"
	"github.com/born-ml/einsum/internal/config"
	"github.com/born-ml/einsum/internal/progress"
	"github.com/born-ml/einsum/internal/quiz"
	"github.com/born-ml/einsum/internal/tensor"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *Server {
	t.Helper()
	b, err := bank.Default()
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Generator.Seed = 1
	for _, m := range mutate {
		m(cfg)
	}
	s, err := New(Options{Bank: b, Config: cfg})
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestNewRequiresBank(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[struct {
		Status    string `json:"status"`
		Questions int    `json:"questions"`
	}](t, w)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, s.Bank().Len(), resp.Questions)
}

func TestListQuestions(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/v1/questions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[struct {
		Questions []questionView `json:"questions"`
	}](t, w)
	assert.Len(t, all.Questions, s.Bank().Len())
	assert.NotContains(t, w.Body.String(), "canonical", "answers are not listed")

	w = do(t, s, http.MethodGet, "/v1/questions?difficulty=hard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	hard := decode[struct {
		Questions []questionView `json:"questions"`
	}](t, w)
	require.NotEmpty(t, hard.Questions)
	for _, q := range hard.Questions {
		assert.Equal(t, quiz.Hard, q.Difficulty)
	}

	w = do(t, s, http.MethodGet, "/v1/questions?difficulty=extreme", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetQuestion(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/v1/questions/trace", nil)
	require.Equal(t, http.StatusOK, w.Code)
	q := decode[questionView](t, w)
	assert.Equal(t, "trace", q.ID)
	assert.Equal(t, quiz.Standard, q.Kind)
	require.Len(t, q.Inputs, 1)
	assert.Equal(t, tensor.Shape{3, 3}, q.Inputs[0].Shape())

	w = do(t, s, http.MethodGet, "/v1/questions/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEvaluate(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/evaluate", map[string]any{
		"expression": "ij,jk->ik",
		"inputs": []any{
			map[string]any{"data": [][]float64{{1, 2, 3}, {4, 5, 6}}},
			map[string]any{"data": [][]float64{{7, 8}, {9, 10}, {11, 12}}},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[struct {
		Output tensor.Tensor `json:"output"`
	}](t, w)
	assert.True(t, resp.Output.Equal(tensor.MustNew(tensor.Shape{2, 2}, []float64{58, 64, 139, 154})))

	w = do(t, s, http.MethodPost, "/v1/evaluate", map[string]any{"expression": "ij,jk"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "missing_arrow", decode[errorResponse](t, w).Kind)

	w = do(t, s, http.MethodPost, "/v1/evaluate", map[string]any{"expression": "i->i"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "operand_count", decode[errorResponse](t, w).Kind)

	w = do(t, s, http.MethodPost, "/v1/evaluate", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvaluateNonFinite(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/evaluate", map[string]any{
		"expression": "i->i",
		"inputs":     []any{map[string]any{"shape": []int{2}, "data": []any{"Infinity", "NaN"}}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"output":{"shape":[2],"data":["Infinity","NaN"]}}`, w.Body.String())

	resp := decode[struct {
		Output tensor.Tensor `json:"output"`
	}](t, w)
	assert.True(t, math.IsInf(resp.Output.At(0), 1))
	assert.True(t, math.IsNaN(resp.Output.At(1)))
}

func TestEvaluateRejectsOversizedInput(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate",
		strings.NewReader(`{"expression":"i->","inputs":[{"shape":[1099511627776],"data":[]}]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid literal")

	v300 := make([]float64, 300)
	w = do(t, s, http.MethodPost, "/v1/evaluate", map[string]any{
		"expression": "a,b,c,d->abcd",
		"inputs": []any{
			map[string]any{"data": v300}, map[string]any{"data": v300},
			map[string]any{"data": v300}, map[string]any{"data": v300},
		},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "too_large", decode[errorResponse](t, w).Kind)
}

func TestBodyLimit(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Server.MaxBodyBytes = 64 })

	w := do(t, s, http.MethodPost, "/v1/evaluate", map[string]any{
		"expression": "i->",
		"inputs":     []any{map[string]any{"data": make([]float64, 100)}},
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = do(t, s, http.MethodPost, "/v1/evaluate", map[string]any{
		"expression": "i->",
		"inputs":     []any{map[string]any{"data": []float64{1, 2}}},
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCheck(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/questions/trace/check", checkRequest{Expression: "jj->"})
	require.Equal(t, http.StatusOK, w.Code)
	ok := decode[checkResponse](t, w)
	assert.True(t, ok.Correct)
	assert.Equal(t, "Correct!", ok.Message)
	assert.Nil(t, ok.Failure)
	assert.Equal(t, "ii->", ok.Canonical)

	w = do(t, s, http.MethodPost, "/v1/questions/trace/check", checkRequest{Expression: "ii->i"})
	require.Equal(t, http.StatusOK, w.Code)
	wrong := decode[checkResponse](t, w)
	assert.False(t, wrong.Correct)
	require.NotNil(t, wrong.Failure)
	assert.Equal(t, "rank_mismatch", wrong.Failure.Mismatch)
	assert.Equal(t, "Output tensor has incorrect number of dimensions. Expected 0, got 1.", wrong.Message)
	assert.NotEmpty(t, wrong.Hints)
	require.NotNil(t, wrong.Failure.Actual)
	assert.Equal(t, tensor.Shape{3}, wrong.Failure.Actual.Shape())

	w = do(t, s, http.MethodPost, "/v1/questions/trace/check", checkRequest{Expression: "ii"})
	require.Equal(t, http.StatusOK, w.Code)
	invalid := decode[checkResponse](t, w)
	require.NotNil(t, invalid.Failure)
	assert.True(t, invalid.Failure.Invalid)
	assert.Equal(t, -1, invalid.Failure.CaseIndex)
	assert.Equal(t, "missing_arrow", invalid.Failure.Kind)
	assert.Nil(t, invalid.Failure.Expected)

	w = do(t, s, http.MethodPost, "/v1/questions/nope/check", checkRequest{Expression: "i->"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodPost, "/v1/questions/trace/check", checkRequest{Expression: "ii->", Session: "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckCodeQuestionRunsGeneratedCases(t *testing.T) {
	s := newTestServer(t)
	q, ok := s.Bank().Get("code-transpose")
	require.True(t, ok)

	w := do(t, s, http.MethodPost, "/v1/questions/code-transpose/check", checkRequest{Expression: "ab->ba"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[checkResponse](t, w)
	assert.True(t, resp.Correct)
	assert.Equal(t, 1+len(q.Extra)+s.cfg.Generator.Cases, resp.CasesRun)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[sessionResponse](t, w)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, quiz.Easy, created.State.Level)

	var last *progress.State
	for i := 0; i < 3; i++ {
		w = do(t, s, http.MethodPost, "/v1/questions/trace/check", checkRequest{Expression: "ii->", Session: created.ID})
		require.Equal(t, http.StatusOK, w.Code)
		last = decode[checkResponse](t, w).Progress
	}
	require.NotNil(t, last)
	assert.Equal(t, quiz.Medium, last.Level)

	w = do(t, s, http.MethodGet, "/v1/sessions/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[sessionResponse](t, w)
	assert.Equal(t, 3, got.State.TotalAnswered)
	assert.Equal(t, 100, got.Summary.Percent)

	w = do(t, s, http.MethodGet, "/v1/sessions/"+created.ID+"/next", nil)
	require.Equal(t, http.StatusOK, w.Code)
	next := decode[struct {
		Question questionView   `json:"question"`
		State    progress.State `json:"state"`
	}](t, w)
	assert.Equal(t, quiz.Medium, next.Question.Difficulty)

	w = do(t, s, http.MethodDelete, "/v1/sessions/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, s, http.MethodGet, "/v1/sessions/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, s, http.MethodDelete, "/v1/sessions/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionsExpire(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Server.SessionTTL = "30m" })
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	idle := s.newSession()
	active := s.newSession()

	now = now.Add(20 * time.Minute)
	w := do(t, s, http.MethodGet, "/v1/sessions/"+active.id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	now = now.Add(15 * time.Minute)
	assert.Equal(t, 1, s.expireSessions())

	w = do(t, s, http.MethodGet, "/v1/sessions/"+idle.id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, s, http.MethodGet, "/v1/sessions/"+active.id, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, s.expireSessions())
}

func TestSessionsCapped(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Server.MaxSessions = 2 })
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	first := s.newSession()
	now = now.Add(time.Second)
	second := s.newSession()
	now = now.Add(time.Second)
	_, ok := s.session(first.id)
	require.True(t, ok)

	now = now.Add(time.Second)
	third := s.newSession()

	_, ok = s.session(second.id)
	assert.False(t, ok, "least recently used session is evicted")
	for _, id := range []string{first.id, third.id} {
		_, ok = s.session(id)
		assert.True(t, ok)
	}
	assert.Len(t, s.sessions, 2)
}

func TestServeExpiresSessions(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newTestServer(t, func(c *config.Config) { c.Server.SessionTTL = "20ms" })
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	sess := s.newSession()
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		_, ok := s.sessions[sess.id]
		return !ok
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestSetBank(t *testing.T) {
	s := newTestServer(t)
	b, err := bank.Parse([]byte(`questions:
  - id: only
    kind: standard
    difficulty: hard
    einsum: "i->"
    description: Sum a vector.
    inputs:
      - {data: [1, 2, 3]}
    output: {shape: [], data: 6}
`))
	require.NoError(t, err)

	w := do(t, s, http.MethodPost, "/v1/sessions", nil)
	id := decode[sessionResponse](t, w).ID
	w = do(t, s, http.MethodGet, "/v1/sessions/"+id+"/next", nil)
	require.Equal(t, http.StatusOK, w.Code)

	s.SetBank(b)
	assert.Equal(t, 1, decode[struct {
		Questions int `json:"questions"`
	}](t, do(t, s, http.MethodGet, "/healthz", nil)).Questions)

	// The session's selector follows the new bank, falling back to the only level.
	w = do(t, s, http.MethodGet, "/v1/sessions/"+id+"/next", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"only"`)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodPost, "/v1/questions/trace/check", checkRequest{Expression: "ii->"})

	w := do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `einsum_quiz_checks_total{difficulty="easy",outcome="correct"} 1`)
	assert.Contains(t, w.Body.String(), "einsum_bank_questions")
}

func TestServeShutsDown(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	require.Eventually(t, func() bool {
		resp, err := client.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return")
	}
}
