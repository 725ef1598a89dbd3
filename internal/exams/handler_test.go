package exams

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examforge/examforge/internal/permissions"
	"github.com/examforge/examforge/internal/shared"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sessionFor(t *testing.T, accountID, role string) *shared.Session {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sm := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	sess.SetAccount(accountID, role)
	return sess
}

func injectSession(sess *shared.Session) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(shared.ContextWithSession(r.Context(), sess)))
		})
	}
}

func newTestRouter(t *testing.T, repo *mockRepository, sess *shared.Session) http.Handler {
	t.Helper()
	handler := NewHandler(testLogger(), NewService(repo), permissions.Middleware{})
	r := chi.NewRouter()
	if sess != nil {
		r.Use(injectSession(sess))
	}
	handler.MountRoutes(r)
	return r
}

func TestSaveAndListWithStats(t *testing.T) {
	repo := newMockRepository()
	sess := sessionFor(t, "acct-1", shared.RoleUser)
	router := newTestRouter(t, repo, sess)

	for _, score := range []int{80, 60, 100} {
		body := `{"examType":"question-generator","score":` + jsonInt(score) + `}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)
		require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	var payload struct {
		Results []Result `json:"results"`
		Stats   Stats    `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	assert.Len(t, payload.Results, 3)
	assert.Equal(t, 80, payload.Stats.AverageScore)
	assert.Equal(t, 100, payload.Stats.BestScore)
}

func TestSaveRejectsBadExamType(t *testing.T) {
	router := newTestRouter(t, newMockRepository(), sessionFor(t, "acct-1", shared.RoleUser))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"examType":"algebra"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestSaveRejectsOutOfRangeScore(t *testing.T) {
	router := newTestRouter(t, newMockRepository(), sessionFor(t, "acct-1", shared.RoleUser))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"examType":"question-generator","score":150}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestRoutesRequireSession(t *testing.T) {
	router := newTestRouter(t, newMockRepository(), sessionFor(t, "", ""))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestListAllRequiresAdmin(t *testing.T) {
	repo := newMockRepository()
	repo.results["r1"] = Result{ID: "r1", AccountID: "acct-2", ExamType: permissions.ToolQuestionGenerator}

	router := newTestRouter(t, repo, sessionFor(t, "acct-1", shared.RoleUser))
	req := httptest.NewRequest(http.MethodGet, "/all", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusForbidden, res.Code)

	adminRouter := newTestRouter(t, repo, sessionFor(t, "admin-1", shared.RoleAdmin))
	req = httptest.NewRequest(http.MethodGet, "/all", nil)
	res = httptest.NewRecorder()
	adminRouter.ServeHTTP(res, req)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestGetForeignResultForbidden(t *testing.T) {
	repo := newMockRepository()
	repo.results["r1"] = Result{ID: "r1", AccountID: "acct-2", ExamType: permissions.ToolQuestionGenerator}

	router := newTestRouter(t, repo, sessionFor(t, "acct-1", shared.RoleUser))
	req := httptest.NewRequest(http.MethodGet, "/r1", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusForbidden, res.Code)
}

func jsonInt(v int) string {
	b, _ := json.Marshal(v)
	return string(b)
}
