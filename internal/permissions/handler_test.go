package permissions

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
	handler := NewHandler(testLogger(), NewRegistry(repo), NewEvaluator(repo), Middleware{})
	r := chi.NewRouter()
	if sess != nil {
		r.Use(injectSession(sess))
	}
	handler.MountRoutes(r)
	return r
}

func TestToolProbeChecksSessionTools(t *testing.T) {
	sess := sessionFor(t, "acct-1", shared.RoleUser)
	sess.SetTools([]string{ToolQuestionGenerator})
	router := newTestRouter(t, newMockRepository(), sess)

	req := httptest.NewRequest(http.MethodGet, "/tools/"+ToolQuestionGenerator, nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusNoContent, res.Code)

	req = httptest.NewRequest(http.MethodGet, "/tools/"+ToolWritingEvaluator, nil)
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestToolProbeAdminAlwaysPasses(t *testing.T) {
	router := newTestRouter(t, newMockRepository(), sessionFor(t, "admin-1", shared.RoleAdmin))

	for _, tool := range KnownTools() {
		req := httptest.NewRequest(http.MethodGet, "/tools/"+tool, nil)
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)
		assert.Equal(t, http.StatusNoContent, res.Code, tool)
	}
}

func TestToolProbeRequiresSession(t *testing.T) {
	router := newTestRouter(t, newMockRepository(), sessionFor(t, "", ""))

	req := httptest.NewRequest(http.MethodGet, "/tools/"+ToolQuestionGenerator, nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestMyToolsRefreshesSessionCache(t *testing.T) {
	repo := newMockRepository()
	registry := NewRegistry(repo)
	ctx := context.Background()

	id, err := registry.CreatePermission(ctx, "Question generator", "", ToolQuestionGenerator)
	require.NoError(t, err)
	require.NoError(t, registry.GrantPermission(ctx, "acct-1", id, "admin-1"))

	sess := sessionFor(t, "acct-1", shared.RoleUser)
	router := newTestRouter(t, repo, sess)

	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	var payload struct {
		Tools []string `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	assert.Equal(t, []string{ToolQuestionGenerator}, payload.Tools)
	assert.Equal(t, []string{ToolQuestionGenerator}, sess.Tools())
}
