package jobs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examforge/examforge/internal/shared"
)

type enqueuerStub struct {
	calls int
	err   error
}

func (e *enqueuerStub) EnqueuePermissionsReconcile(ctx context.Context) (*asynq.TaskInfo, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return &asynq.TaskInfo{ID: "task-1"}, nil
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

func newJobsRouter(t *testing.T, enqueuer ReconcileEnqueuer, sess *shared.Session) http.Handler {
	t.Helper()
	handler := NewHandler(nil, enqueuer, discardLogger())
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	handler.MountRoutes(r)
	return r
}

func TestTriggerReconcileEnqueues(t *testing.T) {
	stub := &enqueuerStub{}
	router := newJobsRouter(t, stub, sessionFor(t, "admin-1", shared.RoleAdmin))

	req := httptest.NewRequest(http.MethodPost, "/reconcile", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusAccepted, res.Code)
	assert.Equal(t, 1, stub.calls)
	assert.Contains(t, res.Body.String(), "task-1")
}

func TestTriggerReconcileRequiresAdmin(t *testing.T) {
	stub := &enqueuerStub{}
	router := newJobsRouter(t, stub, sessionFor(t, "acct-1", shared.RoleUser))

	req := httptest.NewRequest(http.MethodPost, "/reconcile", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, 0, stub.calls)
}

func TestTriggerReconcileRequiresSession(t *testing.T) {
	stub := &enqueuerStub{}
	router := newJobsRouter(t, stub, sessionFor(t, "", ""))

	req := httptest.NewRequest(http.MethodPost, "/reconcile", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, 0, stub.calls)
}

func TestHealthWithoutInspector(t *testing.T) {
	router := newJobsRouter(t, nil, sessionFor(t, "", ""))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"pending":0`)
}
