package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gympoint/academy-hub/internal/application/command"
	"github.com/gympoint/academy-hub/internal/application/query"
	"github.com/gympoint/academy-hub/internal/domain/checkin"
	"github.com/gympoint/academy-hub/internal/domain/notification"
	"github.com/gympoint/academy-hub/internal/domain/plan"
	"github.com/gympoint/academy-hub/internal/domain/shared"
	"github.com/gympoint/academy-hub/internal/domain/student"
	"github.com/gympoint/academy-hub/internal/infrastructure/messaging"
	"github.com/gympoint/academy-hub/internal/infrastructure/persistence/memory"
	"github.com/gympoint/academy-hub/internal/interface/http/handlers"
)

const testSecret = "s3cret"

type apiFixture struct {
	server *Server
	store  *memory.Store
	queue  *messaging.MemoryQueue
	token  string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	queue := messaging.NewMemoryQueue(10)
	now := time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)
	clock := command.Clock(func() time.Time { return now })

	require.NoError(t, store.Students().Save(ctx, &student.Student{ID: 1, Name: "Ana", Email: "ana@example.com"}))
	require.NoError(t, store.Plans().Save(ctx, &plan.Plan{ID: 1, Title: "Start", Duration: 1, Price: shared.NewMoney(129, 0)}))
	require.NoError(t, store.Plans().Save(ctx, &plan.Plan{ID: 2, Title: "Gold", Duration: 3, Price: shared.NewMoney(109, 0)}))

	log := zap.NewNop()
	notifier := command.NewNotifier(queue, log)
	enrollDeps := command.EnrollmentDependencies{
		Students:    store.Students(),
		Plans:       store.Plans(),
		Enrollments: store.Enrollments(),
		Notifier:    notifier,
		Logger:      log,
		Clock:       clock,
	}

	auth := handlers.NewJWTAuth(testSecret, "academy-sessions")
	token, err := auth.Issue(1, time.Hour)
	require.NoError(t, err)

	health := handlers.NewCompositeHealthChecker("test")
	health.AddCheck("store", handlers.NewPingCheck(store))
	health.AddCheck("queue", handlers.NewPingCheck(queue))

	srv := NewServer(DefaultConfig(), Dependencies{
		CreateEnrollment: command.NewCreateEnrollmentHandler(enrollDeps),
		UpdateEnrollment: command.NewUpdateEnrollmentHandler(enrollDeps),
		DeleteEnrollment: command.NewDeleteEnrollmentHandler(enrollDeps),
		RecordCheckin:    command.NewRecordCheckinHandler(store.Students(), store.Checkins(), checkin.DefaultQuotaPolicy(), clock, log),
		CreateHelpOrder:  command.NewCreateHelpOrderHandler(store.Students(), store.HelpOrders(), clock),
		AnswerHelpOrder:  command.NewAnswerHelpOrderHandler(store.Students(), store.HelpOrders(), notifier, clock, log),
		ListEnrollments:  query.NewListEnrollmentsHandler(store.Enrollments()),
		ListCheckins:     query.NewListCheckinsHandler(store.Students(), store.Checkins()),
		ListHelpOrders:   query.NewListHelpOrdersHandler(store.Students(), store.HelpOrders()),
		Auth:             auth,
		HealthChecker:    health,
		Logger:           log,
	})

	return &apiFixture{server: srv, store: store, queue: queue, token: token}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, authorized bool) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authorized {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[errorResponse](t, rec).Error
}

// ══════════════════════════════════════════════════════════════════════════════
// CHECK-INS
// ══════════════════════════════════════════════════════════════════════════════

func TestCheckins_QuotaAndList(t *testing.T) {
	f := newAPIFixture(t)

	for i := 0; i < checkin.DefaultLimit; i++ {
		rec := f.do(t, http.MethodPost, "/students/1/checkins", nil, false)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		body := decodeBody[map[string]any](t, rec)
		assert.EqualValues(t, 1, body["student_id"])
		assert.Contains(t, body, "created_at")
		assert.NotContains(t, body, "id")
	}

	rec := f.do(t, http.MethodPost, "/students/1/checkins", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "You had 5 checkins on last 7 days", errorOf(t, rec))

	rec = f.do(t, http.MethodGet, "/students/1/checkins", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]checkin.Checkin](t, rec)
	assert.Len(t, list, checkin.DefaultLimit)

	again := f.do(t, http.MethodGet, "/students/1/checkins", nil, false)
	assert.Equal(t, rec.Body.String(), again.Body.String())
}

func TestCheckins_UnknownStudent(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/students/99/checkins", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Student does not exist", errorOf(t, rec))

	rec = f.do(t, http.MethodGet, "/students/99/checkins", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/students/abc/checkins", nil, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELP ORDERS
// ══════════════════════════════════════════════════════════════════════════════

func TestHelpOrders_Flow(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/students/1/help-orders", map[string]string{}, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "question is required", errorOf(t, rec))

	rec = f.do(t, http.MethodPost, "/students/99/help-orders", map[string]string{"question": "Can I train twice?"}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/students/1/help-orders", map[string]string{"question": "Can I train twice?"}, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decodeBody[createHelpOrderResponse](t, rec)
	assert.Positive(t, created.ID)
	assert.Equal(t, int64(1), created.StudentID)
	assert.Equal(t, "Can I train twice?", created.Question)

	rec = f.do(t, http.MethodGet, "/students/1/help-orders", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]map[string]any](t, rec)
	require.Len(t, list, 1)
	assert.Nil(t, list[0]["answer"])
	assert.Equal(t, map[string]any{"id": float64(1), "name": "Ana"}, list[0]["student"])

	path := fmt.Sprintf("/help-orders/%d/answer", created.ID)

	rec = f.do(t, http.MethodPut, path, map[string]string{"answer": "Yes"}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, handlers.ErrTokenMissing.Error(), errorOf(t, rec))

	rec = f.do(t, http.MethodPut, path, map[string]string{"answer": ""}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/help-orders/999/answer", map[string]string{"answer": "Yes"}, true)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPut, path, map[string]string{"answer": "Yes, with rest days."}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	answered := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "Yes, with rest days.", answered["answer"])
	assert.NotNil(t, answered["answer_at"])

	pending := f.queue.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, notification.KeyHelpOrderAnswerMail, pending[0].Key)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENTS
// ══════════════════════════════════════════════════════════════════════════════

func TestEnrollments_CRUD(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/enrollments", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/enrollments", map[string]any{"student_id": 1, "plan_id": 2}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "start_date is required", errorOf(t, rec))

	rec = f.do(t, http.MethodPost, "/enrollments", map[string]any{"student_id": 1, "plan_id": 2, "start_date": "31/01/2024"}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/enrollments", `{"student_id":`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/enrollments", map[string]any{"student_id": 1, "plan_id": 9, "start_date": "2024-01-31"}, true)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Plan does not exist", errorOf(t, rec))

	rec = f.do(t, http.MethodPost, "/enrollments", map[string]any{"student_id": 1, "plan_id": 2, "start_date": "2024-01-31"}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "2024-04-30", created["end_date"])
	assert.Equal(t, 327.0, created["price"])
	id := int64(created["id"].(float64))

	rec = f.do(t, http.MethodPost, "/enrollments", map[string]any{"student_id": 1, "plan_id": 2, "start_date": "2024-03-01"}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Enrollment already exists", errorOf(t, rec))

	rec = f.do(t, http.MethodGet, "/enrollments", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]map[string]any](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, map[string]any{"id": float64(1), "name": "Ana", "email": "ana@example.com"}, list[0]["student"])
	assert.Equal(t, map[string]any{"id": float64(2), "title": "Gold"}, list[0]["plan"])

	path := fmt.Sprintf("/enrollments/%d", id)

	rec = f.do(t, http.MethodPut, path, map[string]any{"plan_id": 1}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "2024-01-31", updated["start_date"])
	assert.Equal(t, "2024-02-29", updated["end_date"])
	assert.Equal(t, 129.0, updated["price"])

	rec = f.do(t, http.MethodPut, path, map[string]any{"student_id": 42}, true)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPut, "/enrollments/999", map[string]any{"plan_id": 1}, true)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Len(t, f.queue.Pending(), 2)

	rec = f.do(t, http.MethodDelete, path, nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())

	rec = f.do(t, http.MethodDelete, path, nil, true)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Enrollment does not exist", errorOf(t, rec))
}

func TestEnrollments_InvalidToken(t *testing.T) {
	f := newAPIFixture(t)
	f.token = "not-a-jwt"

	rec := f.do(t, http.MethodGet, "/enrollments", nil, true)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, handlers.ErrTokenInvalid.Error(), errorOf(t, rec))
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS & INFRASTRUCTURE
// ══════════════════════════════════════════════════════════════════════════════

func TestHealthAndRoot(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/health", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeBody[handlers.HealthStatus](t, rec)
	assert.True(t, status.Healthy)
	assert.Contains(t, status.Checks, "store")
	assert.Contains(t, status.Checks, "queue")

	rec = f.do(t, http.MethodGet, "/", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "academy-hub", decodeBody[map[string]any](t, rec)["name"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = f.do(t, http.MethodGet, "/nope", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoot_ReportsUptime(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/", nil, false)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, false, body["running"])
	assert.Equal(t, "0s", body["uptime"])

	f.server.mu.Lock()
	f.server.running = true
	f.server.startedAt = time.Now().Add(-90 * time.Second)
	f.server.mu.Unlock()

	rec = f.do(t, http.MethodGet, "/", nil, false)
	body = decodeBody[map[string]any](t, rec)
	assert.Equal(t, true, body["running"])
	assert.Equal(t, "1m30s", body["uptime"])
}

func TestHealth_Unhealthy(t *testing.T) {
	f := newAPIFixture(t)
	f.server.deps.HealthChecker.AddCheck("broken", func(context.Context) error { return errors.New("down") })

	rec := f.do(t, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"quota", checkin.NewQuotaExceeded(5, checkin.DefaultWindow), http.StatusUnauthorized},
		{"validation", shared.Validation("x", "y", "bad"), http.StatusBadRequest},
		{"duplicate", shared.ErrEnrollmentExists, http.StatusBadRequest},
		{"not found", fmt.Errorf("wrap: %w", shared.ErrStudentNotFound), http.StatusUnauthorized},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestServer_Lifecycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0

	srv := NewServer(cfg, Dependencies{})
	assert.False(t, srv.IsRunning())
	assert.Equal(t, time.Duration(0), srv.Uptime())
	assert.NoError(t, srv.Shutdown(context.Background()))
}
