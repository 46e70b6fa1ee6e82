package alarm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	service "github.com/oshokin/alarm-scheduler/internal/service/alarm"
)

// fakeService returns canned results so the transport layer can be tested
// without a real scheduler or database behind it.
type fakeService struct {
	createResult service.View
	createErr    error
	listResult   []service.View
	listErr      error
	getResult    service.View
	getErr       error
	deleteErr    error
	toggleResult service.View
	toggleErr    error

	lastTitle       string
	lastScheduledAt time.Time
	lastID          int64
	lastIsActive    bool
}

func (f *fakeService) Create(_ context.Context, title string, scheduledAt time.Time) (service.View, error) {
	f.lastTitle = title
	f.lastScheduledAt = scheduledAt

	return f.createResult, f.createErr
}

func (f *fakeService) List(_ context.Context) ([]service.View, error) {
	return f.listResult, f.listErr
}

func (f *fakeService) Get(_ context.Context, id int64) (service.View, error) {
	f.lastID = id

	return f.getResult, f.getErr
}

func (f *fakeService) Delete(_ context.Context, id int64) error {
	f.lastID = id

	return f.deleteErr
}

func (f *fakeService) Toggle(_ context.Context, id int64, isActive bool) (service.View, error) {
	f.lastID = id
	f.lastIsActive = isActive

	return f.toggleResult, f.toggleErr
}

func newTestRouter(svc Service) chi.Router {
	r := chi.NewRouter()
	r.Mount("/api/v1", NewHandler(svc).Routes())

	return r
}

func testAlarm() *domain.Alarm {
	return &domain.Alarm{
		ID:          42,
		Title:       "Stand-up",
		ScheduledAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		IsActive:    true,
		CreatedAt:   time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC),
	}
}

func decodeError(t *testing.T, body *bytes.Buffer) ErrorResponse {
	t.Helper()

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))

	return resp
}

func TestCreateAlarm(t *testing.T) {
	t.Parallel()

	svc := &fakeService{createResult: service.View{Alarm: testAlarm(), Status: domain.StatusPending}}
	router := newTestRouter(svc)

	body := `{"title":"Stand-up","scheduled_at":"2026-03-01T10:00:00Z"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/alarms", bytes.NewBufferString(body)))

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp AlarmResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, int64(42), resp.ID)
	require.Equal(t, "Stand-up", resp.Title)
	require.Equal(t, string(domain.StatusPending), resp.Status)
	require.Equal(t, "Stand-up", svc.lastTitle)
	require.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), svc.lastScheduledAt)
}

// TestCreateAlarmReportsDerivedStatus covers an overdue instant under the
// fire-immediately policy: when delivery already completed by the time the
// response is built, the 201 body must say fired, not pending.
func TestCreateAlarmReportsDerivedStatus(t *testing.T) {
	t.Parallel()

	alarm := testAlarm()
	firedAt := alarm.ScheduledAt
	alarm.FiredAt = &firedAt

	svc := &fakeService{createResult: service.View{Alarm: alarm, Status: domain.StatusFired}}
	router := newTestRouter(svc)

	body := `{"title":"Stand-up","scheduled_at":"2026-03-01T10:00:00Z"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/alarms", bytes.NewBufferString(body)))

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp AlarmResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, string(domain.StatusFired), resp.Status)
	require.NotNil(t, resp.FiredAt)
}

func TestCreateAlarmValidation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name           string
		body           string
		serviceErr     error
		expectedStatus int
		expectedCode   ErrorCode
	}{
		{
			name:           "malformed body",
			body:           `{"title":`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   CodeBadRequest,
		},
		{
			name:           "missing instant",
			body:           `{"title":"Stand-up"}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   CodeBadRequest,
		},
		{
			name:           "empty title",
			body:           `{"title":"","scheduled_at":"2026-03-01T10:00:00Z"}`,
			serviceErr:     domain.ErrEmptyTitle,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   CodeBadRequest,
		},
		{
			name:           "rejected instant",
			body:           `{"title":"Stand-up","scheduled_at":"2020-03-01T10:00:00Z"}`,
			serviceErr:     domain.ErrInvalidSchedule,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   CodeInvalidSchedule,
		},
		{
			name:           "permission denied",
			body:           `{"title":"Stand-up","scheduled_at":"2026-03-01T10:00:00Z"}`,
			serviceErr:     domain.ErrPermissionDenied,
			expectedStatus: http.StatusForbidden,
			expectedCode:   CodePermissionDenied,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			router := newTestRouter(&fakeService{createErr: tc.serviceErr})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/alarms", bytes.NewBufferString(tc.body)))

			require.Equal(t, tc.expectedStatus, rec.Code)
			require.Equal(t, tc.expectedCode, decodeError(t, rec.Body).Error.Code)
		})
	}
}

func TestListAlarms(t *testing.T) {
	t.Parallel()

	alarm := testAlarm()
	svc := &fakeService{
		listResult: []service.View{
			{Alarm: alarm, Status: domain.StatusPending},
		},
	}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/alarms", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListAlarmsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 1, resp.Total)
	require.Len(t, resp.Alarms, 1)
	require.Equal(t, alarm.ID, resp.Alarms[0].ID)
	require.Equal(t, string(domain.StatusPending), resp.Alarms[0].Status)
}

func TestListAlarmsEmpty(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&fakeService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/alarms", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"alarms":[],"total":0}`, rec.Body.String())
}

func TestGetAlarm(t *testing.T) {
	t.Parallel()

	alarm := testAlarm()
	svc := &fakeService{getResult: service.View{Alarm: alarm, Status: domain.StatusPending}}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/alarms/42", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(42), svc.lastID)

	var resp AlarmResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, alarm.Title, resp.Title)
}

func TestGetAlarmNotFound(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&fakeService{getErr: domain.ErrNotFound})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/alarms/7", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, CodeNotFound, decodeError(t, rec.Body).Error.Code)
}

func TestGetAlarmInvalidID(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&fakeService{})

	for _, path := range []string{"/api/v1/alarms/abc", "/api/v1/alarms/0", "/api/v1/alarms/-5"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		require.Equal(t, http.StatusBadRequest, rec.Code, path)
		require.Equal(t, CodeBadRequest, decodeError(t, rec.Body).Error.Code, path)
	}
}

func TestDeleteAlarm(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/alarms/42", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, int64(42), svc.lastID)
}

func TestDeleteAlarmNotFound(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&fakeService{deleteErr: domain.ErrNotFound})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/alarms/42", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestToggleAlarm(t *testing.T) {
	t.Parallel()

	alarm := testAlarm()
	alarm.IsActive = false
	svc := &fakeService{toggleResult: service.View{Alarm: alarm, Status: domain.StatusCancelled}}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(
		http.MethodPatch, "/api/v1/alarms/42", bytes.NewBufferString(`{"is_active":false}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(42), svc.lastID)
	require.False(t, svc.lastIsActive)

	var resp AlarmResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, string(domain.StatusCancelled), resp.Status)
}

func TestToggleAlarmErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name           string
		body           string
		serviceErr     error
		expectedStatus int
		expectedCode   ErrorCode
	}{
		{
			name:           "missing flag",
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   CodeBadRequest,
		},
		{
			name:           "already fired",
			body:           `{"is_active":true}`,
			serviceErr:     domain.ErrAlreadyFired,
			expectedStatus: http.StatusConflict,
			expectedCode:   CodeAlreadyFired,
		},
		{
			name:           "not found",
			body:           `{"is_active":true}`,
			serviceErr:     domain.ErrNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   CodeNotFound,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			router := newTestRouter(&fakeService{toggleErr: tc.serviceErr})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(
				http.MethodPatch, "/api/v1/alarms/42", bytes.NewBufferString(tc.body)))

			require.Equal(t, tc.expectedStatus, rec.Code)
			require.Equal(t, tc.expectedCode, decodeError(t, rec.Body).Error.Code)
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	t.Parallel()

	router := chi.NewRouter()
	router.Use(RequestID)
	router.Mount("/api/v1", NewHandler(&fakeService{}).Routes())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/alarms", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}
