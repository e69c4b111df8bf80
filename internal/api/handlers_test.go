package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/domain"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

type mockRepo struct {
	records    []domain.HealthRecord
	goals      *domain.Goals
	duplicate  *domain.HealthRecord
	insertErr  error
	listErr    error
	upserted   *domain.Goals
	lastInsert *domain.HealthRecord
}

func (m *mockRepo) Insert(ctx context.Context, record domain.HealthRecord) (domain.HealthRecord, error) {
	if m.insertErr != nil {
		return domain.HealthRecord{}, m.insertErr
	}
	record.ID = "srv-1"
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC)
	}
	m.lastInsert = &record
	return record, nil
}

func (m *mockRepo) FindDuplicate(ctx context.Context, record domain.HealthRecord) (*domain.HealthRecord, error) {
	return m.duplicate, nil
}

func (m *mockRepo) ListByUser(ctx context.Context, userID string, limit, days int) ([]domain.HealthRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.records, nil
}

func (m *mockRepo) GetGoals(ctx context.Context, userID string) (*domain.Goals, error) {
	return m.goals, nil
}

func (m *mockRepo) UpsertGoals(ctx context.Context, goals domain.Goals) error {
	m.upserted = &goals
	return nil
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func newTestHandler(t *testing.T, repo Repository) *Handler {
	t.Helper()
	return NewHandler(repo, log.New(testWriter{t}, "", 0))
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestCreateRecordSuccess(t *testing.T) {
	repo := &mockRepo{}
	handler := newTestHandler(t, repo)

	rr := postJSON(t, handler.healthData, "/health-data", map[string]any{
		"userId": "u1",
		"date":   "2024-01-15",
		"steps":  5000,
	})

	require.Equal(t, http.StatusCreated, rr.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			ID     string `json:"id"`
			UserID string `json:"userId"`
			Date   string `json:"date"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, "srv-1", resp.Data.ID)
	require.Equal(t, "2024-01-15", resp.Data.Date)
}

func TestCreateRecordNormalizesTimestampDates(t *testing.T) {
	repo := &mockRepo{}
	handler := newTestHandler(t, repo)

	rr := postJSON(t, handler.healthData, "/health-data", map[string]any{
		"userId": "u1",
		"date":   "2024-01-15T08:30:00Z",
		"steps":  5000,
	})

	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "2024-01-15", repo.lastInsert.Date)
}

func TestCreateRecordRequiresUserID(t *testing.T) {
	handler := newTestHandler(t, &mockRepo{})

	rr := postJSON(t, handler.healthData, "/health-data", map[string]any{
		"date":  "2024-01-15",
		"steps": 5000,
	})

	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "VALIDATION_FAILED", resp["error"])
}

func TestCreateRecordRejectsEmptyMetrics(t *testing.T) {
	handler := newTestHandler(t, &mockRepo{})

	rr := postJSON(t, handler.healthData, "/health-data", map[string]any{
		"userId": "u1",
		"date":   "2024-01-15",
	})

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateRecordDuplicateConflict(t *testing.T) {
	dup := domain.HealthRecord{ID: "existing"}
	repo := &mockRepo{duplicate: &dup}
	handler := newTestHandler(t, repo)

	rr := postJSON(t, handler.healthData, "/health-data", map[string]any{
		"userId": "u1",
		"date":   "2024-01-15",
		"steps":  5000,
	})

	require.Equal(t, http.StatusConflict, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "DUPLICATE_DATA", resp["error"])
	require.NotEmpty(t, resp["suggestion"])
}

func TestCreateRecordForceSubmitBypassesDuplicateCheck(t *testing.T) {
	dup := domain.HealthRecord{ID: "existing"}
	repo := &mockRepo{duplicate: &dup}
	handler := newTestHandler(t, repo)

	rr := postJSON(t, handler.healthData, "/health-data", map[string]any{
		"userId":      "u1",
		"date":        "2024-01-15",
		"steps":       5000,
		"forceSubmit": true,
	})

	require.Equal(t, http.StatusCreated, rr.Code)
}

func TestListRecords(t *testing.T) {
	repo := &mockRepo{records: []domain.HealthRecord{
		{ID: "a", UserID: "u1", Date: "2024-01-15", Steps: intPtr(5000)},
	}}
	handler := newTestHandler(t, repo)

	req := httptest.NewRequest(http.MethodGet, "/health-data/u1?limit=10&days=7", nil)
	rr := httptest.NewRecorder()
	handler.healthDataByUser(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var records []domain.HealthRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &records))
	require.Len(t, records, 1)
	require.Equal(t, "a", records[0].ID)
}

func TestListRecordsServerError(t *testing.T) {
	repo := &mockRepo{listErr: errors.New("connection lost")}
	handler := newTestHandler(t, repo)

	req := httptest.NewRequest(http.MethodGet, "/health-data/u1", nil)
	rr := httptest.NewRecorder()
	handler.healthDataByUser(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "SERVER_ERROR", resp["error"])
	require.Equal(t, float64(http.StatusInternalServerError), resp["code"])
}

func TestAggregatedEndpoint(t *testing.T) {
	base := time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC)
	repo := &mockRepo{records: []domain.HealthRecord{
		{UserID: "u1", Date: "2024-01-15", CreatedAt: base, Steps: intPtr(5000)},
		{UserID: "u1", Date: "2024-01-15", CreatedAt: base.Add(time.Hour), Steps: intPtr(3000)},
		{UserID: "u1", Date: "2024-01-14", CreatedAt: base, Weight: floatPtr(81)},
	}}
	handler := newTestHandler(t, repo)

	req := httptest.NewRequest(http.MethodGet, "/health-data-aggregated/u1?days=7", nil)
	rr := httptest.NewRecorder()
	handler.aggregatedByUser(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var rollup []domain.DayAggregate
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rollup))
	require.Len(t, rollup, 2)
	require.Equal(t, "2024-01-15", rollup[0].Date)
	require.Equal(t, 8000, *rollup[0].Steps)
}

func TestGetGoalsFallsBackToDefaults(t *testing.T) {
	handler := newTestHandler(t, &mockRepo{})

	req := httptest.NewRequest(http.MethodGet, "/goals/u1", nil)
	rr := httptest.NewRecorder()
	handler.goalsByUser(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var goals domain.Goals
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &goals))
	require.Equal(t, domain.DefaultStepsGoal, goals.StepsGoal)
	require.Equal(t, domain.DefaultWaterGoal, goals.WaterGoal)
	require.Nil(t, goals.WeightGoal)
}

func TestUpsertGoalsDefaultsOmittedFields(t *testing.T) {
	repo := &mockRepo{}
	handler := newTestHandler(t, repo)

	rr := postJSON(t, handler.goals, "/goals", map[string]any{
		"userId":    "u1",
		"stepsGoal": 5000,
	})

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, repo.upserted)
	require.Equal(t, 5000, repo.upserted.StepsGoal)
	require.Equal(t, domain.DefaultWaterGoal, repo.upserted.WaterGoal)
	require.Equal(t, domain.DefaultSleepGoal, repo.upserted.SleepGoal)
}

func TestUnknownRouteListsValidRoutes(t *testing.T) {
	handler := newTestHandler(t, &mockRepo{})
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/no-such-route", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)

	var resp struct {
		Error  string   `json:"error"`
		Routes []string `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "NOT_FOUND", resp.Error)
	require.Equal(t, Routes, resp.Routes)
}

func TestOptionsPreflight(t *testing.T) {
	handler := newTestHandler(t, &mockRepo{})
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodOptions, "/health-data", nil)
	rr := httptest.NewRecorder()
	CORS(mux).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	require.Empty(t, rr.Body.Bytes())
}

func TestRecoverMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/health-data/u1", nil)
	rr := httptest.NewRecorder()
	Recover(log.New(testWriter{t}, "", 0), panicking).ServeHTTP(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "SERVER_ERROR", resp["error"])
}
