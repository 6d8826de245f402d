package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/hrygo/wordloop/internal/profile"
	"github.com/hrygo/wordloop/plugin/export"
	"github.com/hrygo/wordloop/plugin/srs"
	engineerrors "github.com/hrygo/wordloop/server/internal/errors"
	"github.com/hrygo/wordloop/server/internal/observability"
	"github.com/hrygo/wordloop/server/service/review"
	"github.com/hrygo/wordloop/store"
)

// MockReviewService records the arguments of the last call and returns canned values.
type MockReviewService struct {
	candidates []srs.Candidate
	plans      []srs.DayPlan
	session    *review.SessionResult
	stats      *review.Stats
	record     *store.ProgressRecord
	sessions   []*store.StudySession
	err        error

	gotUserID    int32
	gotLimit     int
	gotExpr      string
	gotDays      int
	gotOutcomes  []review.Outcome
	gotType      string
	gotItemID    string
	gotDifficult bool
}

func (m *MockReviewService) SelectForReview(ctx context.Context, userID int32, limit int) ([]srs.Candidate, error) {
	return m.SearchDue(ctx, userID, limit, "")
}

func (m *MockReviewService) SearchDue(_ context.Context, userID int32, limit int, expr string) ([]srs.Candidate, error) {
	m.gotUserID, m.gotLimit, m.gotExpr = userID, limit, expr
	return m.candidates, m.err
}

func (m *MockReviewService) GeneratePlan(_ context.Context, userID int32, days int) ([]srs.DayPlan, error) {
	m.gotUserID, m.gotDays = userID, days
	return m.plans, m.err
}

func (m *MockReviewService) RecordSession(_ context.Context, userID int32, outcomes []review.Outcome, sessionType string) (*review.SessionResult, error) {
	m.gotUserID, m.gotOutcomes, m.gotType = userID, outcomes, sessionType
	return m.session, m.err
}

func (m *MockReviewService) GetStats(_ context.Context, userID int32) (*review.Stats, error) {
	m.gotUserID = userID
	return m.stats, m.err
}

func (m *MockReviewService) SetDifficult(_ context.Context, userID int32, itemID string, difficult bool) (*store.ProgressRecord, error) {
	m.gotUserID, m.gotItemID, m.gotDifficult = userID, itemID, difficult
	return m.record, m.err
}

func (m *MockReviewService) ListSessions(_ context.Context, userID int32, limit int) ([]*store.StudySession, error) {
	m.gotUserID, m.gotLimit = userID, limit
	return m.sessions, m.err
}

func (m *MockReviewService) Location() *time.Location {
	return time.UTC
}

func newTestServer(m *MockReviewService) (*echo.Echo, *observability.Metrics) {
	e := echo.New()
	metrics := observability.NewMetrics(100)
	NewAPIV1Service(&profile.Profile{}, m, metrics).RegisterRoutes(e)
	return e, metrics
}

func doRequest(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestListReviews(t *testing.T) {
	reviewed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := &MockReviewService{candidates: []srs.Candidate{{
		Record:           store.ProgressRecord{UserID: 3, ItemID: "apple", MasteryLevel: 2, LastReviewedTs: reviewed.Unix(), IsDifficult: true},
		DaysSinceReview:  10,
		RequiredInterval: 7,
		OverdueDays:      3,
		Priority:         10.0 / 7.0,
	}}}
	e, _ := newTestServer(m)

	rec := doRequest(e, http.MethodGet, "/api/v1/users/3/reviews?limit=5&filter=level%20%3C%203", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(3), m.gotUserID)
	assert.Equal(t, 5, m.gotLimit)
	assert.Equal(t, "level < 3", m.gotExpr)

	body := decode[map[string][]map[string]any](t, rec)
	require.Len(t, body["items"], 1)
	item := body["items"][0]
	assert.Equal(t, "apple", item["itemId"])
	assert.Equal(t, float64(2), item["masteryLevel"])
	assert.Equal(t, float64(3), item["overdueDays"])
	assert.Equal(t, true, item["isDifficult"])
	assert.Equal(t, "2026-01-02T03:04:05Z", item["lastReviewedAt"])
}

func TestListReviewsRequiresLimit(t *testing.T) {
	m := &MockReviewService{candidates: []srs.Candidate{}}
	e, _ := newTestServer(m)

	rec := doRequest(e, http.MethodGet, "/api/v1/users/3/reviews", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_ARGUMENT")
	assert.Contains(t, rec.Body.String(), "limit is required")
	assert.Zero(t, m.gotLimit, "the service is not called")

	rec = doRequest(e, http.MethodGet, "/api/v1/users/3/reviews?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, m.gotLimit)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		err      error
		wantCode int
		wantBody string
	}{
		{"bad user id", "/api/v1/users/zero/stats", nil, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"bad limit", "/api/v1/users/1/reviews?limit=ten", nil, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"invalid argument", "/api/v1/users/1/reviews?limit=-1", engineerrors.InvalidArgument("limit must be positive"), http.StatusBadRequest, "limit must be positive"},
		{"store unavailable", "/api/v1/users/1/stats", engineerrors.StoreUnavailable("could not load review data, try again", nil), http.StatusServiceUnavailable, "could not load review data, try again"},
		{"not found", "/api/v1/users/1/plan", engineerrors.NotFound("no record"), http.StatusNotFound, "NOT_FOUND"},
		{"internal", "/api/v1/users/1/stats", assert.AnError, http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestServer(&MockReviewService{err: tt.err})
			rec := doRequest(e, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestGetPlan(t *testing.T) {
	m := &MockReviewService{plans: []srs.DayPlan{{
		Offset:               0,
		Date:                 time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Items:                []srs.Candidate{{Record: store.ProgressRecord{ItemID: "apple"}}},
		EstimatedTimeMinutes: 1,
		Histogram:            srs.Histogram{Hard: 1},
	}}}
	e, _ := newTestServer(m)

	rec := doRequest(e, http.MethodGet, "/api/v1/users/1/plan?days=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, m.gotDays)

	body := decode[struct {
		Days []DayPlanResponse `json:"days"`
	}](t, rec)
	require.Len(t, body.Days, 1)
	assert.Equal(t, "2026-02-01", body.Days[0].Date)
	assert.Equal(t, 1, body.Days[0].EstimatedTimeMinutes)
	assert.Equal(t, HistogramResponse{Hard: 1}, body.Days[0].Histogram)
	assert.Nil(t, body.Days[0].Items[0].LastReviewedAt, "never-reviewed items have no timestamp")

	rec = doRequest(e, http.MethodGet, "/api/v1/users/1/plan", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultPlanDays, m.gotDays)
}

func TestExportPlan(t *testing.T) {
	m := &MockReviewService{plans: []srs.DayPlan{{
		Date:  time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Items: []srs.Candidate{{Record: store.ProgressRecord{ItemID: "apple"}}},
	}}}
	e, _ := newTestServer(m)

	rec := doRequest(e, http.MethodGet, "/api/v1/users/4/plan/export?days=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentType, rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "plan-4.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.PlanSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestRecordSession(t *testing.T) {
	m := &MockReviewService{session: &review.SessionResult{
		SessionID:                "abc",
		TotalItems:               3,
		CorrectItems:             2,
		EstimatedDurationSeconds: 150,
		Items: []review.ItemResult{
			{ItemID: "apple", Status: review.ItemSucceeded, Record: &store.ProgressRecord{ItemID: "apple", MasteryLevel: 1}},
			{ItemID: "bravo", Status: review.ItemFailed, Reason: engineerrors.ErrCodeStoreUnavailable},
			{ItemID: "cider", Status: review.ItemSucceeded, Record: &store.ProgressRecord{ItemID: "cider"}},
		},
	}}
	e, _ := newTestServer(m)

	rec := doRequest(e, http.MethodPost, "/api/v1/users/2/sessions", `{
		"outcomes": [
			{"itemId": "apple", "isCorrect": true, "timeSpentSeconds": 30},
			{"itemId": "bravo", "isCorrect": false},
			{"itemId": "cider", "isCorrect": true}
		]
	}`)
	require.Equal(t, http.StatusOK, rec.Code, "a partial write is still a 200")

	require.Len(t, m.gotOutcomes, 3)
	assert.Equal(t, "review", m.gotType)
	require.NotNil(t, m.gotOutcomes[0].TimeSpentSeconds)
	assert.Equal(t, 30, *m.gotOutcomes[0].TimeSpentSeconds)
	assert.Nil(t, m.gotOutcomes[1].TimeSpentSeconds)

	body := decode[RecordSessionResponse](t, rec)
	assert.Equal(t, "2 of 3 items saved; retry the rest", body.Message)
	assert.Equal(t, []string{"bravo"}, body.FailedItemIDs)
	assert.Equal(t, "STORE_UNAVAILABLE", body.Items[1].Reason)
	assert.Nil(t, body.Items[1].Record)
	assert.Equal(t, 1, body.Items[0].Record.MasteryLevel)
}

func TestRecordSessionFullSuccess(t *testing.T) {
	m := &MockReviewService{session: &review.SessionResult{
		SessionID: "abc",
		Items:     []review.ItemResult{{ItemID: "apple", Status: review.ItemSucceeded, Record: &store.ProgressRecord{ItemID: "apple"}}},
	}}
	e, _ := newTestServer(m)

	rec := doRequest(e, http.MethodPost, "/api/v1/users/2/sessions", `{"sessionType":"quiz","outcomes":[{"itemId":"apple","isCorrect":true}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "quiz", m.gotType)

	body := decode[RecordSessionResponse](t, rec)
	assert.Empty(t, body.Message)
	assert.Equal(t, []string{}, body.FailedItemIDs)
}

func TestRecordSessionMalformed(t *testing.T) {
	e, _ := newTestServer(&MockReviewService{})
	rec := doRequest(e, http.MethodPost, "/api/v1/users/2/sessions", `{"outcomes": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStats(t *testing.T) {
	m := &MockReviewService{stats: &review.Stats{
		TotalItems:     4,
		MasteredCount:  1,
		DueCount:       2,
		OverdueCount:   1,
		LevelHistogram: [srs.LevelCount]int{1, 1, 0, 0, 1, 1},
	}}
	e, _ := newTestServer(m)

	rec := doRequest(e, http.MethodGet, "/api/v1/users/8/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"totalItems":4,"masteredCount":1,"dueCount":2,"overdueCount":1,"levelHistogram":[1,1,0,0,1,1]}`, rec.Body.String())
}

func TestUpdateItem(t *testing.T) {
	m := &MockReviewService{record: &store.ProgressRecord{UserID: 5, ItemID: "apple", IsDifficult: true}}
	e, _ := newTestServer(m)

	rec := doRequest(e, http.MethodPatch, "/api/v1/users/5/items/apple", `{"isDifficult":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "apple", m.gotItemID)
	assert.True(t, m.gotDifficult)
	assert.Equal(t, true, decode[map[string]any](t, rec)["isDifficult"])

	rec = doRequest(e, http.MethodPatch, "/api/v1/users/5/items/apple", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "isDifficult is required")

	m.err = engineerrors.RecordConflict("conflict", store.ErrRecordConflict)
	rec = doRequest(e, http.MethodPatch, "/api/v1/users/5/items/apple", `{"isDifficult":false}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListSessions(t *testing.T) {
	m := &MockReviewService{sessions: []*store.StudySession{{
		UID:          "s1",
		SessionType:  "review",
		TotalItems:   3,
		CorrectItems: 2,
		CompletedTs:  time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC).Unix(),
	}}}
	e, _ := newTestServer(m)

	rec := doRequest(e, http.MethodGet, "/api/v1/users/5/sessions?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, m.gotLimit)

	body := decode[struct {
		Sessions []SessionResponse `json:"sessions"`
	}](t, rec)
	require.Len(t, body.Sessions, 1)
	assert.Equal(t, "s1", body.Sessions[0].SessionID)
	assert.True(t, body.Sessions[0].CompletedAt.Equal(time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)))
}

func TestGetMetricsOverview(t *testing.T) {
	e, metrics := newTestServer(&MockReviewService{})
	metrics.Observe(observability.OperationGetStats, 10*time.Millisecond, nil)
	metrics.Observe(observability.OperationGetStats, 30*time.Millisecond, assert.AnError)
	metrics.Observe(observability.OperationGeneratePlan, 50*time.Millisecond, nil)

	rec := doRequest(e, http.MethodGet, "/api/v1/system/metrics/overview", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[MetricsOverviewResponse](t, rec)
	assert.Equal(t, int64(3), body.TotalRequests)
	assert.Equal(t, int64(1), body.ErrorCount)
	assert.InDelta(t, 66.67, body.SuccessRate, 0.01)
	assert.Equal(t, int64(30), body.AvgLatencyMs)
	assert.Equal(t, int64(50), body.P95LatencyMs)
	require.Contains(t, body.Operations, observability.OperationGetStats)
	assert.Equal(t, int64(2), body.Operations[observability.OperationGetStats].ExecutionCount)
}
