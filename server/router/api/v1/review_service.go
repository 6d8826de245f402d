package v1

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/wordloop/plugin/export"
	"github.com/hrygo/wordloop/plugin/srs"
	engineerrors "github.com/hrygo/wordloop/server/internal/errors"
	"github.com/hrygo/wordloop/server/service/review"
	"github.com/hrygo/wordloop/server/timezone"
	"github.com/hrygo/wordloop/store"
)

const (
	defaultPlanDays     = 7
	defaultSessionLimit = 20
)

// ProgressRecordResponse is a learner's progress on one item.
type ProgressRecordResponse struct {
	UserID         int32      `json:"userId"`
	ItemID         string     `json:"itemId"`
	MasteryLevel   int        `json:"masteryLevel"`
	CorrectCount   int        `json:"correctCount"`
	IncorrectCount int        `json:"incorrectCount"`
	LastReviewedAt *time.Time `json:"lastReviewedAt"`
	StudyStreak    int        `json:"studyStreak"`
	IsDifficult    bool       `json:"isDifficult"`
}

// CandidateResponse is a due item with its scheduling view.
type CandidateResponse struct {
	ProgressRecordResponse
	DaysSinceReview  int     `json:"daysSinceReview"`
	RequiredInterval int     `json:"requiredInterval"`
	OverdueDays      int     `json:"overdueDays"`
	Priority         float64 `json:"priority"`
}

type HistogramResponse struct {
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

type DayPlanResponse struct {
	Date                 string              `json:"date"`
	Offset               int                 `json:"offset"`
	Items                []CandidateResponse `json:"items"`
	EstimatedTimeMinutes int                 `json:"estimatedTimeMinutes"`
	Histogram            HistogramResponse   `json:"histogram"`
}

type OutcomeRequest struct {
	ItemID           string `json:"itemId"`
	IsCorrect        bool   `json:"isCorrect"`
	TimeSpentSeconds *int   `json:"timeSpentSeconds,omitempty"`
}

type RecordSessionRequest struct {
	SessionType string           `json:"sessionType"`
	Outcomes    []OutcomeRequest `json:"outcomes"`
}

type ItemResultResponse struct {
	ItemID string                  `json:"itemId"`
	Status string                  `json:"status"`
	Reason string                  `json:"reason,omitempty"`
	Record *ProgressRecordResponse `json:"record,omitempty"`
}

type RecordSessionResponse struct {
	SessionID                string               `json:"sessionId"`
	TotalItems               int                  `json:"totalItems"`
	CorrectItems             int                  `json:"correctItems"`
	EstimatedDurationSeconds int                  `json:"estimatedDurationSeconds"`
	Items                    []ItemResultResponse `json:"items"`
	Canceled                 bool                 `json:"canceled"`
	Message                  string               `json:"message,omitempty"`
	FailedItemIDs            []string             `json:"failedItemIds"`
}

type StatsResponse struct {
	TotalItems     int   `json:"totalItems"`
	MasteredCount  int   `json:"masteredCount"`
	DueCount       int   `json:"dueCount"`
	OverdueCount   int   `json:"overdueCount"`
	LevelHistogram []int `json:"levelHistogram"`
}

type SessionResponse struct {
	SessionID                string    `json:"sessionId"`
	SessionType              string    `json:"sessionType"`
	TotalItems               int       `json:"totalItems"`
	CorrectItems             int       `json:"correctItems"`
	EstimatedDurationSeconds int       `json:"estimatedDurationSeconds"`
	CompletedAt              time.Time `json:"completedAt"`
}

type UpdateItemRequest struct {
	IsDifficult *bool `json:"isDifficult"`
}

// ListReviews returns the most urgent due items.
// GET /api/v1/users/:userId/reviews?limit=&filter=
func (s *APIV1Service) ListReviews(c echo.Context) error {
	userID, err := parseUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	limit, err := requireQueryInt(c, "limit")
	if err != nil {
		return respondError(c, err)
	}

	candidates, err := s.ReviewService.SearchDue(c.Request().Context(), userID, limit, c.QueryParam("filter"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"items": convertCandidates(candidates, s.ReviewService.Location()),
	})
}

// GetPlan returns the projected plan.
// GET /api/v1/users/:userId/plan?days=
func (s *APIV1Service) GetPlan(c echo.Context) error {
	plans, err := s.plan(c)
	if err != nil {
		return respondError(c, err)
	}
	loc := s.ReviewService.Location()
	days := make([]DayPlanResponse, 0, len(plans))
	for _, plan := range plans {
		days = append(days, convertDayPlan(plan, loc))
	}
	return c.JSON(http.StatusOK, map[string]any{"days": days})
}

// ExportPlan returns the projected plan as an xlsx workbook.
// GET /api/v1/users/:userId/plan/export?days=
func (s *APIV1Service) ExportPlan(c echo.Context) error {
	plans, err := s.plan(c)
	if err != nil {
		return respondError(c, err)
	}
	var buf bytes.Buffer
	if err := export.WritePlan(&buf, plans); err != nil {
		return respondError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="plan-%s.xlsx"`, c.Param("userId")))
	return c.Blob(http.StatusOK, export.ContentType, buf.Bytes())
}

func (s *APIV1Service) plan(c echo.Context) ([]srs.DayPlan, error) {
	userID, err := parseUserID(c)
	if err != nil {
		return nil, err
	}
	days, err := queryInt(c, "days", defaultPlanDays)
	if err != nil {
		return nil, err
	}
	return s.ReviewService.GeneratePlan(c.Request().Context(), userID, days)
}

// RecordSession applies the outcomes of a finished session. A partial write
// still responds 200; the body lists the items to retry.
// POST /api/v1/users/:userId/sessions
func (s *APIV1Service) RecordSession(c echo.Context) error {
	userID, err := parseUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	var request RecordSessionRequest
	if err := c.Bind(&request); err != nil {
		return respondError(c, engineerrors.InvalidArgument("malformed session body"))
	}
	if request.SessionType == "" {
		request.SessionType = "review"
	}

	outcomes := make([]review.Outcome, 0, len(request.Outcomes))
	for _, o := range request.Outcomes {
		outcomes = append(outcomes, review.Outcome{
			ItemID:           o.ItemID,
			IsCorrect:        o.IsCorrect,
			TimeSpentSeconds: o.TimeSpentSeconds,
		})
	}

	result, err := s.ReviewService.RecordSession(c.Request().Context(), userID, outcomes, request.SessionType)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, convertSessionResult(result, s.ReviewService.Location()))
}

// ListSessions returns session history, newest first.
// GET /api/v1/users/:userId/sessions?limit=
func (s *APIV1Service) ListSessions(c echo.Context) error {
	userID, err := parseUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	limit, err := queryInt(c, "limit", defaultSessionLimit)
	if err != nil {
		return respondError(c, err)
	}

	sessions, err := s.ReviewService.ListSessions(c.Request().Context(), userID, limit)
	if err != nil {
		return respondError(c, err)
	}
	response := make([]SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		response = append(response, SessionResponse{
			SessionID:                session.UID,
			SessionType:              session.SessionType,
			TotalItems:               session.TotalItems,
			CorrectItems:             session.CorrectItems,
			EstimatedDurationSeconds: session.EstimatedDurationSeconds,
			CompletedAt:              time.Unix(session.CompletedTs, 0).In(s.ReviewService.Location()),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"sessions": response})
}

// GetStats returns the learner's progress summary.
// GET /api/v1/users/:userId/stats
func (s *APIV1Service) GetStats(c echo.Context) error {
	userID, err := parseUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	stats, err := s.ReviewService.GetStats(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, StatsResponse{
		TotalItems:     stats.TotalItems,
		MasteredCount:  stats.MasteredCount,
		DueCount:       stats.DueCount,
		OverdueCount:   stats.OverdueCount,
		LevelHistogram: stats.LevelHistogram[:],
	})
}

// UpdateItem sets the difficult flag on a studied item.
// PATCH /api/v1/users/:userId/items/:itemId
func (s *APIV1Service) UpdateItem(c echo.Context) error {
	userID, err := parseUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	var request UpdateItemRequest
	if err := c.Bind(&request); err != nil || request.IsDifficult == nil {
		return respondError(c, engineerrors.InvalidArgument("isDifficult is required"))
	}

	record, err := s.ReviewService.SetDifficult(c.Request().Context(), userID, c.Param("itemId"), *request.IsDifficult)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, convertRecord(record, s.ReviewService.Location()))
}

func convertRecord(record *store.ProgressRecord, loc *time.Location) ProgressRecordResponse {
	response := ProgressRecordResponse{
		UserID:         record.UserID,
		ItemID:         record.ItemID,
		MasteryLevel:   record.MasteryLevel,
		CorrectCount:   record.CorrectCount,
		IncorrectCount: record.IncorrectCount,
		StudyStreak:    record.StudyStreak,
		IsDifficult:    record.IsDifficult,
	}
	if record.LastReviewedTs > 0 {
		reviewed := time.Unix(record.LastReviewedTs, 0).In(loc)
		response.LastReviewedAt = &reviewed
	}
	return response
}

func convertCandidates(candidates []srs.Candidate, loc *time.Location) []CandidateResponse {
	response := make([]CandidateResponse, 0, len(candidates))
	for _, candidate := range candidates {
		response = append(response, CandidateResponse{
			ProgressRecordResponse: convertRecord(&candidate.Record, loc),
			DaysSinceReview:        candidate.DaysSinceReview,
			RequiredInterval:       candidate.RequiredInterval,
			OverdueDays:            candidate.OverdueDays,
			Priority:               candidate.Priority,
		})
	}
	return response
}

func convertDayPlan(plan srs.DayPlan, loc *time.Location) DayPlanResponse {
	return DayPlanResponse{
		Date:                 plan.Date.Format(timezone.DateLayout),
		Offset:               plan.Offset,
		Items:                convertCandidates(plan.Items, loc),
		EstimatedTimeMinutes: plan.EstimatedTimeMinutes,
		Histogram: HistogramResponse{
			Easy:   plan.Histogram.Easy,
			Medium: plan.Histogram.Medium,
			Hard:   plan.Histogram.Hard,
		},
	}
}

func convertSessionResult(result *review.SessionResult, loc *time.Location) RecordSessionResponse {
	response := RecordSessionResponse{
		SessionID:                result.SessionID,
		TotalItems:               result.TotalItems,
		CorrectItems:             result.CorrectItems,
		EstimatedDurationSeconds: result.EstimatedDurationSeconds,
		Items:                    make([]ItemResultResponse, 0, len(result.Items)),
		Canceled:                 result.Canceled,
		FailedItemIDs:            result.FailedItemIDs(),
	}
	for _, item := range result.Items {
		itemResponse := ItemResultResponse{
			ItemID: item.ItemID,
			Status: string(item.Status),
			Reason: string(item.Reason),
		}
		if item.Record != nil {
			record := convertRecord(item.Record, loc)
			itemResponse.Record = &record
		}
		response.Items = append(response.Items, itemResponse)
	}
	if len(response.FailedItemIDs) > 0 {
		response.Message = fmt.Sprintf("%d of %d items saved; retry the rest", result.SucceededCount(), len(result.Items))
	}
	return response
}
