package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/wordloop/internal/profile"
	engineerrors "github.com/hrygo/wordloop/server/internal/errors"
	"github.com/hrygo/wordloop/server/internal/observability"
	"github.com/hrygo/wordloop/server/service/review"
)

type APIV1Service struct {
	Profile       *profile.Profile
	ReviewService review.Service
	Metrics       *observability.Metrics
}

func NewAPIV1Service(profile *profile.Profile, reviewService review.Service, metrics *observability.Metrics) *APIV1Service {
	if metrics == nil {
		metrics = observability.GlobalMetrics()
	}
	return &APIV1Service{
		Profile:       profile,
		ReviewService: reviewService,
		Metrics:       metrics,
	}
}

// RegisterRoutes registers the JSON API with the given Echo instance.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	g := echoServer.Group("/api/v1")

	users := g.Group("/users/:userId")
	users.GET("/reviews", s.ListReviews)
	users.GET("/plan", s.GetPlan)
	users.GET("/plan/export", s.ExportPlan)
	users.POST("/sessions", s.RecordSession)
	users.GET("/sessions", s.ListSessions)
	users.GET("/stats", s.GetStats)
	users.PATCH("/items/:itemId", s.UpdateItem)

	g.GET("/system/metrics/overview", s.GetMetricsOverview)
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondError renders an engine error with its HTTP status. Errors without
// a code are internal and never leak their text.
func respondError(c echo.Context, err error) error {
	code := engineerrors.GetCodeFromError(err, "")
	if code == "" {
		userID, _ := parseUserID(c)
		observability.FromContextOrNew(c.Request().Context(), c.Path(), userID).Error("unhandled api error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Code: "INTERNAL", Message: "internal error"})
	}

	message := string(code)
	var engineErr *engineerrors.EngineError
	if errors.As(err, &engineErr) {
		message = engineErr.Message
	}
	return c.JSON(engineerrors.HTTPStatus(code), ErrorResponse{Code: string(code), Message: message})
}

func parseUserID(c echo.Context) (int32, error) {
	id, err := strconv.ParseInt(c.Param("userId"), 10, 32)
	if err != nil || id <= 0 {
		return 0, engineerrors.InvalidArgumentf("invalid user id %q", c.Param("userId"))
	}
	return int32(id), nil
}

// queryInt reads an integer query parameter, returning fallback when absent.
// requireQueryInt rejects a missing parameter instead of defaulting it.
func requireQueryInt(c echo.Context, name string) (int, error) {
	if c.QueryParam(name) == "" {
		return 0, engineerrors.InvalidArgumentf("%s is required", name)
	}
	return queryInt(c, name, 0)
}

func queryInt(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, engineerrors.InvalidArgumentf("%s must be an integer, got %q", name, raw)
	}
	return n, nil
}
