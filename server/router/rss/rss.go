// Package rss serves a learner's study plan as an RSS 2.0 feed, one item per day.
package rss

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/labstack/echo/v4"

	"github.com/hrygo/wordloop/internal/profile"
	"github.com/hrygo/wordloop/plugin/srs"
	engineerrors "github.com/hrygo/wordloop/server/internal/errors"
	"github.com/hrygo/wordloop/server/service/review"
	"github.com/hrygo/wordloop/server/timezone"
)

const (
	defaultFeedDays = 7
	// maxItemsInDescription caps how many item ids one day's entry lists.
	maxItemsInDescription = 20
)

type RSSService struct {
	Profile       *profile.Profile
	ReviewService review.Service
}

func NewRSSService(profile *profile.Profile, reviewService review.Service) *RSSService {
	return &RSSService{
		Profile:       profile,
		ReviewService: reviewService,
	}
}

func (s *RSSService) RegisterRoutes(echoServer *echo.Echo) {
	echoServer.GET("/api/v1/users/:userId/plan/rss", s.GetPlanRSS)
}

// GetPlanRSS renders the next days of the learner's plan.
// GET /api/v1/users/:userId/plan/rss?days=
func (s *RSSService) GetPlanRSS(c echo.Context) error {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 32)
	if err != nil || userID <= 0 {
		return c.String(http.StatusBadRequest, "invalid user id")
	}
	days := defaultFeedDays
	if raw := c.QueryParam("days"); raw != "" {
		if days, err = strconv.Atoi(raw); err != nil {
			return c.String(http.StatusBadRequest, "days must be an integer")
		}
	}

	plans, err := s.ReviewService.GeneratePlan(c.Request().Context(), int32(userID), days)
	if err != nil {
		code := engineerrors.GetCodeFromError(err, engineerrors.ErrCodeStoreUnavailable)
		return c.String(engineerrors.HTTPStatus(code), string(code))
	}

	feed := PlanFeed(int32(userID), plans, s.baseURL(c), time.Now())
	rss, err := feed.ToRss()
	if err != nil {
		return c.String(http.StatusInternalServerError, "failed to render feed")
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	return c.String(http.StatusOK, rss)
}

func (s *RSSService) baseURL(c echo.Context) string {
	if s.Profile != nil && s.Profile.InstanceURL != "" {
		return strings.TrimRight(s.Profile.InstanceURL, "/")
	}
	return c.Scheme() + "://" + c.Request().Host
}

// PlanFeed builds the feed for plans. Every day gets an entry, including
// days with nothing due.
func PlanFeed(userID int32, plans []srs.DayPlan, baseURL string, now time.Time) *feeds.Feed {
	link := fmt.Sprintf("%s/api/v1/users/%d/plan", baseURL, userID)
	feed := &feeds.Feed{
		Title:       fmt.Sprintf("Study plan for learner %d", userID),
		Link:        &feeds.Link{Href: link},
		Description: fmt.Sprintf("Review schedule for the next %d days", len(plans)),
		Created:     now,
		Items:       make([]*feeds.Item, 0, len(plans)),
	}

	for _, plan := range plans {
		date := plan.Date.Format(timezone.DateLayout)
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          fmt.Sprintf("%s#%s", link, date),
			Title:       fmt.Sprintf("%s: %d items, about %d min", date, len(plan.Items), plan.EstimatedTimeMinutes),
			Link:        &feeds.Link{Href: fmt.Sprintf("%s?days=%d", link, plan.Offset+1)},
			Description: describe(plan),
			Created:     plan.Date,
		})
	}
	return feed
}

func describe(plan srs.DayPlan) string {
	if len(plan.Items) == 0 {
		return "Nothing due."
	}
	ids := make([]string, 0, min(len(plan.Items), maxItemsInDescription))
	for i, item := range plan.Items {
		if i == maxItemsInDescription {
			break
		}
		ids = append(ids, item.Record.ItemID)
	}
	text := fmt.Sprintf("Easy %d, medium %d, hard %d. Items: %s",
		plan.Histogram.Easy, plan.Histogram.Medium, plan.Histogram.Hard, strings.Join(ids, ", "))
	if extra := len(plan.Items) - len(ids); extra > 0 {
		text += fmt.Sprintf(" and %d more", extra)
	}
	return text
}
