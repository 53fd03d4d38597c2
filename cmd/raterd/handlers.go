package main

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/judge"
	"github.com/Abhijit-Sethi/humane-ai-rater/models"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/engine"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/flagstore"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/store"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

// registers its collectors globally, so it is only constructed once per process
var promMiddleware = echoprometheus.NewMiddleware("raterd")

func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(slogecho.New(s.logger))
	e.Use(middleware.Recover())
	e.Use(promMiddleware)
	e.Use(otelecho.Middleware("raterd"))
	e.Use(middleware.BodyLimit("1M"))
	e.HTTPErrorHandler = s.errorHandler

	e.GET("/_health", s.HandleHealthCheck)

	e.POST("/v1/ratings", s.HandleSubmitRating)
	e.GET("/v1/aggregates", s.HandleListAggregates)
	e.GET("/v1/aggregates/:platform", s.HandleGetAggregate)
	e.POST("/v1/evaluations", s.HandleEvaluate)

	if s.adminPassword != "" {
		admin := e.Group("/admin", middleware.BasicAuth(s.checkAdminAuth))
		admin.GET("/review", s.HandleListReview)
		admin.POST("/review/:id/reviewed", s.HandleMarkReviewed)
		admin.GET("/stats", s.HandleStats)
	} else {
		s.logger.Warn("admin password not configured, review endpoints disabled")
	}
	return e
}

func (s *Server) checkAdminAuth(user, pass string, c echo.Context) (bool, error) {
	okUser := subtle.ConstantTimeCompare([]byte(user), []byte("admin")) == 1
	okPass := subtle.ConstantTimeCompare([]byte(pass), []byte(s.adminPassword)) == 1
	return okUser && okPass, nil
}

type GenericStatus struct {
	Daemon  string `json:"daemon"`
	Status  string `json:"status"`
	Message string `json:"msg,omitempty"`
}

func (s *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := "internal error"
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		code = he.Code
		msg = http.StatusText(code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	case errors.Is(err, engine.ErrInvalidSubmission), errors.Is(err, judge.ErrInvalidRequest):
		code = http.StatusBadRequest
		msg = err.Error()
	case errors.Is(err, flagstore.ErrNotFound), errors.Is(err, store.ErrRatingNotFound):
		code = http.StatusNotFound
		msg = "not found"
	case errors.Is(err, judge.ErrInvalidOutput):
		code = http.StatusBadGateway
		msg = err.Error()
	}
	if code >= 500 {
		s.logger.Warn("raterd-http-internal-error", "err", err, "path", c.Path())
	}
	if c.Response().Committed {
		return
	}
	if err := c.JSON(code, GenericStatus{Daemon: "raterd", Status: "error", Message: msg}); err != nil {
		s.logger.Error("failed to write error response", "err", err)
	}
}

func (s *Server) HandleHealthCheck(c echo.Context) error {
	if err := s.engine.Ratings.Ping(c.Request().Context()); err != nil {
		s.logger.Error("healthcheck can't connect to database", "err", err)
		return c.JSON(http.StatusServiceUnavailable, GenericStatus{Status: "error", Daemon: "raterd", Message: "can't connect to database"})
	}
	return c.JSON(http.StatusOK, GenericStatus{Status: "ok", Daemon: "raterd"})
}

type ratingRequest struct {
	DeviceID      string `json:"device_id"`
	Platform      string `json:"platform"`
	Polarity      string `json:"polarity"`
	DwellMillis   int64  `json:"dwell_ms"`
	MouseMovement bool   `json:"mouse_movement"`
	Touch         bool   `json:"touch"`
	TabVisible    bool   `json:"tab_visible"`
}

type ratingResponse struct {
	ID               string        `json:"id"`
	Platform         string        `json:"platform"`
	Flags            []models.Flag `json:"flags"`
	TrustWeight      *float64      `json:"trust_weight"`
	Applied          bool          `json:"applied"`
	FlaggedForReview bool          `json:"flagged_for_review"`
	RateLimited      bool          `json:"rate_limited"`
}

func (s *Server) HandleSubmitRating(c echo.Context) error {
	var body ratingRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed rating payload")
	}
	res, err := s.engine.ProcessRating(c.Request().Context(), engine.Submission{
		DeviceID:      body.DeviceID,
		Platform:      models.Platform(body.Platform),
		Polarity:      models.Polarity(body.Polarity),
		DwellMillis:   body.DwellMillis,
		MouseMovement: body.MouseMovement,
		Touch:         body.Touch,
		TabVisible:    body.TabVisible,
	})
	if err != nil {
		return err
	}
	out := ratingResponse{
		ID:               res.Rating.ID,
		Platform:         string(res.Rating.Platform),
		Flags:            res.Flags,
		TrustWeight:      res.TrustWeight,
		Applied:          res.Applied,
		FlaggedForReview: res.FlaggedForReview,
		RateLimited:      res.RateLimited,
	}
	if out.Flags == nil {
		out.Flags = []models.Flag{}
	}
	// rate-limited ratings are recorded too; clients must not resubmit them
	code := http.StatusCreated
	if res.RateLimited {
		code = http.StatusOK
	}
	return c.JSON(code, out)
}

type aggregateView struct {
	Platform      models.Platform `json:"platform"`
	TotalRatings  int64           `json:"total_ratings"`
	PositiveCount int64           `json:"positive_count"`
	NegativeCount int64           `json:"negative_count"`
	WeightedScore float64         `json:"weighted_score"`
	Trend         []int           `json:"trend"`
	UpdatedAt     *time.Time      `json:"updated_at,omitempty"`
}

func newAggregateView(agg *models.PlatformAggregate) aggregateView {
	v := aggregateView{
		Platform:      agg.Platform,
		TotalRatings:  agg.TotalRatings,
		PositiveCount: agg.PositiveCount,
		NegativeCount: agg.NegativeCount,
		WeightedScore: agg.WeightedScore(),
		Trend:         agg.Trend,
	}
	if v.Trend == nil {
		v.Trend = []int{}
	}
	if !agg.UpdatedAt.IsZero() {
		t := agg.UpdatedAt
		v.UpdatedAt = &t
	}
	return v
}

func (s *Server) HandleListAggregates(c echo.Context) error {
	aggs, err := s.engine.ListAggregates(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]aggregateView, 0, len(aggs))
	for i := range aggs {
		out = append(out, newAggregateView(&aggs[i]))
	}
	return c.JSON(http.StatusOK, map[string]any{"aggregates": out})
}

func (s *Server) HandleGetAggregate(c echo.Context) error {
	platform, err := models.ParsePlatform(c.Param("platform"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	agg, err := s.engine.GetAggregate(c.Request().Context(), platform)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newAggregateView(agg))
}

type evaluationRequest struct {
	Platform   string `json:"platform"`
	UserPrompt string `json:"user_prompt"`
	AIResponse string `json:"ai_response"`
}

func (s *Server) HandleEvaluate(c echo.Context) error {
	if s.evaluator == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "judge not configured")
	}
	var body evaluationRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed evaluation payload")
	}
	platform, err := models.ParsePlatform(body.Platform)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ev, err := s.evaluator.Evaluate(c.Request().Context(), judge.Request{
		Platform:   platform,
		UserPrompt: body.UserPrompt,
		AIResponse: body.AIResponse,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ev)
}

// Lists unreviewed queue entries, oldest first. Takes optional 'since' (any common date format) and 'limit' query params.
func (s *Server) HandleListReview(c echo.Context) error {
	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer between 1 and 1000")
		}
		limit = n
	}
	var since time.Time
	if raw := c.QueryParam("since"); raw != "" {
		t, err := dateparse.ParseAny(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unparseable 'since' timestamp")
		}
		since = t.UTC()
	}
	entries, err := s.engine.Flags.ListUnreviewed(c.Request().Context(), since, limit)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []models.FlaggedRating{}
	}
	return c.JSON(http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) HandleMarkReviewed(c echo.Context) error {
	id := c.Param("id")
	if err := s.engine.Flags.MarkReviewed(c.Request().Context(), id, s.engine.Now()); err != nil {
		return err
	}
	entry, err := s.engine.Flags.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

func (s *Server) HandleStats(c echo.Context) error {
	st, err := s.engine.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}
