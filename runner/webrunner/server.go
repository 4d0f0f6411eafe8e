package webrunner

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/scraper"
)

const (
	serviceName    = "Universal E-commerce Product Image Scraper API"
	serviceVersion = "2.0"
	maxBodyBytes   = "64K"
)

// Scheduler hands a created job to whatever runs it: the in-process worker
// or the redis queue.
type Scheduler interface {
	ScheduleJob(ctx context.Context, job entities.Job) error
}

type EchoRouter interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

type Server interface {
	Index(c echo.Context) error
	Health(c echo.Context) error
	Scrape(c echo.Context) error
	SubmitJob(c echo.Context) error
	GetJob(c echo.Context) error
	ListJobs(c echo.Context) error
}

func RegisterHandlers(router EchoRouter, si Server) {
	router.GET("/", si.Index).Name = "index"
	router.GET("/api/health", si.Health).Name = "health"
	router.POST("/api/scrape", si.Scrape).Name = "scrape"
	router.POST("/api/jobs", si.SubmitJob).Name = "submit-job"
	router.GET("/api/jobs", si.ListJobs).Name = "list-jobs"
	router.GET("/api/jobs/:id", si.GetJob).Name = "get-job"
}

// NewEcho builds the HTTP server with permissive CORS, panic recovery and
// zap request logging.
func NewEcho(si Server, log *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(log)

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(maxBodyBytes))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, "X-Requested-With", echo.HeaderContentType, echo.HeaderAccept},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)

			return nil
		},
	}))

	RegisterHandlers(e, si)

	return e
}

// errorHandler renders every error as an error record.
func errorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		rec := entities.ErrorRecord{ErrorCode: entities.CodeInternalError, Message: "Something went wrong on the server."}
		code := http.StatusInternalServerError

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code

			switch code {
			case http.StatusNotFound, http.StatusMethodNotAllowed:
				rec = entities.ErrorRecord{ErrorCode: entities.CodeNotFound, Message: "Endpoint not found."}
			default:
				if code < http.StatusInternalServerError {
					rec = entities.ErrorRecord{ErrorCode: "BAD_REQUEST", Message: http.StatusText(code)}
				}
			}
		}

		if code >= http.StatusInternalServerError {
			log.Error("unhandled server error", zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)

			return
		}

		_ = c.JSON(code, rec)
	}
}

type server struct {
	scraper   entities.Scraper
	store     entities.JobStore
	scheduler Scheduler
	started   time.Time
	now       func() time.Time
	log       *zap.Logger
}

func NewServer(s entities.Scraper, store entities.JobStore, scheduler Scheduler, log *zap.Logger) Server {
	if log == nil {
		log = zap.NewNop()
	}

	ans := server{
		scraper:   s,
		store:     store,
		scheduler: scheduler,
		started:   time.Now(),
		now:       time.Now,
		log:       log,
	}

	return &ans
}

type scrapeRequest struct {
	URL string `json:"url"`
}

type jobResponse struct {
	ID         string           `json:"id"`
	URL        string           `json:"url"`
	Status     string           `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Result     *entities.Result `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
}

func toJobResponse(j *entities.Job) jobResponse {
	return jobResponse{
		ID:         j.ID,
		URL:        j.URL,
		Status:     j.Status,
		CreatedAt:  j.CreatedAt,
		FinishedAt: j.FinishedAt,
		Result:     j.Result,
		Error:      j.Error,
	}
}

func (s *server) Index(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"service": serviceName,
		"status":  "Running",
		"endpoints": map[string]string{
			"health": "GET /api/health",
			"scrape": "POST /api/scrape",
			"submit": "POST /api/jobs",
			"jobs":   "GET /api/jobs",
			"job":    "GET /api/jobs/:id",
		},
		"version": serviceVersion,
	})
}

func (s *server) Health(c echo.Context) error {
	now := s.now()

	return c.JSON(http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    now.Sub(s.started).Seconds(),
		"timestamp": now.UTC().Format(time.RFC3339),
	})
}

// bindURL reads and validates the request url. ok is false once the error
// response has been written.
func bindURL(c echo.Context) (string, bool, error) {
	var req scrapeRequest
	if err := c.Bind(&req); err != nil || scraper.ValidateURL(req.URL) != nil {
		return "", false, c.JSON(http.StatusBadRequest, entities.ErrorRecord{
			ErrorCode: entities.CodeInvalidURL,
			Message:   "The provided URL is not valid. Must start with http:// or https://",
		})
	}

	return req.URL, true, nil
}

func (s *server) Scrape(c echo.Context) error {
	u, ok, err := bindURL(c)
	if !ok {
		return err
	}

	s.log.Info("scrape request", zap.String("url", u))

	res, err := s.scraper.Scrape(c.Request().Context(), u)
	if err != nil {
		s.log.Error("scrape failed", zap.String("url", u), zap.Error(err))

		if errors.Is(err, context.DeadlineExceeded) {
			return c.JSON(http.StatusInternalServerError, entities.ErrorRecord{
				ErrorCode: entities.CodeScraperTimeout,
				Message:   "The scraping process took too long and was terminated.",
			})
		}

		return c.JSON(http.StatusInternalServerError, entities.ErrorRecord{
			ErrorCode: entities.CodeScraperFailed,
			Message:   "The scraping process failed.",
		})
	}

	return c.JSON(http.StatusOK, res)
}

func (s *server) SubmitJob(c echo.Context) error {
	u, ok, err := bindURL(c)
	if !ok {
		return err
	}

	ctx := c.Request().Context()

	job := entities.Job{
		ID:  uuid.New().String(),
		URL: u,
	}

	if err := s.store.CreateJob(ctx, &job); err != nil {
		return err
	}

	if err := s.scheduler.ScheduleJob(ctx, job); err != nil {
		if serr := s.store.SetJobError(ctx, job.ID, err.Error()); serr != nil {
			s.log.Error("cannot record job error", zap.String("job_id", job.ID), zap.Error(serr))
		}

		if errors.Is(err, entities.ErrOtherJobRunning) {
			return c.JSON(http.StatusServiceUnavailable, entities.ErrorRecord{
				ErrorCode: entities.CodeScraperFailed,
				Message:   "Another scrape is running, try again shortly.",
			})
		}

		return err
	}

	return c.JSON(http.StatusAccepted, toJobResponse(&job))
}

func (s *server) GetJob(c echo.Context) error {
	job, err := s.store.GetJob(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, entities.ErrJobNotFound) {
			return c.JSON(http.StatusNotFound, entities.ErrorRecord{
				ErrorCode: entities.CodeNotFound,
				Message:   "Job not found.",
			})
		}

		return err
	}

	return c.JSON(http.StatusOK, toJobResponse(&job))
}

func (s *server) ListJobs(c echo.Context) error {
	jobs, err := s.store.SelectAllJobs(c.Request().Context())
	if err != nil {
		return err
	}

	items := make([]jobResponse, len(jobs))
	for i := range jobs {
		items[i] = toJobResponse(&jobs[i])
	}

	return c.JSON(http.StatusOK, map[string]any{"jobs": items})
}
