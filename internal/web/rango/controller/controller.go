// Package controller exposes the rango service over gin.
package controller

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/z-Shi/TangoWithDjango/internal/web/rango/service"
	"github.com/z-Shi/TangoWithDjango/internal/web/session"
	"github.com/z-Shi/TangoWithDjango/library/log"
	"github.com/z-Shi/TangoWithDjango/library/search"
	"github.com/z-Shi/TangoWithDjango/library/visit"
)

const (
	requestTimeout = 10 * time.Second

	sessionKeyVisits    = "visits"
	sessionKeyLastVisit = "last_visit"
)

// Controller serves the rango routes.
type Controller struct {
	svc     *service.Rango
	engine  search.Engine
	tracker *visit.Tracker
	logger  logSDK.Logger
	clock   func() time.Time
}

// Option customises a Controller.
type Option func(*Controller)

// WithLogger sets the fallback logger used when the request carries none.
func WithLogger(logger logSDK.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock replaces time.Now for visit tracking and click-through stamps.
func WithClock(clock func() time.Time) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithTracker replaces the default visit tracker.
func WithTracker(tracker *visit.Tracker) Option {
	return func(c *Controller) {
		if tracker != nil {
			c.tracker = tracker
		}
	}
}

// New constructs a Controller. engine may be nil, in which case search
// requests answer 503.
func New(svc *service.Rango, engine search.Engine, opts ...Option) (*Controller, error) {
	if svc == nil {
		return nil, errors.New("rango service is required")
	}

	c := &Controller{
		svc:     svc,
		engine:  engine,
		tracker: visit.NewTracker(),
		logger:  log.Logger.Named("rango_controller"),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Register mounts every route on r. The session middleware must already
// be installed on r.
func (ctl *Controller) Register(r gin.IRoutes) {
	r.GET("/", ctl.Index)
	r.GET("/about/", ctl.About)
	r.GET("/category/:slug/", ctl.ShowCategory)
	r.POST("/category/:slug/", ctl.ShowCategory)
	r.POST("/add_category/", ctl.AddCategory)
	r.POST("/category/:slug/add_page/", ctl.AddPage)
	r.GET("/goto/", ctl.Goto)
	r.GET("/like_category/", ctl.LikeCategory)
	r.GET("/suggest/", ctl.Suggest)
	r.GET("/search_add_page/", ctl.SearchAddPage)
	r.POST("/search/", ctl.Search)
	r.POST("/register_profile/", ctl.RegisterProfile)
	r.GET("/profile/:username/", ctl.Profile)
	r.POST("/profile/:username/", ctl.UpdateProfile)
	r.GET("/profiles/", ctl.ListProfiles)
}

func (ctl *Controller) log(c *gin.Context) logSDK.Logger {
	if logger := gmw.GetLogger(c); logger != nil {
		return logger.Named("rango")
	}
	return ctl.logger
}

func (ctl *Controller) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// trackVisit runs the visit tracker against the session slots and writes
// the result back. It returns the visit count to display.
func (ctl *Controller) trackVisit(c *gin.Context) (int, error) {
	sess := session.FromGin(c)
	if sess == nil {
		return 0, errors.New("session middleware is not installed")
	}

	state := visit.State{LastVisit: sess.Get(sessionKeyLastVisit)}
	if raw := sess.Get(sessionKeyVisits); raw != "" {
		n, err := strconv.Atoi(raw)
		if err == nil && n < 1 {
			err = errors.Errorf("visit count %d is not positive", n)
		}
		switch {
		case err == nil:
			state.Visits = n
		case ctl.tracker.Policy() == visit.PolicyResetAsFresh:
			state = visit.State{}
		default:
			return 0, &visit.MalformedStateError{Value: raw, Err: err}
		}
	}

	next, err := ctl.tracker.Track(state, ctl.clock())
	if err != nil {
		return 0, err
	}

	sess.SetInt(sessionKeyVisits, next.Visits)
	sess.Set(sessionKeyLastVisit, next.LastVisit)
	return next.Visits, nil
}

// runSearch trims query and asks the engine. Blank queries return no results
// without touching the engine.
func (ctl *Controller) runSearch(ctx context.Context, c *gin.Context, query string) (string, []search.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", []search.SearchResult{}, nil
	}
	if ctl.engine == nil {
		return query, nil, &search.ConfigurationError{Reason: "no search engine configured"}
	}

	results, err := ctl.engine.Search(ctx, query)
	if err != nil {
		return query, nil, errors.Wrapf(err, "search %q", query)
	}

	ctl.log(c).Debug("search done",
		zap.String("engine", ctl.engine.Name()),
		zap.Int("results", len(results)))
	return query, results, nil
}

// writeError maps err onto an HTTP status and a JSON body.
func (ctl *Controller) writeError(c *gin.Context, op string, err error) {
	logger := ctl.log(c).With(zap.String("op", op))

	var (
		status   int
		message  = err.Error()
		upstream *search.UpstreamError
		body     = gin.H{}
	)
	switch {
	case errors.Is(err, service.ErrCategoryNotFound),
		errors.Is(err, service.ErrPageNotFound),
		errors.Is(err, service.ErrProfileNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidCategory),
		errors.Is(err, service.ErrInvalidPage),
		errors.Is(err, service.ErrInvalidProfile),
		errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrDuplicateCategory),
		errors.Is(err, service.ErrDuplicateProfile):
		status = http.StatusConflict
	case visit.IsMalformedState(err):
		status = http.StatusBadRequest
		message = "malformed visit state"
	case search.IsConfigurationError(err):
		logger.Error("search is misconfigured", zap.Error(err))
		status = http.StatusServiceUnavailable
		message = "search is not configured"
	case errors.As(err, &upstream):
		logger.Warn("search upstream failed", zap.Error(err))
		status = http.StatusBadGateway
		message = "search upstream failed"
		if upstream.StatusCode != 0 {
			body["upstream_status"] = upstream.StatusCode
		}
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("request timeout", zap.Error(err))
		status = http.StatusGatewayTimeout
		message = "request timeout"
	default:
		logger.Error("rango request failed", zap.Error(err))
		status = http.StatusInternalServerError
		message = "internal server error"
	}

	if status < http.StatusInternalServerError {
		logger.Debug("rango request rejected", zap.Int("status", status), zap.Error(err))
	}

	body["error"] = message
	c.AbortWithStatusJSON(status, body)
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return errors.Wrapf(errBadRequest, format, args...)
}

func parseID(raw, name string) (uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, badRequest("%s is required", name)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return uint(id), nil
}
