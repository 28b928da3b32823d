// Package httpapi exposes the placement service over HTTP using echo.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"roomcore/internal/core"
	"roomcore/pkg/domain"
)

// Logger receives one line per request.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type options struct {
	logger  Logger
	metrics http.Handler
	expvar  http.Handler
}

// Option customises the server.
type Option func(*options)

// WithLogger logs every request.
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetricsHandler mounts h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(o *options) { o.metrics = h }
}

// WithExpvarHandler mounts h at GET /debug/vars.
func WithExpvarHandler(h http.Handler) Option {
	return func(o *options) { o.expvar = h }
}

// New returns an echo instance with every route registered.
func New(svc *core.Service, opts ...Option) *echo.Echo {
	o := options{logger: noopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger(o.logger))
	Register(e, NewHandler(svc))
	if o.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(o.metrics))
	}
	if o.expvar != nil {
		e.GET("/debug/vars", echo.WrapHandler(o.expvar))
	}
	return e
}

// Register maps the API routes onto e.
func Register(e *echo.Echo, h *Handler) {
	e.GET("/healthz", h.Health)

	v1 := e.Group("/v1")
	v1.GET("/scenes", h.ListScenes)
	v1.GET("/scenes/:id/zones", h.ListZones)
	v1.GET("/scenes/:id/detect", h.DetectZone)

	v1.GET("/items", h.ListItems)
	v1.POST("/items", h.PlaceItem)
	v1.GET("/items/:id", h.GetItem)
	v1.PUT("/items/:id/position", h.UpdatePosition)
	v1.PUT("/items/:id/zone", h.MoveToZone)
	v1.DELETE("/items/:id", h.RemoveItem)

	v1.GET("/inventory/unplaced", h.UnplacedFurniture)

	v1.GET("/drag", h.DragSession)
	v1.POST("/drag/start", h.StartDrag)
	v1.POST("/drag/update", h.UpdateDrag)
	v1.POST("/drag/end", h.EndDrag)
	v1.POST("/drag/cancel", h.CancelDrag)

	v1.POST("/snapshot", h.SaveSnapshot)
}

func requestLogger(l Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			started := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req, res := c.Request(), c.Response()
			args := []any{"method", req.Method, "path", c.Path(), "status", res.Status, "duration", time.Since(started)}
			if res.Status >= http.StatusInternalServerError {
				l.Error("http request", args...)
			} else {
				l.Info("http request", args...)
			}
			return nil
		}
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error      string          `json:"error"`
	Violations []violationBody `json:"violations,omitempty"`
}

type violationBody struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	ZoneID   string `json:"zone_id,omitempty"`
	ItemID   string `json:"item_id,omitempty"`
}

func violationsOf(res domain.Result) []violationBody {
	if len(res.Violations) == 0 {
		return nil
	}
	out := make([]violationBody, 0, len(res.Violations))
	for _, v := range res.Violations {
		out = append(out, violationBody{
			Rule:     v.Rule,
			Severity: string(v.Severity),
			Message:  v.Message,
			ZoneID:   v.ZoneID,
			ItemID:   v.ItemID,
		})
	}
	return out
}

// writeError maps service errors onto status codes.
func writeError(c echo.Context, err error) error {
	var violation domain.RuleViolationError
	switch {
	case domain.IsNotFound(err):
		return c.JSON(http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.As(err, &violation):
		return c.JSON(http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Violations: violationsOf(violation.Result)})
	case errors.Is(err, core.ErrNoActiveDrag), errors.Is(err, core.ErrDragInProgress):
		return c.JSON(http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, core.ErrInvalidViewport), errors.Is(err, domain.ErrInvalidPosition):
		return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorBody{Error: msg})
}
