package api

import (
	"context"
	"errors"

	"TCAVis/internal/domain/models"
	domrepo "TCAVis/internal/domain/repository"
	"TCAVis/internal/service/ratelimit"
	"TCAVis/internal/usecase"
	xhttp "TCAVis/pkg/http"
	xlogger "TCAVis/pkg/logger"

	"github.com/labstack/echo/v4"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ResultsService is what the HTTP layer needs from the results use case.
type ResultsService interface {
	Ingest(ctx context.Context, req *models.ResultSetRequest) (*models.RenderedManifest, error)
	Rerender(ctx context.Context, id string, force bool) (*models.RenderedManifest, error)
	Manifest(ctx context.Context, id string) (*models.RenderedManifest, error)
	Artifact(ctx context.Context, id string, category models.Category, key string) ([]byte, error)
}

// ResultsEchoHandler serves result ingestion, re-rendering and artifact download.
type ResultsEchoHandler struct {
	logger  *xlogger.Logger
	svc     ResultsService
	limiter *ratelimit.Limiter
}

// NewResultsEchoHandler creates the handler. A nil limiter disables ingest rate limiting.
func NewResultsEchoHandler(logger *xlogger.Logger, svc ResultsService, limiter *ratelimit.Limiter) *ResultsEchoHandler {
	return &ResultsEchoHandler{logger: logger, svc: svc, limiter: limiter}
}

func (h *ResultsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/results")
	g.POST("", h.Ingest)
	g.GET("/:id", h.Manifest)
	g.POST("/:id/render", h.Render)
	g.GET("/:id/artifacts/:category/:key", h.Artifact)
}

func (h *ResultsEchoHandler) Ingest(c echo.Context) error {
	if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("ingest rate limit exceeded"))
	}

	req := &models.ResultSetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	m, err := h.svc.Ingest(c.Request().Context(), req)
	if err != nil {
		return h.errorResponse(c, "ingest", err)
	}
	return xhttp.CreatedResponse(c, m)
}

func (h *ResultsEchoHandler) Manifest(c echo.Context) error {
	id := c.Param("id")
	m, err := h.svc.Manifest(c.Request().Context(), id)
	if err != nil {
		return h.errorResponse(c, "manifest", err)
	}
	return xhttp.SuccessResponse(c, m)
}

func (h *ResultsEchoHandler) Render(c echo.Context) error {
	req := &models.RenderRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	// echo binds query params only for GET/DELETE
	if err := echo.QueryParamsBinder(c).Bool("force", &req.Force).BindError(); err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("force must be a boolean"))
	}

	m, err := h.svc.Rerender(c.Request().Context(), req.ID, req.Force)
	if err != nil {
		return h.errorResponse(c, "render", err)
	}
	return xhttp.SuccessResponse(c, m)
}

func (h *ResultsEchoHandler) Artifact(c echo.Context) error {
	req := &models.ArtifactRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	category := models.Category(req.Category)
	body, err := h.svc.Artifact(c.Request().Context(), req.ID, category, req.Key)
	if err != nil {
		return h.errorResponse(c, "artifact", err)
	}

	if category == models.CategoryTable {
		return xhttp.BlobResponse(c, contentTypeXLSX, req.Key+".xlsx", body)
	}
	return xhttp.BlobResponse(c, contentTypeHTML, "", body)
}

func (h *ResultsEchoHandler) errorResponse(c echo.Context, op string, err error) error {
	switch {
	case usecase.IsClientError(err):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithError(err))
	case errors.Is(err, domrepo.ErrNotFound):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("%s", err.Error()).WithParam("id", c.Param("id")).WithError(err))
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn(op+" timed out", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.TimeoutError("rendering timed out").WithError(err))
	default:
		h.logger.Error(op+" failed", xlogger.String("id", c.Param("id")), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("Something went wrong").WithError(err))
	}
}
