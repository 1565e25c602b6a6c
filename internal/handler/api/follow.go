package api

import (
	"net/http"

	"FollowFeed/internal/domain/models"
	domrepo "FollowFeed/internal/domain/repository"
	"FollowFeed/internal/service/ratelimit"
	"FollowFeed/internal/usecase"
	xhttp "FollowFeed/pkg/http"
	xlogger "FollowFeed/pkg/logger"

	"github.com/labstack/echo/v4"
)

// FollowHandler exposes follow control over HTTP.
type FollowHandler struct {
	logger  *xlogger.Logger
	engine  *usecase.FollowEngine
	limiter *ratelimit.Limiter
	history domrepo.EventStore // nil when ClickHouse is disabled
}

func NewFollowHandler(logger *xlogger.Logger, engine *usecase.FollowEngine, limiter *ratelimit.Limiter, history domrepo.EventStore) *FollowHandler {
	return &FollowHandler{logger: logger, engine: engine, limiter: limiter, history: history}
}

func (h *FollowHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/follow")
	g.GET("", h.State)
	g.PUT("/enabled", h.SetEnabled)
	g.PATCH("/settings", h.UpdateSettings)
	g.POST("/signals/:id", h.FollowSignal)
	g.GET("/history", h.History)
}

func (h *FollowHandler) view() models.FollowView {
	return models.FollowView{
		Following: h.engine.IsFollowing(),
		Settings:  h.engine.Settings(),
		Signals:   h.engine.Signals(),
	}
}

func (h *FollowHandler) State(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.view())
}

func (h *FollowHandler) SetEnabled(c echo.Context) error {
	req := &models.FollowingRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	h.engine.SetFollowing(*req.Enabled)
	return xhttp.SuccessResponse(c, h.view())
}

func (h *FollowHandler) UpdateSettings(c echo.Context) error {
	req := &models.SettingsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.engine.UpdateSettings(req.Patch()))
}

// FollowSignal manually follows one backlog signal.
func (h *FollowHandler) FollowSignal(c echo.Context) error {
	if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many follow requests"))
	}

	req := &models.FollowSignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	result, ok := h.engine.FollowByID(c.Request().Context(), req.ID)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("signal %s is not in the backlog", req.ID))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"id":     req.ID,
		"result": result,
	})
}

// History lists persisted follow outcomes, newest first.
func (h *FollowHandler) History(c echo.Context) error {
	if h.history == nil {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, "follow history store is disabled")
	}
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	events, err := h.history.Recent(c.Request().Context(), req.Limit)
	if err != nil {
		h.logger.Error("follow history query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, events, int64(len(events)))
}
