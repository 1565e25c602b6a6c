package api

import (
	"net/http"
	"strings"

	"FollowFeed/internal/domain/models"
	"FollowFeed/internal/service/notify"
	"FollowFeed/internal/usecase"
	xhttp "FollowFeed/pkg/http"
	xlogger "FollowFeed/pkg/logger"

	"github.com/labstack/echo/v4"
)

type MarketHandler struct {
	logger *xlogger.Logger
	feed   *usecase.MarketFeed
	inbox  *notify.Inbox
}

func NewMarketHandler(logger *xlogger.Logger, feed *usecase.MarketFeed, inbox *notify.Inbox) *MarketHandler {
	return &MarketHandler{logger: logger, feed: feed, inbox: inbox}
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/market")
	g.GET("/prices", h.Prices)
	g.GET("/prices/:symbol", h.Price)
	g.GET("/alerts", h.Alerts)
	g.POST("/alerts", h.CreateAlert)
	g.DELETE("/alerts/:id", h.CancelAlert)

	e.GET("/api/notifications", h.Notifications)
}

func (h *MarketHandler) Prices(c echo.Context) error {
	view := models.MarketView{
		Status: h.feed.Status(),
		Prices: h.feed.Prices(),
	}
	if ts, ok := h.feed.LastUpdate(); ok {
		view.LastUpdate = &ts
	}
	return xhttp.SuccessResponse(c, view)
}

// Price reports zeros for symbols the feed has not seen.
func (h *MarketHandler) Price(c echo.Context) error {
	req := &models.SymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	sym := strings.ToUpper(req.Symbol)
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"symbol":    sym,
		"price":     h.feed.GetPrice(sym),
		"change24h": h.feed.GetPriceChange(sym),
	})
}

func (h *MarketHandler) Alerts(c echo.Context) error {
	alerts := h.feed.Alerts()
	return xhttp.ListResponse(c, alerts, int64(len(alerts)))
}

func (h *MarketHandler) CreateAlert(c echo.Context) error {
	req := &models.PriceAlertRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sym := strings.ToUpper(req.Symbol)
	alert, ok := h.feed.CreatePriceAlert(sym, req.TargetPrice, models.AlertDirection(req.Direction))
	if !ok {
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_NO_PRICE", "symbol", "no price snapshot for "+sym, http.StatusBadRequest).WithParam("symbol", sym))
	}
	h.logger.Info("price alert created",
		xlogger.String("id", alert.ID),
		xlogger.String("symbol", sym),
		xlogger.Float64("target", alert.TargetPrice),
	)
	return xhttp.CreatedResponse(c, alert)
}

func (h *MarketHandler) CancelAlert(c echo.Context) error {
	id := c.Param("id")
	if !h.feed.CancelPriceAlert(id) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("alert %s not found", id))
	}
	return xhttp.NoContentResponse(c)
}

func (h *MarketHandler) Notifications(c echo.Context) error {
	req := &models.NotificationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	items := h.inbox.List(req.Limit)
	return xhttp.ListResponse(c, items, int64(h.inbox.Len()))
}
