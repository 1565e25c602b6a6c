package api

import (
	"errors"

	"FollowFeed/internal/domain/models"
	"FollowFeed/internal/service/paper"
	xhttp "FollowFeed/pkg/http"
	xlogger "FollowFeed/pkg/logger"

	"github.com/labstack/echo/v4"
)

const maxHistory = 200

type AccountHandler struct {
	logger *xlogger.Logger
	book   *paper.Book
}

func NewAccountHandler(logger *xlogger.Logger, book *paper.Book) *AccountHandler {
	return &AccountHandler{logger: logger, book: book}
}

func (h *AccountHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/accounts")
	g.GET("", h.List)
	g.GET("/current", h.Current)
	g.PUT("/current", h.Select)
}

func (h *AccountHandler) List(c echo.Context) error {
	accounts := h.book.Accounts()
	return xhttp.ListResponse(c, accounts, int64(len(accounts)))
}

// Current returns the selected account and its fills. ?history=N bounds the fills.
func (h *AccountHandler) Current(c echo.Context) error {
	acc := h.book.CurrentAccount()
	if acc == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no account selected"))
	}
	n := xhttp.ClampInt(xhttp.ParseIntDefault(c.QueryParam("history"), 20), 1, maxHistory)
	return xhttp.SuccessResponse(c, models.AccountView{
		Account: acc,
		History: h.book.History(n),
	})
}

func (h *AccountHandler) Select(c echo.Context) error {
	req := &models.SelectAccountRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.book.Select(req.ID); err != nil {
		if errors.Is(err, paper.ErrUnknownAccount) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("account %s not found", req.ID))
		}
		h.logger.Error("select account failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, h.book.CurrentAccount())
}
