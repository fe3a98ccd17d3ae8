package audit

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nikohealth/trustcore/internal/platform/auth"
	"github.com/nikohealth/trustcore/pkg/pagination"
)

type Handler struct {
	logger *Logger
}

func NewHandler(logger *Logger) *Handler {
	return &Handler{logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/audit", auth.RequirePolicy(auth.ActionReadAuditLog))
	g.GET("/logs", h.SearchLogs)
}

func (h *Handler) SearchLogs(c echo.Context) error {
	pg := pagination.FromContext(c)
	filter := SearchFilter{
		UserID:       c.QueryParam("user_id"),
		Action:       c.QueryParam("action"),
		ResourceType: c.QueryParam("resource_type"),
		Severity:     c.QueryParam("severity"),
	}

	items, total, err := h.logger.Search(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
