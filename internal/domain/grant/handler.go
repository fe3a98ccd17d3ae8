package grant

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nikohealth/trustcore/internal/platform/auth"
	"github.com/nikohealth/trustcore/pkg/pagination"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/access/check", h.CheckAccess)
	api.GET("/access/grants", h.ListMyGrants, auth.RequirePolicy(auth.ActionViewGrants))
}

// CheckAccess answers whether the calling user may read the given patient's
// record. Any authenticated caller may ask about itself; doctors ask about
// their patients.
func (h *Handler) CheckAccess(c echo.Context) error {
	callerID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}

	patientID, err := uuid.Parse(c.QueryParam("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}

	decision, err := h.store.CheckAccess(c.Request().Context(), callerID, patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, decision)
}

// ListMyGrants lets a patient see who currently holds access to their record.
func (h *Handler) ListMyGrants(c echo.Context) error {
	patientID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}

	pg := pagination.FromContext(c)
	items, total, err := h.store.ActiveGrantsForPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
