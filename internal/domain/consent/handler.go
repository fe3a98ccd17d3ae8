package consent

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nikohealth/trustcore/internal/platform/auth"
	"github.com/nikohealth/trustcore/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/access/requests", h.RequestAccess, auth.RequirePolicy(auth.ActionRequestAccess))
	api.GET("/access/requests", h.ListPending, auth.RequirePolicy(auth.ActionListRequests))
	api.POST("/access/requests/:id/approve", h.Approve, auth.RequirePolicy(auth.ActionDecideRequest))
	api.POST("/access/requests/:id/reject", h.Reject, auth.RequirePolicy(auth.ActionDecideRequest))
}

type requestAccessInput struct {
	PatientID string `json:"patient_id"`
}

func (h *Handler) RequestAccess(c echo.Context) error {
	doctorID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}

	var in requestAccessInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	patientID, err := uuid.Parse(in.PatientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	if patientID == doctorID {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot request access to your own record")
	}

	out, err := h.svc.RequestAccess(c.Request().Context(), doctorID, patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if out.AlreadyPending {
		return c.JSON(http.StatusOK, out)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *Handler) ListPending(c echo.Context) error {
	patientID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.PatientPendingRequests(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Approve(c echo.Context) error {
	callerID, requestID, httpErr := h.decisionParams(c)
	if httpErr != nil {
		return httpErr
	}

	g, err := h.svc.ApproveAccess(c.Request().Context(), callerID, requestID)
	if err != nil {
		return decisionError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": StatusApproved,
		"grant":  g,
	})
}

func (h *Handler) Reject(c echo.Context) error {
	callerID, requestID, httpErr := h.decisionParams(c)
	if httpErr != nil {
		return httpErr
	}

	req, err := h.svc.RejectAccess(c.Request().Context(), callerID, requestID)
	if err != nil {
		return decisionError(err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) decisionParams(c echo.Context) (callerID, requestID uuid.UUID, httpErr error) {
	callerID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	requestID, err = uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}
	return callerID, requestID, nil
}

func decisionError(err error) error {
	switch {
	case errors.Is(err, ErrRequestNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotRequestOwner):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrRequestAlreadyDecided):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
