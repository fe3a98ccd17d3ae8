package emergency

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nikohealth/trustcore/internal/domain/account"
	"github.com/nikohealth/trustcore/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/emergency/break-glass", h.BreakGlass, auth.RequirePolicy(auth.ActionEmergencyAccess))
	api.POST("/emergency/by-national-id", h.ByNationalID, auth.RequirePolicy(auth.ActionEmergencyAccess))
	api.GET("/emergency/patient-search", h.PatientSearch, auth.RequirePolicy(auth.ActionPatientSearch))
}

type breakGlassInput struct {
	PatientID string `json:"patient_id"`
	Reason    string `json:"reason"`
}

func (h *Handler) BreakGlass(c echo.Context) error {
	doctorID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}

	var in breakGlassInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	patientID, err := uuid.Parse(in.PatientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "reason is required")
	}

	result, err := h.svc.ActivateBreakGlass(c.Request().Context(), doctorID, patientID, in.Reason)
	if err != nil {
		return emergencyError(err)
	}
	return c.JSON(http.StatusCreated, result)
}

type byNationalIDInput struct {
	NationalID      string `json:"national_id"`
	Reason          string `json:"reason"`
	CreateIfMissing bool   `json:"create_if_missing"`
}

func (h *Handler) ByNationalID(c echo.Context) error {
	doctorID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}

	var in byNationalIDInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(in.NationalID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "national_id is required")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "reason is required")
	}

	result, err := h.svc.EmergencyAccessByNationalID(c.Request().Context(), doctorID, in.NationalID, in.Reason, in.CreateIfMissing)
	if err != nil {
		return emergencyError(err)
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) PatientSearch(c echo.Context) error {
	doctorID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}

	nationalID := strings.TrimSpace(c.QueryParam("national_id"))
	if nationalID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "national_id is required")
	}

	result, err := h.svc.SearchPatientByNationalID(c.Request().Context(), doctorID, nationalID)
	if err != nil {
		return emergencyError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func emergencyError(err error) error {
	switch {
	case errors.Is(err, ErrNotDoctor):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrPatientNotFound), errors.Is(err, account.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
