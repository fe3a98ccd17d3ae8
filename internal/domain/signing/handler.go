package signing

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nikohealth/trustcore/internal/domain/ca"
	"github.com/nikohealth/trustcore/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	signer := auth.RequirePolicy(auth.ActionSignReport)
	api.POST("/reports", h.CreateReport, signer)
	api.POST("/reports/:id/sign", h.SignReport, signer)
}

// RegisterPublicRoutes mounts the unauthenticated QR verification endpoint.
func (h *Handler) RegisterPublicRoutes(public *echo.Group) {
	public.GET("/verify", h.Verify)
}

type createReportItemInput struct {
	TestName string  `json:"test_name"`
	Result   string  `json:"result"`
	Unit     *string `json:"unit"`
}

type createReportInput struct {
	RecordID   string                  `json:"record_id"`
	ReportType string                  `json:"report_type"`
	ReportDate string                  `json:"report_date"`
	Items      []createReportItemInput `json:"items"`
}

func (h *Handler) CreateReport(c echo.Context) error {
	var in createReportInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	recordID, err := uuid.Parse(in.RecordID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid record_id")
	}
	reportDate, err := time.Parse(reportDateLayout, in.ReportDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "report_date must be YYYY-MM-DD")
	}
	if in.ReportType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "report_type is required")
	}

	report := &LabReport{
		RecordID:   recordID,
		ReportType: in.ReportType,
		ReportDate: reportDate,
	}
	items := make([]*ReportItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, &ReportItem{TestName: it.TestName, Result: it.Result, Unit: it.Unit})
	}

	if err := h.svc.CreateReport(c.Request().Context(), report, items); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, report)
}

type signReportInput struct {
	HospitalID string `json:"hospital_id"`
}

func (h *Handler) SignReport(c echo.Context) error {
	actorID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	reportID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid report id")
	}

	var in signReportInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	hospitalID, err := uuid.Parse(in.HospitalID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid hospital_id")
	}

	report, err := h.svc.SignLabReport(c.Request().Context(), actorID, reportID, hospitalID)
	if err != nil {
		switch {
		case errors.Is(err, ErrReportNotFound),
			errors.Is(err, ErrHospitalIdentityMissing),
			errors.Is(err, ca.ErrHospitalNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, report)
}

// Verify serves the QR link printed on signed documents:
// /verify?id=<report>&s=<signature>&hid=<hospital>.
func (h *Handler) Verify(c echo.Context) error {
	reportID, rerr := uuid.Parse(c.QueryParam("id"))
	signature := c.QueryParam("s")
	hospitalID, herr := uuid.Parse(c.QueryParam("hid"))
	if rerr != nil || herr != nil || signature == "" {
		return c.JSON(http.StatusOK, &VerifyResult{Valid: false, Message: "Missing verification parameters"})
	}

	result, err := h.svc.VerifyReport(c.Request().Context(), reportID, signature, hospitalID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}
