package ca

import (
	"errors"
	"net/http"
	"strings"

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
	api.POST("/pki/root-ca", h.InitRootCA, auth.RequirePolicy(auth.ActionInitRootCA))
	api.POST("/pki/hospitals", h.RegisterHospital, auth.RequirePolicy(auth.ActionRegisterHospital))
	api.GET("/pki/hospitals", h.ListHospitals)
	api.POST("/pki/hospitals/:id/identity", h.IssueIdentity, auth.RequirePolicy(auth.ActionIssueIdentity))
}

// RegisterPublicRoutes mounts the unauthenticated trust-anchor endpoint.
func (h *Handler) RegisterPublicRoutes(public *echo.Group) {
	public.GET("/pki/root-ca/certificate", h.RootCertificate)
}

func (h *Handler) InitRootCA(c echo.Context) error {
	actorID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}

	result, err := h.svc.InitializeRootCA(c.Request().Context(), actorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !result.Created {
		return c.JSON(http.StatusOK, result)
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) RootCertificate(c echo.Context) error {
	certPEM, err := h.svc.RootCertificate(c.Request().Context())
	if err != nil {
		if errors.Is(err, ErrRootCANotInitialized) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.Blob(http.StatusOK, "application/x-pem-file", []byte(certPEM))
}

type registerHospitalInput struct {
	Name          string  `json:"name"`
	ContactNumber string  `json:"contact_number"`
	Email         string  `json:"email"`
	Province      *string `json:"province"`
	District      *string `json:"district"`
	City          *string `json:"city"`
}

func (h *Handler) RegisterHospital(c echo.Context) error {
	var in registerHospitalInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(in.Name) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	hospital := &Hospital{
		Name:          in.Name,
		ContactNumber: in.ContactNumber,
		Email:         in.Email,
		Province:      in.Province,
		District:      in.District,
		City:          in.City,
	}
	if err := h.svc.RegisterHospital(c.Request().Context(), hospital); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, hospital)
}

func (h *Handler) ListHospitals(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListHospitals(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) IssueIdentity(c echo.Context) error {
	actorID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	hospitalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid hospital id")
	}

	hospital, err := h.svc.IssueHospitalIdentity(c.Request().Context(), actorID, hospitalID)
	if err != nil {
		switch {
		case errors.Is(err, ErrRootCANotInitialized), errors.Is(err, ErrHospitalNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, hospital)
}
