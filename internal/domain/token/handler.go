package token

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dhos/janitor/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/clinician/jwt", h.ClinicianJWT)
	api.GET("/patient/:patient_id/jwt", h.PatientJWT)
	api.GET("/system/:system_id/jwt", h.SystemJWT)
}

func (h *Handler) ClinicianJWT(c echo.Context) error {
	email, _, err := auth.ParseBasic(c.Request().Header.Get(echo.HeaderAuthorization))
	if errors.Is(err, auth.ErrNoBasicAuth) {
		return echo.NewHTTPError(http.StatusBadRequest, "basic authorization with the clinician email is required")
	}
	tok, err := h.svc.ClinicianJWT(email, "")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"access_token": tok})
}

func (h *Handler) PatientJWT(c echo.Context) error {
	tok, err := h.svc.PatientJWT(c.Request().Context(), c.Param("patient_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"jwt": tok})
}

func (h *Handler) SystemJWT(c echo.Context) error {
	tok, err := h.svc.SystemJWT(c.Param("system_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"jwt": tok})
}
