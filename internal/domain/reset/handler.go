package reset

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/dhos/janitor/internal/platform/jobs"
)

const (
	defaultGDMPatients  = 12
	defaultDBMPatients  = 18
	defaultSENDPatients = 12
)

// Handler serves POST /dhos/v1/reset_task.
type Handler struct {
	svc       *Service
	store     jobs.Store
	logger    zerolog.Logger
	allowDrop bool
}

func NewHandler(svc *Service, store jobs.Store, allowDrop bool, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, store: store, allowDrop: allowDrop, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/reset_task", h.ResetTask)
}

type resetBody struct {
	Targets []string `json:"targets"`
}

func (h *Handler) ResetTask(c echo.Context) error {
	if !h.allowDrop {
		return echo.NewHTTPError(http.StatusForbidden, "dropping data is disabled")
	}

	req, err := requestFromQuery(c.QueryParam)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var body resetBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Targets = body.Targets

	logger := h.logger
	if l := zerolog.Ctx(c.Request().Context()); l.GetLevel() != zerolog.Disabled {
		logger = *l
	}
	runner := jobs.NewRunner(h.store, logger, "reset")
	return jobs.Launch(c, runner, func(ctx context.Context) (any, error) {
		return h.svc.Reset(ctx, req)
	})
}

// requestFromQuery reads patient counts and the optional generated hierarchy
// size. The hierarchy is only requested when both counts are positive.
func requestFromQuery(param func(string) string) (Request, error) {
	var (
		req Request
		err error
	)
	if req.Products.GDM, err = intParam(param, "num_gdm_patients", defaultGDMPatients); err != nil {
		return req, err
	}
	if req.Products.DBM, err = intParam(param, "num_dbm_patients", defaultDBMPatients); err != nil {
		return req, err
	}
	if req.Products.SEND, err = intParam(param, "num_send_patients", defaultSENDPatients); err != nil {
		return req, err
	}
	hospitals, err := intParam(param, "num_hospitals", 0)
	if err != nil {
		return req, err
	}
	wards, err := intParam(param, "num_wards", 0)
	if err != nil {
		return req, err
	}
	if hospitals > 0 && wards > 0 {
		req.Locations = &LocationConfig{Hospitals: hospitals, Wards: wards}
	}
	return req, nil
}

func intParam(param func(string) string, name string, def int) (int, error) {
	raw := param(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}
