package populate

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/dhos/janitor/internal/platform/jobs"
)

type Handler struct {
	svc    *Service
	store  jobs.Store
	logger zerolog.Logger
}

func NewHandler(svc *Service, store jobs.Store, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, store: store, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/populate_gdm_task", h.PopulateTask)
}

// PopulateTask starts a populate run. days defaults to 1 and counts back
// from yesterday.
func (h *Handler) PopulateTask(c echo.Context) error {
	req := Request{Days: 1}
	if raw := c.QueryParam("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "days must be a non-negative integer")
		}
		req.Days = days
	}
	if raw := c.QueryParam("use_system_jwt"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "use_system_jwt must be a boolean")
		}
		req.UseSystemJWT = v
	}

	logger := h.logger
	if l := zerolog.Ctx(c.Request().Context()); l.GetLevel() != zerolog.Disabled {
		logger = *l
	}
	runner := jobs.NewRunner(h.store, logger, "populate")
	return jobs.Launch(c, runner, func(ctx context.Context) (any, error) {
		return h.svc.Populate(ctx, req)
	})
}
