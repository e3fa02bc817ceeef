package jobs

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// TaskPath is the route of the task status endpoint.
const TaskPath = "/dhos/v1/task/:task_id"

// TaskLocation returns the status URL for a task id.
func TaskLocation(id string) string {
	return "/dhos/v1/task/" + id
}

// StatusHandler serves GET /dhos/v1/task/:task_id. Running tasks answer 202
// with a Location header pointing back at the same URL, completed tasks 200
// with an empty body and failed tasks 400 with the recorded error.
func StatusHandler(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("task_id")
		task, err := store.Get(c.Request().Context(), id)
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "task not found")
		}
		if err != nil {
			return err
		}

		switch task.Status {
		case StatusRunning:
			c.Response().Header().Set(echo.HeaderLocation, TaskLocation(task.ID))
			return c.NoContent(http.StatusAccepted)
		case StatusComplete:
			return c.NoContent(http.StatusOK)
		case StatusError:
			return c.JSON(http.StatusBadRequest, task.Error)
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "unknown task status")
		}
	}
}

// Launch starts fn on r and answers the request. With ?stream=true the
// connection is held open and keep-alive frames are written until the final
// result; otherwise 202 is returned with the status URL in Location.
func Launch(c echo.Context, r *Runner, fn Func) error {
	ctx := c.Request().Context()
	id, err := r.Start(ctx, fn)
	if errors.Is(err, ErrConflict) {
		return echo.NewHTTPError(http.StatusConflict, "a reset or populate task is already running")
	}
	if err != nil {
		return err
	}

	stream, _ := strconv.ParseBool(c.QueryParam("stream"))
	if !stream {
		c.Response().Header().Set(echo.HeaderLocation, TaskLocation(id))
		return c.JSON(http.StatusAccepted, map[string]string{"uuid": id})
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSONCharsetUTF8)
	resp.Header().Set(echo.HeaderLocation, TaskLocation(id))
	resp.WriteHeader(http.StatusOK)
	if err := r.Stream(ctx, resp, resp.Flush); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return writeErrorFrame(resp, err)
	}
	return nil
}

func writeErrorFrame(resp *echo.Response, err error) error {
	frame := map[string]*TaskError{"error": {Classification: Classify(err), Message: err.Error()}}
	if err := json.NewEncoder(resp).Encode(frame); err != nil {
		return err
	}
	resp.Flush()
	return nil
}
