package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func statusRequest(t *testing.T, store Store, id string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, TaskLocation(id), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("task_id")
	c.SetParamValues(id)
	return rec, StatusHandler(store)(c)
}

func TestStatusHandler_NotFound(t *testing.T) {
	_, err := statusRequest(t, NewMemoryStore(0), "unknown-id")
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestStatusHandler_States(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()
	if err := store.Admit(ctx, &Task{ID: "t1"}); err != nil {
		t.Fatal(err)
	}

	rec, err := statusRequest(t, store, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusAccepted {
		t.Errorf("running: expected 202, got %d", rec.Code)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/dhos/v1/task/t1" {
		t.Errorf("expected Location to point at the status URL, got %q", loc)
	}

	now := time.Now()
	if err := store.Set(ctx, &Task{ID: "t1", Status: StatusComplete, FinishedAt: &now}); err != nil {
		t.Fatal(err)
	}
	rec, err = statusRequest(t, store, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Errorf("complete: expected 200 with empty body, got %d %q", rec.Code, rec.Body.String())
	}

	if err := store.Admit(ctx, &Task{ID: "t2"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(ctx, &Task{ID: "t2", Status: StatusError, FinishedAt: &now,
		Error: &TaskError{Classification: ClassValidation, Message: "unknown target"}}); err != nil {
		t.Fatal(err)
	}
	rec, err = statusRequest(t, store, "t2")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("error: expected 400, got %d", rec.Code)
	}
	var body TaskError
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Classification != ClassValidation || body.Message != "unknown target" {
		t.Errorf("unexpected body %+v", body)
	}
}

func launch(t *testing.T, store Store, target string, fn Func) (*httptest.ResponseRecorder, *Runner, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	r := NewRunner(store, zerolog.Nop(), "reset")
	r.keepAlive = 5 * time.Millisecond
	return rec, r, Launch(c, r, fn)
}

func TestLaunch_Accepted(t *testing.T) {
	store := NewMemoryStore(0)
	release := make(chan struct{})
	defer close(release)

	rec, r, err := launch(t, store, "/dhos/v1/reset_task", func(ctx context.Context) (any, error) {
		<-release
		return nil, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != TaskLocation(r.ID()) {
		t.Errorf("unexpected Location %q", loc)
	}

	_, _, err = launch(t, store, "/dhos/v1/reset_task", func(ctx context.Context) (any, error) { return nil, nil })
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusConflict {
		t.Fatalf("expected 409 while a task is running, got %v", err)
	}
}

func TestLaunch_Stream(t *testing.T) {
	rec, _, err := launch(t, NewMemoryStore(0), "/dhos/v1/reset_task?stream=true", func(ctx context.Context) (any, error) {
		time.Sleep(20 * time.Millisecond)
		return map[string]string{"dhos-services-api": "dropped"}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "\n") || !strings.HasSuffix(body, `{"dhos-services-api":"dropped"}`) {
		t.Errorf("unexpected stream %q", body)
	}
}

func TestLaunch_StreamError(t *testing.T) {
	rec, _, err := launch(t, NewMemoryStore(0), "/dhos/v1/reset_task?stream=true", func(ctx context.Context) (any, error) {
		return nil, &classifiedErr{msg: "down"}
	})
	if err != nil {
		t.Fatal(err)
	}
	frames := strings.TrimLeft(rec.Body.String(), "\n")
	var frame map[string]TaskError
	if err := json.Unmarshal([]byte(frames), &frame); err != nil {
		t.Fatalf("decode final frame %q: %v", frames, err)
	}
	if frame["error"].Classification != ClassServiceUnavailable || frame["error"].Message != "down" {
		t.Errorf("unexpected error frame %+v", frame)
	}
}
