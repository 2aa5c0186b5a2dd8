package printer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newAdminServer(t *testing.T, drv *fakeDriver, autoPrint bool) (*echo.Echo, *Agent) {
	t.Helper()
	a := connectedAgent(t, drv, autoPrint)
	e := echo.New()
	Register(e, a)
	return e, a
}

func adminRequest(e *echo.Echo, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAdminPrintLogAndPending(t *testing.T) {
	drv := &fakeDriver{}
	e, a := newAdminServer(t, drv, false)
	a.HandleEvent(context.Background(), insertEvent("t1", "Pickup"))

	rec := adminRequest(e, http.MethodGet, "/printlog")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "\"t1\"") {
		t.Fatalf("printlog %d: %s", rec.Code, rec.Body.String())
	}
	rec = adminRequest(e, http.MethodGet, "/pending")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "\"t1\"") {
		t.Fatalf("pending %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAdminReprint(t *testing.T) {
	drv := &fakeDriver{}
	e, a := newAdminServer(t, drv, false)
	a.HandleEvent(context.Background(), insertEvent("t1", "Pickup"))

	rec := adminRequest(e, http.MethodPost, "/tasks/t1/reprint")
	if rec.Code != http.StatusOK {
		t.Fatalf("reprint %d: %s", rec.Code, rec.Body.String())
	}
	if drv.printCount() != 1 {
		t.Fatalf("prints = %d", drv.printCount())
	}
	rec = adminRequest(e, http.MethodPost, "/tasks/nope/reprint")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown task reprint %d", rec.Code)
	}
}

func TestAdminReconnectAndStatus(t *testing.T) {
	drv := &fakeDriver{names: []string{"TM-T20"}}
	e, _ := newAdminServer(t, drv, true)

	rec := adminRequest(e, http.MethodGet, "/printer/status")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "connected") {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	drv.names = []string{"TM-T20", "TM-T88"}
	rec = adminRequest(e, http.MethodPost, "/printer/reconnect")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "TM-T88") {
		t.Fatalf("reconnect %d: %s", rec.Code, rec.Body.String())
	}
}
