package printer

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"fielddispatch/domain"
)

// Register wires the station-local admin surface onto the given Echo
// instance: print history, the pending queue, manual reprint and printer
// reconnect. The station binds to localhost, so there is no auth layer here.
func Register(e *echo.Echo, agent *Agent) {
	e.GET("/printlog", getPrintLog(agent))
	e.GET("/pending", getPending(agent))
	e.GET("/printer/status", getPrinterStatus(agent))
	e.POST("/printer/reconnect", reconnectPrinter(agent))
	e.POST("/tasks/:id/reprint", reprintTask(agent))
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
}

func getPrintLog(agent *Agent) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, agent.LogEntries())
	}
}

func getPending(agent *Agent) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, agent.PendingTasks())
	}
}

type printerStatus struct {
	State    ConnState `json:"state"`
	Printers []string  `json:"printers"`
}

func getPrinterStatus(agent *Agent) echo.HandlerFunc {
	return func(c echo.Context) error {
		conn := agent.Connection()
		return c.JSON(http.StatusOK, printerStatus{State: conn.State(), Printers: conn.Printers()})
	}
}

func reconnectPrinter(agent *Agent) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := agent.Connection().Reconnect(c.Request().Context()); err != nil {
			return c.String(http.StatusBadGateway, err.Error())
		}
		return c.JSON(http.StatusOK, printerStatus{State: agent.Connection().State(), Printers: agent.Connection().Printers()})
	}
}

func reprintTask(agent *Agent) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := agent.Reprint(c.Request().Context(), c.Param("id"))
		switch {
		case err == nil:
			return c.NoContent(http.StatusOK)
		case errors.Is(err, domain.ErrTaskNotFound):
			return c.String(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrNotConnected):
			return c.String(http.StatusConflict, err.Error())
		default:
			return c.String(http.StatusBadGateway, err.Error())
		}
	}
}
