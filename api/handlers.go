package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"fielddispatch/domain"
)

const commandBodyMaxSize = 1 << 16

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, svc Commander, auth Authenticator, broker *UpdateBroker, logger *log.Logger) {
	e.GET("/api/tasks", getTasks(store, auth, logger))
	e.GET("/api/stream", streamTasks(store, auth, broker))
	e.POST("/api/tasks", createTask(store, auth))
	e.POST("/api/tasks/:id/claim", claimTask(svc, auth))
	e.POST("/api/tasks/:id/assign", assignTask(svc, auth))
	e.POST("/api/tasks/:id/status", advanceStatus(svc, auth))
	e.POST("/api/tasks/:id/cancel", cancelTask(svc, auth))
	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func partitionsFor(tasks []domain.Task, operatorID string) domain.Partitions {
	byID := make(map[string]domain.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	return domain.Partition(byID, operatorID)
}

func getTasks(store Storage, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics := newTaskRequestMetrics(logger)
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		op, authErr := auth.OperatorFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		fetchStart := time.Now()
		tasks, fetchErr := store.ListTasks(c.Request().Context())
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.String(http.StatusInternalServerError, fetchErr.Error())
			return err
		}
		parts := partitionsFor(tasks, op.ID)
		metrics.SetTasksReturned(len(parts.Available) + len(parts.MineActive) + len(parts.MineHistory))
		err = c.JSON(http.StatusOK, parts)
		return err
	}
}

func streamTasks(store Storage, auth Authenticator, broker *UpdateBroker) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if token := c.QueryParam("token"); authHeader == "" && token != "" {
			authHeader = "Bearer " + token
		}
		op, err := auth.OperatorFromAuthHeader(authHeader)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}
		ctx := c.Request().Context()
		ch := broker.subscribe()
		defer broker.unsubscribe(ch)
		for {
			tasks, err := store.ListTasks(ctx)
			if err != nil {
				c.Logger().Error(err)
				return err
			}
			data, err := sonic.ConfigStd.Marshal(partitionsFor(tasks, op.ID))
			if err != nil {
				c.Logger().Error(err)
				return err
			}
			if _, err := c.Response().Write([]byte("data: ")); err != nil {
				return err
			}
			if _, err := c.Response().Write(data); err != nil {
				return err
			}
			if _, err := c.Response().Write([]byte("\n\n")); err != nil {
				return err
			}
			flusher.Flush()
			select {
			case <-ctx.Done():
				return nil
			case <-ch:
				continue
			}
		}
	}
}

type createTaskRequest struct {
	TransferNumber string `json:"transferNumber"`
	Title          string `json:"title"`
	Category       string `json:"category"`
	FromLocation   string `json:"fromLocation"`
	ToLocation     string `json:"toLocation"`
	TransferDate   string `json:"transferDate"`
	TransferTime   string `json:"transferTime"`
	Notes          string `json:"notes"`
	ClientName     string `json:"clientName"`
	ClientPhone    string `json:"clientPhone"`
	GmapLink       string `json:"gmapLink"`
	WorkerID       string `json:"workerId"`
	WorkerName     string `json:"workerName"`
}

func createTask(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		op, err := auth.OperatorFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		if !op.HasRole(domain.RoleDispatchManager) {
			return c.String(http.StatusForbidden, domain.ErrUnauthorizedRole.Error())
		}
		var req createTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if req.Title == "" || req.TransferNumber == "" {
			return c.String(http.StatusBadRequest, "title and transferNumber are required")
		}
		t := domain.Task{
			ID:             uuid.NewString(),
			TransferNumber: req.TransferNumber,
			Title:          req.Title,
			Category:       req.Category,
			FromLocation:   req.FromLocation,
			ToLocation:     req.ToLocation,
			TransferDate:   req.TransferDate,
			TransferTime:   req.TransferTime,
			Notes:          req.Notes,
			ClientName:     req.ClientName,
			ClientPhone:    req.ClientPhone,
			GmapLink:       req.GmapLink,
			WorkerID:       req.WorkerID,
			WorkerName:     req.WorkerName,
			DriverStatus:   domain.StatusPending,
		}
		if err := store.InsertTask(c.Request().Context(), t); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "failed to create task")
		}
		return c.JSON(http.StatusCreated, t)
	}
}

func claimTask(svc Commander, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		op, err := auth.OperatorFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		if !op.HasRole(domain.RoleDriver) {
			return c.String(http.StatusForbidden, domain.ErrUnauthorizedRole.Error())
		}
		t, err := svc.Claim(c.Request().Context(), op, c.Param("id"))
		if err != nil {
			return commandError(c, err)
		}
		return c.JSON(http.StatusOK, t)
	}
}

type assignRequest struct {
	DriverID string `json:"driverId"`
}

func assignTask(svc Commander, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		op, err := auth.OperatorFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req assignRequest
		if err := decodeBody(c, &req); err != nil || req.DriverID == "" {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		t, err := svc.Assign(c.Request().Context(), op, c.Param("id"), req.DriverID)
		if err != nil {
			return commandError(c, err)
		}
		return c.JSON(http.StatusOK, t)
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

func advanceStatus(svc Commander, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		op, err := auth.OperatorFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req statusRequest
		if err := decodeBody(c, &req); err != nil || req.Status == "" {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		t, err := svc.AdvanceStatus(c.Request().Context(), op, c.Param("id"), domain.DriverStatus(req.Status))
		if err != nil {
			return commandError(c, err)
		}
		return c.JSON(http.StatusOK, t)
	}
}

func cancelTask(svc Commander, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		op, err := auth.OperatorFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		t, err := svc.Cancel(c.Request().Context(), op, c.Param("id"))
		if err != nil {
			return commandError(c, err)
		}
		return c.JSON(http.StatusOK, t)
	}
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, commandBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// commandError maps dispatch sentinels onto HTTP statuses. A lost claim race
// is a conflict, not a server failure: the caller refetches and moves on.
func commandError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrTaskNotFound):
		return c.String(http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrTaskTaken):
		return c.String(http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return c.String(http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		return c.String(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrNotOwner), errors.Is(err, domain.ErrUnauthorizedRole):
		return c.String(http.StatusForbidden, err.Error())
	default:
		c.Logger().Error(err)
		return c.String(http.StatusInternalServerError, err.Error())
	}
}
