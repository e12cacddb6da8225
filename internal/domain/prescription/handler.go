package prescription

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/orders/internal/platform/auth"
	"github.com/ehr/orders/pkg/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Read endpoints – admin, physician, nurse, pharmacist
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse", "pharmacist"))
	readGroup.GET("/prescription-groups/:id", h.GetGroup)
	readGroup.GET("/medication-requests/:id", h.GetLine)

	// Write endpoints – admin, physician
	writeGroup := api.Group("", auth.RequireRole("admin", "physician"))
	writeGroup.POST("/prescription-groups", h.CreateGroup)
	writeGroup.PUT("/prescription-groups/:id", h.ReconcileGroup)
}

func httpError(err error) error {
	return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) GetLine(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	l, err := h.svc.GetLine(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) GetGroup(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	g, err := h.svc.LoadGroup(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *Handler) CreateGroup(c echo.Context) error {
	var in GroupInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.CreateGroup(c.Request().Context(), &in)
	if err != nil {
		return writeFailure(c, res, err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) ReconcileGroup(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	dryRun := false
	if v := c.QueryParam("dry_run"); v != "" {
		dryRun, err = strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid dry_run")
		}
	}
	var in GroupInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.ReconcileGroup(c.Request().Context(), id, &in, dryRun)
	if err != nil {
		return writeFailure(c, res, err)
	}
	return c.JSON(http.StatusOK, res)
}

// writeFailure reports a failed create or reconcile. When some mutations were
// already applied the body says how far the sequence got.
func writeFailure(c echo.Context, res *Result, err error) error {
	if res == nil || res.Applied.total() == 0 {
		return httpError(err)
	}
	return c.JSON(apperr.HTTPStatus(err), map[string]interface{}{
		"message": err.Error(),
		"applied": res.Applied,
	})
}
