package inventory

import (
	"net/http"
	"strconv"

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
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse", "pharmacist"))
	readGroup.GET("/stock/:kind/:id", h.GetStock)
}

func (h *Handler) GetStock(c echo.Context) error {
	kind, ok := ParseKind(c.Param("kind"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "kind must be medication, item or raw-material")
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	lvl, err := h.svc.GetStock(c.Request().Context(), kind, id)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, lvl)
}
