package vaccination

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler serves the vaccination schedule endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the schedule and status routes under /babies/:babyId.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	babies := api.Group("/babies/:babyId")
	babies.GET("/schedule", h.GetSchedule)
	babies.GET("/vaccinations", h.ListVaccinations)
	babies.GET("/vaccinations/:entryId", h.GetVaccinationStatus)
	babies.POST("/vaccination-status", h.UpdateVaccinationStatus)
	babies.GET("/age", h.GetAge)
	babies.GET("/due", h.GetEligibility)
}

// HTTPError translates service and upstream errors into echo errors. Only
// validation messages reach the client verbatim; everything else gets a fixed
// message and keeps the cause as the internal error for logging.
func HTTPError(err error) error {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve)
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "baby or vaccination record not found").SetInternal(err)
	case errors.Is(err, ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, "not authorized for this baby").SetInternal(err)
	case errors.Is(err, ErrUpstream):
		return echo.NewHTTPError(http.StatusBadGateway, "vaccination records are unavailable, try again later").SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
}

func (h *Handler) GetSchedule(c echo.Context) error {
	view, err := h.svc.Schedule(c.Request().Context(), c.Param("babyId"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) ListVaccinations(c echo.Context) error {
	list, err := h.svc.ListVaccines(c.Request().Context(), c.Param("babyId"),
		c.QueryParam("category"), c.QueryParam("status"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) GetVaccinationStatus(c echo.Context) error {
	e, err := h.svc.Status(c.Request().Context(), c.Param("babyId"), c.Param("entryId"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) UpdateVaccinationStatus(c echo.Context) error {
	var upd StatusUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	e, err := h.svc.UpdateStatus(c.Request().Context(), c.Param("babyId"), &upd)
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) GetAge(c echo.Context) error {
	view, err := h.svc.Age(c.Request().Context(), c.Param("babyId"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) GetEligibility(c echo.Context) error {
	view, err := h.svc.Eligibility(c.Request().Context(), c.Param("babyId"), c.QueryParam("category"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, view)
}
