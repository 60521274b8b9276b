package report

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/vaxreport/vaxreport/internal/domain/vaccination"
	"github.com/vaxreport/vaxreport/internal/platform/auth"
	"github.com/vaxreport/vaxreport/pkg/pagination"
)

// Handler serves the report endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	babies := api.Group("/babies/:babyId/reports")
	babies.POST("", h.GenerateReport)
	babies.POST("/preview", h.PreviewReport)
	babies.POST("/share", h.ShareReport)
	babies.POST("/download", h.DownloadReport)
	babies.GET("", h.ListReports)

	api.GET("/reports", h.ListReports)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNothingSelected):
		return echo.NewHTTPError(http.StatusBadRequest, NoticeNothingSelected)
	case errors.Is(err, ErrNoData):
		return echo.NewHTTPError(http.StatusNotFound, NoticeNoData)
	case errors.Is(err, ErrPDFDisabled):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return vaccination.HTTPError(err)
	}
}

func bindSelection(c echo.Context) (Selection, error) {
	var sel Selection
	if err := c.Bind(&sel); err != nil {
		return sel, echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return sel, nil
}

func (h *Handler) GenerateReport(c echo.Context) error {
	sel, err := bindSelection(c)
	if err != nil {
		return err
	}
	rep, err := h.svc.Generate(c.Request().Context(), c.Param("babyId"), sel)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *Handler) PreviewReport(c echo.Context) error {
	sel, err := bindSelection(c)
	if err != nil {
		return err
	}
	markup, _, err := h.svc.Preview(c.Request().Context(), c.Param("babyId"), sel)
	if err != nil {
		return httpError(err)
	}
	return c.HTML(http.StatusOK, markup)
}

// ShareReport streams the PDF to the caller and removes it afterwards.
func (h *Handler) ShareReport(c echo.Context) error {
	sel, err := bindSelection(c)
	if err != nil {
		return err
	}
	path, cleanup, err := h.svc.Share(c.Request().Context(), c.Param("babyId"), sel)
	if err != nil {
		return httpError(err)
	}
	defer cleanup()
	return c.Attachment(path, filepath.Base(path))
}

// DownloadReport saves the PDF into the downloads directory and answers with
// the outcome shown to the user.
func (h *Handler) DownloadReport(c echo.Context) error {
	sel, err := bindSelection(c)
	if err != nil {
		return err
	}
	out, err := h.svc.Download(c.Request().Context(), c.Param("babyId"), sel)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, out)
}

// ListReports lists the archived report requests of one baby, taken from
// the :babyId path param or the baby_id query param.
func (h *Handler) ListReports(c echo.Context) error {
	babyID := c.Param("babyId")
	if babyID == "" {
		babyID = c.QueryParam("baby_id")
	}
	if allowed := auth.BabyIDsFromContext(c.Request().Context()); len(allowed) > 0 && !contains(allowed, babyID) {
		return echo.NewHTTPError(http.StatusForbidden, "access to this baby is not permitted")
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListArchive(c.Request().Context(), babyID, p.Limit, p.Offset)
	if err != nil {
		return httpError(err)
	}
	resp := pagination.NewResponse(items, total, p)
	resp.Next = p.NextURL(c.Request().URL.Path, c.QueryParams(), total)
	return c.JSON(http.StatusOK, resp)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
