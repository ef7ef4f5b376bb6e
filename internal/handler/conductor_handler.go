package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/locvowork/conductores_admin/internal/domain"
	"github.com/locvowork/conductores_admin/internal/form"
	"github.com/locvowork/conductores_admin/internal/service"
	"github.com/locvowork/conductores_admin/internal/service/serviceutils"
	"github.com/locvowork/conductores_admin/internal/store"
)

type ConductorHandler struct {
	svc   *service.ConductorService
	views *store.Registry
}

func NewConductorHandler(svc *service.ConductorService, views *store.Registry) *ConductorHandler {
	return &ConductorHandler{svc: svc, views: views}
}

// ListHandler fetches one page with the requested selection; every call is a fresh upstream request.
func (h *ConductorHandler) ListHandler(c echo.Context) error {
	forwardAuthorization(c)
	view := acquireView(c, h.views)

	params, err := listParamsFromQuery(c.QueryParams())
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid list parameters", err)
	}
	if layout := c.QueryParam("vista"); layout != "" {
		if err := h.svc.SetLayout(view, layout); err != nil {
			return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid layout", err)
		}
	}

	page, err := h.svc.List(c.Request().Context(), view, params)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to list conductores", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Conductores listed successfully", page)
}

func (h *ConductorHandler) StatsHandler(c echo.Context) error {
	view := acquireView(c, h.views)
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Statistics computed successfully", h.svc.Stats(view))
}

// SortHandler reorders the loaded page without calling the API.
func (h *ConductorHandler) SortHandler(c echo.Context) error {
	view := acquireView(c, h.views)
	sorted, err := h.svc.Sort(view, domain.SortDescriptor{
		Field:     c.QueryParam("field"),
		Direction: domain.SortDirection(c.QueryParam("order")),
	})
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Failed to sort conductores", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Conductores sorted successfully", sorted)
}

func (h *ConductorHandler) ExportHandler(c echo.Context) error {
	view := acquireView(c, h.views)
	filename := fmt.Sprintf("conductores_%s.xlsx", time.Now().Format("20060102_150405"))
	if err := h.svc.WriteExport(c.Response(), view, filename); err != nil {
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to export conductores", err)
	}
	return nil
}

func (h *ConductorHandler) GetHandler(c echo.Context) error {
	forwardAuthorization(c)
	id, err := parseID(c)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid conductor ID", err)
	}

	conductor, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to get conductor", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Conductor retrieved successfully", conductor)
}

func (h *ConductorHandler) CreateHandler(c echo.Context) error {
	forwardAuthorization(c)
	view := acquireView(c, h.views)

	var req form.ConductorForm
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}

	created, err := h.svc.Create(c.Request().Context(), view, req)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to create conductor", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusCreated, "Conductor creado exitosamente", created)
}

func (h *ConductorHandler) UpdateHandler(c echo.Context) error {
	forwardAuthorization(c)
	view := acquireView(c, h.views)
	id, err := parseID(c)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid conductor ID", err)
	}

	var req form.ConductorForm
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}

	updated, err := h.svc.Update(c.Request().Context(), view, id, req)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to update conductor", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Conductor actualizado exitosamente", updated)
}

func (h *ConductorHandler) CreateWithAIHandler(c echo.Context) error {
	forwardAuthorization(c)
	view := acquireView(c, h.views)

	var req form.ConductorForm
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}

	ack, err := h.svc.CreateWithAI(c.Request().Context(), view, req, c.Request().Header.Get(HeaderSocketID))
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to start AI processing", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusAccepted, ack.Message, ack)
}

func (h *ConductorHandler) UpdateWithAIHandler(c echo.Context) error {
	forwardAuthorization(c)
	view := acquireView(c, h.views)
	id, err := parseID(c)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid conductor ID", err)
	}

	var req form.ConductorForm
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}

	ack, err := h.svc.UpdateWithAI(c.Request().Context(), view, id, req, c.Request().Header.Get(HeaderSocketID))
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to start AI processing", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusAccepted, ack.Message, ack)
}
