package handler

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"

	"github.com/locvowork/conductores_admin/internal/domain"
	"github.com/locvowork/conductores_admin/internal/service"
	"github.com/locvowork/conductores_admin/internal/service/serviceutils"
	"github.com/locvowork/conductores_admin/internal/store"
	"github.com/locvowork/conductores_admin/internal/upload"
)

// FieldArchivo is the multipart part holding an uploaded file.
const FieldArchivo = "archivo"

type DocumentHandler struct {
	staging *service.StagingService
	svc     *service.ConductorService
	views   *store.Registry
}

func NewDocumentHandler(staging *service.StagingService, svc *service.ConductorService, views *store.Registry) *DocumentHandler {
	return &DocumentHandler{staging: staging, svc: svc, views: views}
}

type validateRequest struct {
	Categoria string `json:"categoria"`
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
}

type validateResponse struct {
	Valido  bool                `json:"valido"`
	Motivo  upload.RejectReason `json:"motivo,omitempty"`
	Mensaje string              `json:"mensaje,omitempty"`
}

// StageHandler accepts one file for a category, with optional fecha_vigencia and crop region.
func (h *DocumentHandler) StageHandler(c echo.Context) error {
	view := acquireView(c, h.views)

	fh, err := c.FormFile(FieldArchivo)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Archivo requerido",
			domain.NewValidationError("Archivo requerido", domain.FieldError{Field: FieldArchivo, Message: "obligatorio"}))
	}
	// Size is checked before reading the body into memory.
	rej, err := h.staging.Check(c.Param("categoria"), fh.Filename, fh.Size)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Failed to stage document", err)
	}
	if rej != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, rej.Message,
			domain.NewValidationError(rej.Message, domain.FieldError{Field: FieldArchivo, Message: rej.Message}))
	}
	data, err := readFormFile(fh)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "No se pudo leer el archivo", err)
	}
	region, err := cropRegion(c)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Región de recorte inválida", err)
	}

	doc, err := h.staging.Stage(view, c.Param("categoria"), fh.Filename, data, c.FormValue("fecha_vigencia"), region)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Failed to stage document", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Documento preparado", doc)
}

func (h *DocumentHandler) UnstageHandler(c echo.Context) error {
	view := acquireView(c, h.views)
	if err := h.staging.Remove(view, c.Param("categoria")); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Failed to remove staged document", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Documento retirado", nil)
}

func (h *DocumentHandler) ListStagedHandler(c echo.Context) error {
	view := acquireView(c, h.views)
	return serviceutils.ResponseSuccess(c, http.StatusOK, "", h.staging.List(view))
}

// ValidateHandler runs the size and type rules for a file the browser has not sent yet.
func (h *DocumentHandler) ValidateHandler(c echo.Context) error {
	var req validateRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}
	rej, err := h.staging.Check(req.Categoria, req.Filename, req.Size)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Failed to validate document", err)
	}
	if rej != nil {
		return serviceutils.ResponseSuccess(c, http.StatusOK, rej.Message, validateResponse{Motivo: rej.Reason, Mensaje: rej.Message})
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "", validateResponse{Valido: true})
}

// CropHandler returns the cropped JPEG without staging it.
func (h *DocumentHandler) CropHandler(c echo.Context) error {
	fh, err := c.FormFile(FieldArchivo)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Archivo requerido",
			domain.NewValidationError("Archivo requerido", domain.FieldError{Field: FieldArchivo, Message: "obligatorio"}))
	}
	if rej := upload.Validate(fh.Filename, fh.Size, upload.KindImage); rej != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, rej.Message,
			domain.NewValidationError(rej.Message, domain.FieldError{Field: FieldArchivo, Message: rej.Message}))
	}
	data, err := readFormFile(fh)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "No se pudo leer el archivo", err)
	}
	region, err := cropRegion(c)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Región de recorte inválida", err)
	}

	out, err := h.staging.Crop(fh.Filename, data, region)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Failed to crop image", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, contentDisposition("inline", out.Filename))
	return c.Blob(http.StatusOK, out.ContentType, out.Data)
}

func (h *DocumentHandler) SignedURLHandler(c echo.Context) error {
	forwardAuthorization(c)
	url, err := h.svc.SignedURL(c.Request().Context(), c.QueryParam("key"))
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to sign document URL", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "", map[string]string{"url": url})
}

// DownloadHandler streams the document body through to the browser.
func (h *DocumentHandler) DownloadHandler(c echo.Context) error {
	forwardAuthorization(c)
	id, err := parseID(c)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid document ID", err)
	}

	dl, err := h.svc.Download(c.Request().Context(), id)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to download document", err)
	}
	defer dl.Body.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, contentDisposition("attachment", dl.Filename))
	return c.Stream(http.StatusOK, dl.ContentType, dl.Body)
}

// contentDisposition quotes and escapes filename, falling back to RFC 2231
// encoding for non-ASCII names.
func contentDisposition(kind, filename string) string {
	if v := mime.FormatMediaType(kind, map[string]string{"filename": filename}); v != "" {
		return v
	}
	return kind
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, upload.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return data, nil
}

// cropRegion reads x, y, width and height; all absent means no region.
func cropRegion(c echo.Context) (*upload.CropRegion, error) {
	if c.FormValue("width") == "" && c.FormValue("height") == "" && c.FormValue("x") == "" && c.FormValue("y") == "" {
		return nil, nil
	}
	var r upload.CropRegion
	var fields []domain.FieldError
	for _, p := range []struct {
		name string
		dst  *float64
	}{{"x", &r.X}, {"y", &r.Y}, {"width", &r.Width}, {"height", &r.Height}} {
		v, err := cast.ToFloat64E(strings.TrimSpace(c.FormValue(p.name)))
		if err != nil {
			fields = append(fields, domain.FieldError{Field: p.name, Message: "debe ser numérico"})
			continue
		}
		*p.dst = v
	}
	if len(fields) > 0 {
		return nil, domain.NewValidationError("Región de recorte inválida", fields...)
	}
	return &r, nil
}
