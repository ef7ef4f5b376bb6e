package handler

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"

	"github.com/locvowork/conductores_admin/internal/domain"
	"github.com/locvowork/conductores_admin/internal/repository"
	"github.com/locvowork/conductores_admin/internal/repository/builder"
	"github.com/locvowork/conductores_admin/internal/store"
)

// HeaderVistaID identifies the browser view whose records and staging are used.
const HeaderVistaID = "X-Vista-ID"

// HeaderSocketID carries the notification socket id on AI requests.
const HeaderSocketID = "socket-id"

// forwardAuthorization makes upstream calls made with the request context carry the caller's Authorization header.
func forwardAuthorization(c echo.Context) {
	req := c.Request()
	ctx := repository.WithAuthorization(req.Context(), req.Header.Get(echo.HeaderAuthorization))
	c.SetRequest(req.WithContext(ctx))
}

// acquireView resolves the view for the request and echoes its id back.
func acquireView(c echo.Context, views *store.Registry) *store.RecordStore {
	view := views.Acquire(c.Request().Header.Get(HeaderVistaID))
	c.Response().Header().Set(HeaderVistaID, view.ID())
	return view
}

// listParamsFromQuery reads page, sort, search, facets and ranges.
func listParamsFromQuery(q url.Values) (domain.ListParams, error) {
	var p domain.ListParams
	var fields []domain.FieldError

	intParam := func(name string) int {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			return 0
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fields = append(fields, domain.FieldError{Field: name, Message: "debe ser un entero positivo"})
			return 0
		}
		return n
	}
	floatParam := func(name string) *float64 {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			return nil
		}
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			fields = append(fields, domain.FieldError{Field: name, Message: "debe ser numérico"})
			return nil
		}
		return &f
	}

	p.Page = intParam(builder.ParamPage)
	p.Limit = intParam(builder.ParamLimit)
	p.Selection.Search = q.Get(builder.ParamSearch)
	p.Selection.Fechas = domain.DateRange{
		From: strings.TrimSpace(q.Get(builder.ParamFechaDesde)),
		To:   strings.TrimSpace(q.Get(builder.ParamFechaHasta)),
	}
	p.Selection.Salario = domain.SalaryRange{
		Min: floatParam(builder.ParamSalarioMin),
		Max: floatParam(builder.ParamSalarioMax),
	}

	for _, name := range domain.Facets {
		values := q[name]
		if len(values) == 0 {
			continue
		}
		if p.Selection.Facets == nil {
			p.Selection.Facets = make(map[string][]string)
		}
		p.Selection.Facets[name] = values
	}

	if field := strings.TrimSpace(q.Get(builder.ParamSort)); field != "" {
		p.Sort = domain.SortDescriptor{
			Field:     field,
			Direction: domain.ParseSortDirection(q.Get(builder.ParamOrder)),
		}
	}

	if len(fields) > 0 {
		return p, domain.NewValidationError("Parámetros de búsqueda inválidos", fields...)
	}
	return p, nil
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("Identificador no válido", domain.FieldError{Field: "id", Message: "debe ser un entero positivo"})
	}
	return id, nil
}
