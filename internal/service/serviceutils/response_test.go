package serviceutils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/conductores_admin/internal/domain"
)

func call(t *testing.T, fn func(c echo.Context) error) (int, Response) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, fn(c))
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestResponseError(t *testing.T) {
	cases := map[string]struct {
		err        error
		wantStatus int
		wantMsg    string
	}{
		"network":    {domain.NewNetworkError("Sin conexión", errors.New("refused")), http.StatusBadGateway, "Sin conexión"},
		"validation": {domain.NewValidationError("Datos inválidos", domain.FieldError{Field: "email", Message: "x"}), http.StatusUnprocessableEntity, "Datos inválidos"},
		"not found":  {domain.NewNotFoundError("No existe"), http.StatusNotFound, "No existe"},
		"rejected":   {&domain.APIError{Kind: domain.KindRejected, Status: http.StatusConflict, Message: "Duplicado"}, http.StatusConflict, "Duplicado"},
		"rejected without status": {&domain.APIError{Kind: domain.KindRejected}, http.StatusBadGateway, "Falló"},
		"plain error": {errors.New("boom"), http.StatusInternalServerError, "Falló"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			status, resp := call(t, func(c echo.Context) error {
				return ResponseError(c, http.StatusInternalServerError, "Falló", tc.err)
			})
			assert.Equal(t, tc.wantStatus, status)
			assert.False(t, resp.Success)
			assert.Equal(t, tc.wantMsg, resp.Message)
		})
	}
}

func TestResponseErrorCarriesFields(t *testing.T) {
	_, resp := call(t, func(c echo.Context) error {
		return ResponseError(c, http.StatusBadRequest, "x", domain.NewValidationError("Datos", domain.FieldError{Field: "email", Message: "no válido"}))
	})
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "email", resp.Errors[0].Field)
}

func TestResponseSuccess(t *testing.T) {
	status, resp := call(t, func(c echo.Context) error {
		return ResponseSuccess(c, http.StatusCreated, "ok", map[string]int{"id": 1})
	})
	assert.Equal(t, http.StatusCreated, status)
	assert.True(t, resp.Success)
	assert.Equal(t, map[string]interface{}{"id": 1.0}, resp.Data)
}
