package serviceutils

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/locvowork/conductores_admin/internal/domain"
	"github.com/locvowork/conductores_admin/internal/logger"
)

// Response is the envelope every JSON endpoint answers with.
type Response struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    interface{}         `json:"data,omitempty"`
	Errors  []domain.FieldError `json:"errors,omitempty"`
}

func ResponseSuccess(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ResponseError answers {success:false}. An *domain.APIError decides the status
// and message; any other error uses the given status and message.
func ResponseError(c echo.Context, status int, message string, err error) error {
	resp := Response{Success: false, Message: message}

	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		status = StatusFor(apiErr, status)
		if apiErr.Message != "" {
			resp.Message = apiErr.Message
		}
		resp.Errors = apiErr.Fields
	}

	ctx := c.Request().Context()
	if status >= http.StatusInternalServerError {
		logger.ErrorLog(ctx, message, err)
	} else if err != nil {
		logger.WarnLog(ctx, "%s: %v", message, err)
	}
	return c.JSON(status, resp)
}

// StatusFor maps an error kind to the HTTP status returned to the browser.
func StatusFor(apiErr *domain.APIError, fallback int) int {
	switch apiErr.Kind {
	case domain.KindNetwork:
		return http.StatusBadGateway
	case domain.KindValidation:
		return http.StatusUnprocessableEntity
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindRejected:
		if apiErr.Status >= 400 && apiErr.Status <= 599 {
			return apiErr.Status
		}
		return http.StatusBadGateway
	}
	return fallback
}
