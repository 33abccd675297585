package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/tenantdrive/internal/common"
	"github.com/dmitrijs2005/tenantdrive/internal/logging"
	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusOf maps an error to its status and the message the client sees.
func statusOf(err error) (int, string) {
	var httpErr *echo.HTTPError
	var provErr *common.ProviderError

	switch {
	case errors.As(err, &httpErr):
		if msg, ok := httpErr.Message.(string); ok {
			return httpErr.Code, msg
		}
		return httpErr.Code, http.StatusText(httpErr.Code)
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, err.Error()
	case errors.As(err, &provErr):
		return http.StatusInternalServerError, provErr.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func errorHandler(l logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := statusOf(err)
		if code >= http.StatusInternalServerError {
			l.Error(c.Request().Context(), "request failed", "path", c.Path(), "error", err)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, errorResponse{Error: msg})
		}
		if err != nil {
			l.Error(c.Request().Context(), "error response failed", "error", err)
		}
	}
}
