package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type errorView struct {
	Code    int
	Status  string
	Message string
}

// ErrorHandler renders HTTP errors as an HTML page, or as JSON under
// /api.  5xx errors are logged; their details never reach the client.
func ErrorHandler(logger *slog.Logger, fallback base) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		msg := MsgSomethingWentWrong
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if code < http.StatusInternalServerError {
				if m, ok := he.Message.(string); ok {
					msg = m
				}
			}
		}
		if code >= http.StatusInternalServerError {
			logger.Error("unhandled error",
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"status", code,
				"err", err)
		}

		var rerr error
		switch {
		case c.Request().Method == http.MethodHead:
			rerr = c.NoContent(code)
		case strings.HasPrefix(c.Path(), "/api/") || strings.HasPrefix(c.Request().URL.Path, "/api/"):
			rerr = c.JSON(code, echo.Map{"error": msg})
		default:
			rerr = fallback.render(c, code, "error", http.StatusText(code), errorView{
				Code:    code,
				Status:  http.StatusText(code),
				Message: msg,
			})
		}
		if rerr != nil {
			logger.Error("error handler failed", "err", rerr)
		}
	}
}
