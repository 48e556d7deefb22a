package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
)

const headerRequestID = "X-Request-Id"

func writeJSON(c *echo.Context, status int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	w.WriteHeader(status)
	_, err = w.Write(b)
	return err
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg)
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return writeJSON(c, status, map[string]any{
		"error": ResponseError{
			Message:   msg,
			Type:      errType,
			RequestID: c.Response().Header().Get(headerRequestID),
		},
	})
}

func writeErr(c *echo.Context, err error) error {
	status, typ := classify(err)
	return writeError(c, status, typ, err.Error())
}

// requestID tags every request with an id, reusing the caller's if given.
func requestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			id := strings.TrimSpace(c.Request().Header.Get(headerRequestID))
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(headerRequestID, id)
			return next(c)
		}
	}
}

// intQuery parses an optional non-negative integer query parameter.
func intQuery(c *echo.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, newInvalidRequest(name + " must be a non-negative integer")
	}
	return n, nil
}

func parseID(raw string) (int32, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0, newInvalidRequest("row id must be a 32-bit integer")
	}
	return int32(n), nil
}

func hex32(v uint32) string {
	return fmt.Sprintf("%08X", v)
}
