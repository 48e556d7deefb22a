package api

import (
	"errors"
	"net/http"

	"github.com/samcharles93/db2kit/internal/tablestore"
	"github.com/samcharles93/db2kit/pkg/wdc2"
)

var ErrInvalidRequest = errors.New("invalid_request")

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(msg string) error {
	return invalidRequestError{msg: msg}
}

// classify maps an error to an HTTP status and error type.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request_error"
	case errors.Is(err, tablestore.ErrTableNotFound), errors.Is(err, tablestore.ErrRowNotFound):
		return http.StatusNotFound, "not_found_error"
	case errors.Is(err, wdc2.ErrFormat), errors.Is(err, wdc2.ErrBounds):
		return http.StatusUnprocessableEntity, "table_format_error"
	}
	return http.StatusInternalServerError, "server_error"
}
