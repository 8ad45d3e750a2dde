package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vectorsmith/vectorsmith/store"
)

// toHTTPError maps store-layer errors onto HTTP status codes:
// duplicates are client errors, missing collections are 404, everything
// else is an upstream failure surfaced as 500 with the backend's message.
func toHTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, store.ErrAlreadyExists):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// badRequestBody is returned for bodies that fail to bind or validate.
func badRequestBody(message string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnprocessableEntity, message)
}
