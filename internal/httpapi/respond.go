package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

const maxRequestBodyBytes = 1 << 20

type apiEnvelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

func success(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, apiEnvelope{Status: "success", Data: data})
}

func accepted(c echo.Context, data any) error {
	return c.JSON(http.StatusAccepted, apiEnvelope{Status: "success", Data: data})
}

func fail(c echo.Context, status int, message string, details any) error {
	return c.JSON(status, apiEnvelope{Status: "fail", Message: message, Details: details})
}

func failValidation(c echo.Context, details map[string]string) error {
	return fail(c, http.StatusBadRequest, "Validation failed", details)
}

func failNotFound(c echo.Context, message string) error {
	return fail(c, http.StatusNotFound, message, nil)
}

func unauthorizedResponse(c echo.Context) error {
	return fail(c, http.StatusUnauthorized, "Authentication required", nil)
}

func internalError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, apiEnvelope{Status: "error", Message: message})
}

func decodeJSONBody(c echo.Context, dest any) error {
	body := http.MaxBytesReader(c.Response(), c.Request().Body, maxRequestBodyBytes)
	defer func() {
		_, _ = io.Copy(io.Discard, body)
	}()

	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if decoder.More() {
		return fmt.Errorf("request body contains trailing content")
	}
	return nil
}
