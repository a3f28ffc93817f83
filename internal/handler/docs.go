package handler

import (
	_ "embed"
	"net/http"

	"github.com/labstack/echo/v4"
)

//go:embed openapi.json
var openAPISpec []byte

// Docs serves the OpenAPI description of the reservation API as raw
// JSON.  The document is embedded at build time; there is no runtime
// generation step.
func Docs(c echo.Context) error {
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, openAPISpec)
}
