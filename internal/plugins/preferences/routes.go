package preferences

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts the language selector endpoint. It sits outside the
// gate: the selector works signed in or out.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.POST("/preferences/language", h.SetLanguage)
}
