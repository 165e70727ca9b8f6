package controllers

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"

	"tryonapi/models"
	"tryonapi/services"
)

type SettingsController struct {
	Settings services.SettingsProvider
}

func (controller *SettingsController) SettingsRoutes(g *echo.Group) {
	g.GET("/settings", controller.GetSettings)
	g.POST("/settings/theme", controller.SetTheme)
}

func (controller *SettingsController) GetSettings(c echo.Context) error {
	darkMode, err := controller.Settings.GetDarkMode(c.Request().Context(), visitorID(c))
	if err != nil {
		fmt.Println(err)
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load settings"})
	}
	return c.JSON(http.StatusOK, models.ThemeOut{DarkMode: darkMode})
}

// SetTheme persists the visitor's theme choice so it survives reloads and
// new sessions.
func (controller *SettingsController) SetTheme(c echo.Context) error {
	var req models.ThemeIn
	if err := c.Bind(&req); err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := controller.Settings.SetDarkMode(c.Request().Context(), visitorID(c), *req.DarkMode); err != nil {
		fmt.Println(err)
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save settings"})
	}
	return c.JSON(http.StatusOK, models.ThemeOut{DarkMode: *req.DarkMode})
}
