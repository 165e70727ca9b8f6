package controllers

import (
	"embed"
	"io"
	"net/http"
	"text/template"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"tryonapi/services"
	"tryonapi/session"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		// Optionally, you could return the error to give each route more control over the status code
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

type Template struct {
	templates *template.Template
}

func (t *Template) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}

//go:embed templates
var embededFiles embed.FS

func SetupServer(
	tryOnService services.TryOnServiceProvider,
	processor services.TryOnProcessor,
	settings services.SettingsProvider,
	sessions *session.Store,
) *echo.Echo {

	e := echo.New()
	templates, err := template.ParseFS(embededFiles, "templates/*.html")
	if err != nil {
		panic(err)
	}
	e.Renderer = &Template{templates: templates}
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
	e.Use(VisitorSessionMiddleware)

	tryOnController := TryOnController{TryOnService: tryOnService, Settings: settings, Sessions: sessions}
	e.GET("/", tryOnController.Home)

	apiGroup := e.Group("/api")
	tryOnController.TryOnRoutes(apiGroup)

	settingsController := SettingsController{Settings: settings}
	settingsController.SettingsRoutes(apiGroup)

	inferenceController := InferenceController{Processor: processor}
	inferenceController.InferenceRoutes(e, apiGroup)

	return e
}
