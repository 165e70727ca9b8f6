package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"

	"tryonapi/models"
	"tryonapi/services"
	"tryonapi/session"
)

const genericSubmitError = "An error occurred during processing"

type HomePageData struct {
	DarkMode      bool
	PersonPreview string
	ClothPreview  string
	Current       *models.TryOnResult
	Gallery       []models.TryOnResult
	Submitting    bool
}

type TryOnController struct {
	TryOnService services.TryOnServiceProvider
	Settings     services.SettingsProvider
	Sessions     *session.Store
}

func (controller *TryOnController) TryOnRoutes(g *echo.Group) {
	g.POST("/uploads/:slot", controller.UploadImage)
	g.DELETE("/uploads/:slot", controller.RemoveImage)
	g.POST("/try-on/submit", controller.Submit)
	g.GET("/history", controller.History)
}

func (controller *TryOnController) Home(c echo.Context) error {
	visitor := visitorID(c)

	darkMode, err := controller.Settings.GetDarkMode(c.Request().Context(), visitor)
	if err != nil {
		// Render with the default theme rather than failing the page.
		sentry.CaptureException(err)
	}

	data := HomePageData{
		DarkMode:      darkMode,
		PersonPreview: controller.Sessions.Preview(visitor, session.SlotPerson),
		ClothPreview:  controller.Sessions.Preview(visitor, session.SlotCloth),
		Gallery:       controller.Sessions.Gallery(visitor),
		Submitting:    controller.Sessions.Submitting(visitor),
	}
	if current, ok := controller.Sessions.Current(visitor); ok {
		data.Current = &current
	}
	return c.Render(http.StatusOK, "index.html", data)
}

// UploadImage is the intake step: validate one candidate file, derive its
// preview and commit it into the visitor's slot.
func (controller *TryOnController) UploadImage(c echo.Context) error {
	slot, ok := session.ParseSlot(c.Param("slot"))
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown upload slot"})
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No file was provided"})
	}
	if fileHeader.Size >= models.MaxImageBytes {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Image must be smaller than 10MB!"})
	}

	visitor := visitorID(c)
	// Reserve the generation before the suspending read below; a slower
	// older read can then never overwrite a newer selection.
	generation := controller.Sessions.BeginUpload(visitor, slot)

	src, err := fileHeader.Open()
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[Visitor %s] failed to open upload %s: %w", visitor, fileHeader.Filename, err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to read the uploaded file"})
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[Visitor %s] failed to read upload %s: %w", visitor, fileHeader.Filename, err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to read the uploaded file"})
	}

	mimeType := services.DetectImageMimeType(fileHeader.Header.Get("Content-Type"), content)
	if !services.IsImageMimeType(mimeType) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "You can only upload image files!"})
	}

	image := &models.UploadedImage{
		FileName: fileHeader.Filename,
		MimeType: mimeType,
		Size:     int64(len(content)),
		Data:     content,
	}
	preview := services.ImageDataURI(mimeType, content)

	if !controller.Sessions.CommitUpload(visitor, slot, generation, image, preview) {
		fmt.Printf("[Visitor %s] Discarding stale %s upload, generation %v\n", visitor, slot, generation)
		return c.JSON(http.StatusConflict, map[string]string{"error": "Superseded by a newer selection"})
	}

	return c.JSON(http.StatusOK, models.UploadedImageOut{
		Preview:    preview,
		FileName:   image.FileName,
		MimeType:   image.MimeType,
		Size:       image.Size,
		Generation: generation,
	})
}

func (controller *TryOnController) RemoveImage(c echo.Context) error {
	slot, ok := session.ParseSlot(c.Param("slot"))
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown upload slot"})
	}

	controller.Sessions.ClearSlot(visitorID(c), slot)
	return c.NoContent(http.StatusNoContent)
}

// Submit runs the whole submission workflow: precondition check, single
// in-flight guard, the service round-trip and history promotion.
func (controller *TryOnController) Submit(c echo.Context) error {
	var req models.TryOnSubmitIn
	if err := c.Bind(&req); err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	visitor := visitorID(c)
	person, cloth := controller.Sessions.Images(visitor)
	if person == nil || cloth == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Please upload both person and cloth images"})
	}

	if !controller.Sessions.BeginSubmit(visitor) {
		return c.JSON(http.StatusConflict, map[string]string{"error": "A try-on is already being processed, please wait"})
	}
	defer controller.Sessions.EndSubmit(visitor)

	tryOnReq := &models.TryOnRequest{
		PersonImage:  person,
		ClothImage:   cloth,
		Instructions: req.Instructions,
		Attributes: models.AttributeSelection{
			ModelType:   req.ModelType,
			Gender:      req.Gender,
			GarmentType: req.GarmentType,
			Style:       req.Style,
		},
	}

	response, err := controller.TryOnService.GenerateTryOn(c.Request().Context(), tryOnReq)
	if err != nil {
		message := genericSubmitError
		var serviceErr *services.TryOnServiceError
		if errors.As(err, &serviceErr) && serviceErr.Message != "" {
			message = serviceErr.Message
		}
		fmt.Printf("[Visitor %s] Try-on submission failed: %v\n", visitor, err)
		sentry.CaptureException(err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": message})
	}

	result := controller.Sessions.Record(visitor, response.Image, response.Text)
	fmt.Printf("[Visitor %s] Try-on completed, result %v\n", visitor, result.ID)
	return c.JSON(http.StatusCreated, result)
}

func (controller *TryOnController) History(c echo.Context) error {
	visitor := visitorID(c)

	out := models.HistoryOut{Gallery: controller.Sessions.Gallery(visitor)}
	if current, ok := controller.Sessions.Current(visitor); ok {
		out.Current = &current
	}
	return c.JSON(http.StatusOK, out)
}
