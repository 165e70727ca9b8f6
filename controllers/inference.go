package controllers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"

	"tryonapi/models"
	"tryonapi/services"
)

// InferenceController exposes the raw generation endpoint. The same wire
// contract is what HTTPTryOnService speaks when the app points at a remote
// deployment instead of running the model in-process.
type InferenceController struct {
	Processor services.TryOnProcessor
}

func (controller *InferenceController) InferenceRoutes(e *echo.Echo, g *echo.Group) {
	g.POST("/try-on", controller.TryOn)
	e.GET("/health", controller.Health)
}

func (controller *InferenceController) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (controller *InferenceController) TryOn(c echo.Context) error {
	personImage, errResp := readImageField(c, models.FieldPersonImage)
	if errResp != nil {
		return c.JSON(http.StatusBadRequest, errResp)
	}
	clothImage, errResp := readImageField(c, models.FieldClothImage)
	if errResp != nil {
		return c.JSON(http.StatusBadRequest, errResp)
	}

	req := &models.TryOnRequest{
		PersonImage:  personImage,
		ClothImage:   clothImage,
		Instructions: c.FormValue(models.FieldInstruction),
		Attributes: models.AttributeSelection{
			ModelType:   c.FormValue(models.FieldModelType),
			Gender:      c.FormValue(models.FieldGender),
			GarmentType: c.FormValue(models.FieldGarmentType),
			Style:       c.FormValue(models.FieldStyle),
		},
	}

	outcome, err := controller.Processor.GenerateTryOn(c.Request().Context(), req)
	if err != nil {
		fmt.Println("Try-on generation failed:", err)
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, models.TryOnServiceError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, models.TryOnServiceResponse{
		Image: outcome.ImageDataURI,
		Text:  outcome.Text,
	})
}

// readImageField pulls one multipart image part and enforces the wire
// contract: image/* content type, under the 10MB ceiling.
func readImageField(c echo.Context, field string) (*models.UploadedImage, *models.TryOnServiceError) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return nil, &models.TryOnServiceError{Message: fmt.Sprintf("Missing required file: %s", field)}
	}
	if fileHeader.Size >= models.MaxImageBytes {
		return nil, &models.TryOnServiceError{Message: fmt.Sprintf("Image exceeds 10MB size limit for %s", field)}
	}

	content, err := readMultipartFile(fileHeader)
	if err != nil {
		return nil, &models.TryOnServiceError{Message: fmt.Sprintf("Failed to read file: %s", field)}
	}

	mimeType := services.DetectImageMimeType(fileHeader.Header.Get("Content-Type"), content)
	if !services.IsImageMimeType(mimeType) {
		return nil, &models.TryOnServiceError{Message: fmt.Sprintf("Unsupported file type for %s: %s", field, mimeType)}
	}

	return &models.UploadedImage{
		FileName: fileHeader.Filename,
		MimeType: mimeType,
		Size:     int64(len(content)),
		Data:     content,
	}, nil
}

func readMultipartFile(fileHeader *multipart.FileHeader) ([]byte, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(src)
}
