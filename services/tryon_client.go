package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"tryonapi/models"
)

// TryOnServiceProvider is the single request/response contract with the
// try-on inference service. The service itself is opaque to callers.
type TryOnServiceProvider interface {
	GenerateTryOn(ctx context.Context, req *models.TryOnRequest) (*models.TryOnServiceResponse, error)
}

// TryOnServiceError carries the user-displayable message supplied by the
// service response body on failure.
type TryOnServiceError struct {
	StatusCode int
	Message    string
}

func (e *TryOnServiceError) Error() string {
	return fmt.Sprintf("try-on service returned %d: %s", e.StatusCode, e.Message)
}

// HTTPTryOnService posts submissions to a remote try-on host. No retry and
// no client-side timeout; the caller's context bounds the round-trip.
type HTTPTryOnService struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPTryOnService(baseURL string) *HTTPTryOnService {
	return &HTTPTryOnService{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{},
	}
}

func (s *HTTPTryOnService) GenerateTryOn(ctx context.Context, req *models.TryOnRequest) (*models.TryOnServiceResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writeImagePart(writer, models.FieldPersonImage, req.PersonImage); err != nil {
		return nil, err
	}
	if err := writeImagePart(writer, models.FieldClothImage, req.ClothImage); err != nil {
		return nil, err
	}

	fields := map[string]string{
		models.FieldInstruction: req.Instructions,
		models.FieldModelType:   req.Attributes.ModelType,
		models.FieldGender:      req.Attributes.Gender,
		models.FieldGarmentType: req.Attributes.GarmentType,
		models.FieldStyle:       req.Attributes.Style,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %v", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/api/try-on", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create try-on request: %v", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach try-on service: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read try-on response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serviceErr := &TryOnServiceError{StatusCode: resp.StatusCode}
		var failure models.TryOnServiceError
		if err := json.Unmarshal(respBody, &failure); err == nil {
			serviceErr.Message = failure.Message
		}
		return nil, serviceErr
	}

	var success models.TryOnServiceResponse
	if err := json.Unmarshal(respBody, &success); err != nil {
		return nil, fmt.Errorf("malformed try-on response: %v", err)
	}
	if success.Image == "" {
		return nil, fmt.Errorf("try-on response is missing the image field")
	}
	// Some deployments return a URL reference instead of inline image data.
	// Normalize to a data URI so the page always renders the result inline.
	if strings.HasPrefix(success.Image, "http://") || strings.HasPrefix(success.Image, "https://") {
		content, err := ReadFileFromUrl(success.Image)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch result image: %v", err)
		}
		mimeType := DetectImageMimeType("", content)
		if !IsImageMimeType(mimeType) {
			return nil, fmt.Errorf("result image reference returned %s content", mimeType)
		}
		success.Image = ImageDataURI(mimeType, content)
	}
	return &success, nil
}

func writeImagePart(writer *multipart.Writer, field string, image *models.UploadedImage) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, image.FileName))
	header.Set("Content-Type", image.MimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create form part %s: %v", field, err)
	}
	if _, err := part.Write(image.Data); err != nil {
		return fmt.Errorf("failed to write image bytes for %s: %v", field, err)
	}
	return nil
}

// LocalTryOnService serves the same contract in-process. Used when the
// resolved base URL is empty, meaning frontend and backend share an origin.
type LocalTryOnService struct {
	Processor TryOnProcessor
}

func (s *LocalTryOnService) GenerateTryOn(ctx context.Context, req *models.TryOnRequest) (*models.TryOnServiceResponse, error) {
	outcome, err := s.Processor.GenerateTryOn(ctx, req)
	if err != nil {
		return nil, &TryOnServiceError{StatusCode: http.StatusInternalServerError, Message: err.Error()}
	}
	return &models.TryOnServiceResponse{Image: outcome.ImageDataURI, Text: outcome.Text}, nil
}
