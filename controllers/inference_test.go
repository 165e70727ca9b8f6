package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tryonapi/models"
	"tryonapi/services"
	"tryonapi/session"
	"tryonapi/test"
)

func newInferenceServer(processor *test.TryOnProcessorMock) *echoServer {
	e := SetupServer(&test.TryOnServiceMock{}, processor, &test.SettingsMock{}, session.NewStore())
	return &echoServer{e}
}

func newTryOnWireRequest(t *testing.T, files map[string][]byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for field, content := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s.png"`, field, field))
		header.Set("Content-Type", "image/png")
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/try-on", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestTryOnWireOk(t *testing.T) {
	processor := &test.TryOnProcessorMock{
		Outcome: &services.TryOnOutcome{ImageDataURI: "data:image/png;base64,cmVzdWx0", Text: "Done"},
	}
	server := newInferenceServer(processor)

	req := newTryOnWireRequest(t, map[string][]byte{
		models.FieldPersonImage: test.TinyPngBytes(),
		models.FieldClothImage:  test.TinyPngBytes(),
	}, map[string]string{
		models.FieldInstruction: "side view",
		models.FieldGarmentType: "shirt",
		models.FieldModelType:   "",
		models.FieldGender:      "",
		models.FieldStyle:       "",
	})
	rec := server.Do(req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var response models.TryOnServiceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "data:image/png;base64,cmVzdWx0", response.Image)
	assert.Equal(t, "Done", response.Text)

	require.Len(t, processor.Requests, 1)
	sent := processor.Requests[0]
	assert.Equal(t, "side view", sent.Instructions)
	assert.Equal(t, "shirt", sent.Attributes.GarmentType)
	assert.Equal(t, "", sent.Attributes.ModelType)
}

func TestTryOnWireMissingPersonImage(t *testing.T) {
	processor := &test.TryOnProcessorMock{}
	server := newInferenceServer(processor)

	req := newTryOnWireRequest(t, map[string][]byte{
		models.FieldClothImage: test.TinyPngBytes(),
	}, nil)
	rec := server.Do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var response models.TryOnServiceError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Contains(t, response.Message, models.FieldPersonImage)
	assert.Empty(t, processor.Requests)
}

func TestTryOnWireUnsupportedType(t *testing.T) {
	server := newInferenceServer(&test.TryOnProcessorMock{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="person_image"; filename="notes.txt"`)
	header.Set("Content-Type", "text/plain")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	part.Write([]byte("hello"))
	header = make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="cloth_image"; filename="cloth.png"`)
	header.Set("Content-Type", "image/png")
	part, err = writer.CreatePart(header)
	require.NoError(t, err)
	part.Write(test.TinyPngBytes())
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/try-on", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := server.Do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var response models.TryOnServiceError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "Unsupported file type for person_image: text/plain", response.Message)
}

func TestTryOnWireTooLarge(t *testing.T) {
	server := newInferenceServer(&test.TryOnProcessorMock{})

	req := newTryOnWireRequest(t, map[string][]byte{
		models.FieldPersonImage: test.TinyPngBytes(),
		models.FieldClothImage:  bytes.Repeat([]byte{0xFF}, models.MaxImageBytes),
	}, nil)
	rec := server.Do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var response models.TryOnServiceError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "Image exceeds 10MB size limit for cloth_image", response.Message)
}

func TestTryOnWireProcessorFailure(t *testing.T) {
	processor := &test.TryOnProcessorMock{Err: fmt.Errorf("face not detected")}
	server := newInferenceServer(processor)

	req := newTryOnWireRequest(t, map[string][]byte{
		models.FieldPersonImage: test.TinyPngBytes(),
		models.FieldClothImage:  test.TinyPngBytes(),
	}, nil)
	rec := server.Do(req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var response models.TryOnServiceError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "face not detected", response.Message)
}

func TestHealth(t *testing.T) {
	server := newInferenceServer(&test.TryOnProcessorMock{})

	rec := server.Do(httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
}
