package test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"

	"tryonapi/models"
	"tryonapi/services"
)

func JsonString(model interface{}) string {
	bytes, _ := json.Marshal(model)
	return string(bytes)
}

func NewJSONRequest(method string, target string, param interface{}) *http.Request {

	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	return req
}

func NewVisitorRequest(method string, target string, visitorID string, param interface{}) *http.Request {
	req := NewJSONRequest(method, target, param)
	req.AddCookie(&http.Cookie{Name: "tryon_visitor", Value: visitorID})
	return req
}

// NewUploadRequest builds a multipart request with a single file part named
// "image", the way the intake endpoint expects it.
func NewUploadRequest(target string, visitorID string, fileName string, contentType string, content []byte) *http.Request {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="`+fileName+`"`)
	header.Set("Content-Type", contentType)
	part, _ := writer.CreatePart(header)
	part.Write(content)
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: "tryon_visitor", Value: visitorID})
	return req
}

func NewSubmitRequest(target string, visitorID string, fields map[string]string) *http.Request {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, value := range fields {
		writer.WriteField(name, value)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: "tryon_visitor", Value: visitorID})
	return req
}

// TinyPngBytes returns a valid 2x2 PNG, small enough for any test.
func TinyPngBytes() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

type TryOnServiceMock struct {
	Response *models.TryOnServiceResponse
	Err      error

	mu       sync.Mutex
	Requests []*models.TryOnRequest
}

func (m *TryOnServiceMock) GenerateTryOn(ctx context.Context, req *models.TryOnRequest) (*models.TryOnServiceResponse, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Response != nil {
		return m.Response, nil
	}
	return &models.TryOnServiceResponse{Image: "data:image/png;base64,ZmFrZQ==", Text: "Looks great"}, nil
}

func (m *TryOnServiceMock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

type TryOnProcessorMock struct {
	Outcome *services.TryOnOutcome
	Err     error

	mu       sync.Mutex
	Requests []*models.TryOnRequest
}

func (m *TryOnProcessorMock) GenerateTryOn(ctx context.Context, req *models.TryOnRequest) (*services.TryOnOutcome, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Outcome != nil {
		return m.Outcome, nil
	}
	return &services.TryOnOutcome{ImageDataURI: "data:image/png;base64,ZmFrZQ==", Text: "Composited"}, nil
}

// SettingsMock keeps theme flags in memory, one per visitor.
type SettingsMock struct {
	Err error

	mu     sync.Mutex
	themes map[string]bool
}

func (m *SettingsMock) GetDarkMode(ctx context.Context, visitorID string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.themes[visitorID], nil
}

func (m *SettingsMock) SetDarkMode(ctx context.Context, visitorID string, darkMode bool) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.themes == nil {
		m.themes = make(map[string]bool)
	}
	m.themes[visitorID] = darkMode
	return nil
}
