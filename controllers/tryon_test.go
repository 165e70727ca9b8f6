package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tryonapi/models"
	"tryonapi/services"
	"tryonapi/session"
	"tryonapi/test"
)

func newTestServer(service services.TryOnServiceProvider, settings services.SettingsProvider) (*echoServer, *session.Store) {
	sessions := session.NewStore()
	e := SetupServer(service, &test.TryOnProcessorMock{}, settings, sessions)
	return &echoServer{e}, sessions
}

// echoServer is a thin wrapper so tests read request-in, recorder-out.
type echoServer struct {
	e http.Handler
}

func (s *echoServer) Do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func uploadBoth(t *testing.T, server *echoServer, visitorID string) {
	t.Helper()
	for _, slot := range []string{"person", "cloth"} {
		rec := server.Do(test.NewUploadRequest("/api/uploads/"+slot, visitorID, slot+".png", "image/png", test.TinyPngBytes()))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
}

func TestUploadImageOk(t *testing.T) {
	server, _ := newTestServer(&test.TryOnServiceMock{}, &test.SettingsMock{})

	content := test.TinyPngBytes()
	rec := server.Do(test.NewUploadRequest("/api/uploads/person", "visitor-1", "me.png", "image/png", content))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var response models.UploadedImageOut
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "me.png", response.FileName)
	assert.Equal(t, "image/png", response.MimeType)
	assert.Equal(t, int64(len(content)), response.Size)
	assert.Contains(t, response.Preview, "data:image/png;base64,")
}

func TestUploadImageRejectsNonImage(t *testing.T) {
	server, _ := newTestServer(&test.TryOnServiceMock{}, &test.SettingsMock{})

	rec := server.Do(test.NewUploadRequest("/api/uploads/person", "visitor-1", "notes.txt", "text/plain", []byte("hello")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var response map[string]string
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "You can only upload image files!", response["error"])
}

func TestUploadImageSniffsMissingContentType(t *testing.T) {
	server, _ := newTestServer(&test.TryOnServiceMock{}, &test.SettingsMock{})

	// No declared type; the PNG magic bytes must be enough.
	rec := server.Do(test.NewUploadRequest("/api/uploads/cloth", "visitor-1", "jacket", "", test.TinyPngBytes()))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var response models.UploadedImageOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "image/png", response.MimeType)
}

func TestUploadImageRejectsTooLarge(t *testing.T) {
	server, _ := newTestServer(&test.TryOnServiceMock{}, &test.SettingsMock{})

	oversized := bytes.Repeat([]byte{0xFF}, models.MaxImageBytes)
	rec := server.Do(test.NewUploadRequest("/api/uploads/cloth", "visitor-1", "huge.png", "image/png", oversized))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var response map[string]string
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "Image must be smaller than 10MB!", response["error"])
}

func TestUploadImageUnknownSlot(t *testing.T) {
	server, _ := newTestServer(&test.TryOnServiceMock{}, &test.SettingsMock{})

	rec := server.Do(test.NewUploadRequest("/api/uploads/hat", "visitor-1", "hat.png", "image/png", test.TinyPngBytes()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveImageClearsSlot(t *testing.T) {
	server, sessions := newTestServer(&test.TryOnServiceMock{}, &test.SettingsMock{})
	uploadBoth(t, server, "visitor-1")

	req := httptest.NewRequest(http.MethodDelete, "/api/uploads/person", nil)
	req.AddCookie(&http.Cookie{Name: VisitorCookieName, Value: "visitor-1"})
	rec := server.Do(req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	person, cloth := sessions.Images("visitor-1")
	assert.Nil(t, person)
	assert.NotNil(t, cloth)
	assert.Empty(t, sessions.Preview("visitor-1", session.SlotPerson))
}

func TestSubmitWithoutImages(t *testing.T) {
	serviceMock := &test.TryOnServiceMock{}
	server, _ := newTestServer(serviceMock, &test.SettingsMock{})

	rec := server.Do(test.NewSubmitRequest("/api/try-on/submit", "visitor-1", map[string]string{}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var response map[string]string
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "Please upload both person and cloth images", response["error"])
	// The precondition fails before any service call is made.
	assert.Equal(t, 0, serviceMock.CallCount())
}

func TestSubmitMissingOneImage(t *testing.T) {
	serviceMock := &test.TryOnServiceMock{}
	server, _ := newTestServer(serviceMock, &test.SettingsMock{})

	rec := server.Do(test.NewUploadRequest("/api/uploads/person", "visitor-1", "me.png", "image/png", test.TinyPngBytes()))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = server.Do(test.NewSubmitRequest("/api/try-on/submit", "visitor-1", map[string]string{}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, serviceMock.CallCount())
}

func TestSubmitOk(t *testing.T) {
	serviceMock := &test.TryOnServiceMock{
		Response: &models.TryOnServiceResponse{Image: "data:image/png;base64,cmVzdWx0", Text: "A crisp shirt"},
	}
	server, _ := newTestServer(serviceMock, &test.SettingsMock{})
	uploadBoth(t, server, "visitor-1")

	rec := server.Do(test.NewSubmitRequest("/api/try-on/submit", "visitor-1", map[string]string{
		"instructions": "side view",
		"garment_type": "shirt",
	}))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var result models.TryOnResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "data:image/png;base64,cmVzdWx0", result.ResultImage)
	assert.Equal(t, "A crisp shirt", result.Text)
	assert.NotZero(t, result.ID)
	assert.NotEmpty(t, result.Timestamp)

	// Exactly one service call carrying all five text fields.
	require.Equal(t, 1, serviceMock.CallCount())
	sent := serviceMock.Requests[0]
	assert.Equal(t, "side view", sent.Instructions)
	assert.Equal(t, "shirt", sent.Attributes.GarmentType)
	assert.Equal(t, "", sent.Attributes.ModelType)
	assert.Equal(t, "", sent.Attributes.Gender)
	assert.Equal(t, "", sent.Attributes.Style)
	require.NotNil(t, sent.PersonImage)
	require.NotNil(t, sent.ClothImage)
	assert.Equal(t, "person.png", sent.PersonImage.FileName)
	assert.Equal(t, "cloth.png", sent.ClothImage.FileName)
}

func TestSubmitFailurePassesMessageThrough(t *testing.T) {
	serviceMock := &test.TryOnServiceMock{
		Err: &services.TryOnServiceError{StatusCode: http.StatusInternalServerError, Message: "face not detected"},
	}
	server, sessions := newTestServer(serviceMock, &test.SettingsMock{})
	uploadBoth(t, server, "visitor-1")

	rec := server.Do(test.NewSubmitRequest("/api/try-on/submit", "visitor-1", map[string]string{}))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var response map[string]string
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "face not detected", response["error"])

	// A failed submission leaves history untouched.
	_, ok := sessions.Current("visitor-1")
	assert.False(t, ok)
	assert.Empty(t, sessions.Gallery("visitor-1"))

	// And the held images stay in place for a retry.
	person, cloth := sessions.Images("visitor-1")
	assert.NotNil(t, person)
	assert.NotNil(t, cloth)
}

func TestSubmitFailureGenericMessage(t *testing.T) {
	serviceMock := &test.TryOnServiceMock{Err: fmt.Errorf("connection refused")}
	server, _ := newTestServer(serviceMock, &test.SettingsMock{})
	uploadBoth(t, server, "visitor-1")

	rec := server.Do(test.NewSubmitRequest("/api/try-on/submit", "visitor-1", map[string]string{}))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var response map[string]string
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "An error occurred during processing", response["error"])
}

func TestSubmitWhileSubmitting(t *testing.T) {
	serviceMock := &test.TryOnServiceMock{}
	server, sessions := newTestServer(serviceMock, &test.SettingsMock{})
	uploadBoth(t, server, "visitor-1")

	require.True(t, sessions.BeginSubmit("visitor-1"))
	defer sessions.EndSubmit("visitor-1")

	rec := server.Do(test.NewSubmitRequest("/api/try-on/submit", "visitor-1", map[string]string{}))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 0, serviceMock.CallCount())
}

func TestHistoryPromotion(t *testing.T) {
	serviceMock := &test.TryOnServiceMock{}
	server, _ := newTestServer(serviceMock, &test.SettingsMock{})
	uploadBoth(t, server, "visitor-1")

	// First generation becomes the current result, gallery stays empty.
	rec := server.Do(test.NewSubmitRequest("/api/try-on/submit", "visitor-1", map[string]string{}))
	require.Equal(t, http.StatusCreated, rec.Code)
	var first models.TryOnResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	rec = server.Do(test.NewVisitorRequest(http.MethodGet, "/api/history", "visitor-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var history models.HistoryOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.NotNil(t, history.Current)
	assert.Equal(t, first.ID, history.Current.ID)
	assert.Empty(t, history.Gallery)

	// Second generation takes the current slot and demotes the first.
	rec = server.Do(test.NewSubmitRequest("/api/try-on/submit", "visitor-1", map[string]string{}))
	require.Equal(t, http.StatusCreated, rec.Code)
	var second models.TryOnResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Greater(t, second.ID, first.ID)

	rec = server.Do(test.NewVisitorRequest(http.MethodGet, "/api/history", "visitor-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.NotNil(t, history.Current)
	assert.Equal(t, second.ID, history.Current.ID)
	require.Len(t, history.Gallery, 1)
	assert.Equal(t, first.ID, history.Gallery[0].ID)
}

func TestHistoryIsolatedPerVisitor(t *testing.T) {
	serviceMock := &test.TryOnServiceMock{}
	server, _ := newTestServer(serviceMock, &test.SettingsMock{})
	uploadBoth(t, server, "visitor-1")

	rec := server.Do(test.NewSubmitRequest("/api/try-on/submit", "visitor-1", map[string]string{}))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = server.Do(test.NewVisitorRequest(http.MethodGet, "/api/history", "visitor-2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var history models.HistoryOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Nil(t, history.Current)
	assert.Empty(t, history.Gallery)
}

func TestHomeRendersWithoutState(t *testing.T) {
	server, _ := newTestServer(&test.TryOnServiceMock{}, &test.SettingsMock{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := server.Do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Virtual Try-On")
	// A fresh visitor gets a session cookie assigned.
	cookies := rec.Result().Cookies()
	found := false
	for _, cookie := range cookies {
		if cookie.Name == VisitorCookieName && cookie.Value != "" {
			found = true
		}
	}
	assert.True(t, found)
}
