package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m1ll3r1337/incident-report-service/internal/generation"
	"github.com/m1ll3r1337/incident-report-service/internal/platform/logger"
	"github.com/m1ll3r1337/incident-report-service/internal/platform/middleware"
)

var fixedURLs = []string{
	"https://img.example/1.png",
	"https://img.example/2.png",
	"https://img.example/3.png",
}

const validReport = `{
	"name": "Jo",
	"phone": "1234567890",
	"location": [40.4168, -3.7038],
	"occurrenceDuration": "24",
	"frequency": "5",
	"visibleInjuries": "No",
	"preferredContact": ["Email", "Phone"],
	"currentSituation": "Still at home",
	"culprit": "Partner, 40s"
}`

func init() {
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	log := logger.New(&buf, logger.LevelDebug, "test")

	gen := NewGenerate(generation.NewTextService(), generation.NewImageService(fixedURLs), log)
	sys := NewSystem(log, OpenAPI("test"))

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Error(log))
	r.POST("/api/generate-text", gen.Text)
	r.POST("/api/generate-image", gen.Images)
	r.GET("/api/openapi.json", sys.OpenAPI)
	r.GET("/healthz", sys.Health)
	return r, &buf
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestImages_AnyJSONReturnsFixedURLs(t *testing.T) {
	r, _ := newTestRouter(t)

	bodies := []string{
		`{"generatedText":"hello","imagePrompt":"a calm room"}`,
		`{}`,
		`[1,2,3]`,
		`"just a string"`,
		`null`,
		`{"unexpected":{"nested":true}}`,
	}
	for _, body := range bodies {
		w := post(r, "/api/generate-image", body)

		require.Equal(t, http.StatusOK, w.Code, body)
		var resp generation.ImageResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, fixedURLs, resp.Images)
	}
}

func TestImages_LogsDecodedInput(t *testing.T) {
	r, logs := newTestRouter(t)

	w := post(r, "/api/generate-image", `{"generatedText":"hello","imagePrompt":"a calm room"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, logs.String(), "image generation input")
	assert.Contains(t, logs.String(), "a calm room")
}

func TestImages_MalformedJSONReturnsFixedError(t *testing.T) {
	r, logs := newTestRouter(t)

	for _, body := range []string{`{"generatedText":`, `not json`, ``} {
		w := post(r, "/api/generate-image", body)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"Failed to generate images"}`, w.Body.String())
	}
	assert.Contains(t, logs.String(), "image generation failed")
}

func TestText_ValidReport(t *testing.T) {
	r, _ := newTestRouter(t)

	w := post(r, "/api/generate-text", validReport)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp generation.TextResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Text, "Name: Jo\n")
	assert.Contains(t, resp.Text, "Location: 40.416800, -3.703800\n")
	assert.Contains(t, resp.Text, "Preferred Contact Method: Phone, Email\n")
}

func TestText_InvalidReportReturnsFieldErrors(t *testing.T) {
	r, _ := newTestRouter(t)

	body := strings.Replace(validReport, `"name": "Jo"`, `"name": "J"`, 1)
	body = strings.Replace(body, `"frequency": "5"`, `"frequency": "500"`, 1)
	body = strings.Replace(body, `["Email", "Phone"]`, `["Email", "Email"]`, 1)

	w := post(r, "/api/generate-text", body)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp middleware.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "REPORT_INVALID", resp.Code)
	assert.Equal(t, "Name must be at least 2 characters.", resp.Fields["name"])
	assert.Equal(t, "Please select how often incidents occur.", resp.Fields["frequency"])
	assert.Equal(t, "Unknown or repeated contact method.", resp.Fields["preferredContact"])
	assert.NotContains(t, resp.Fields, "phone")
}

func TestText_NumericSliderNotationsRangeChecked(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, label := range []string{"150.5", "1e3", "-7.0", "0x10a"} {
		body := strings.Replace(validReport, `"occurrenceDuration": "24"`, `"occurrenceDuration": "`+label+`"`, 1)

		w := post(r, "/api/generate-text", body)

		require.Equal(t, http.StatusBadRequest, w.Code, label)
		var resp middleware.APIError
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Please select how long this has been happening.", resp.Fields["occurrenceDuration"], label)
	}
}

func TestText_LocationOutOfRange(t *testing.T) {
	r, _ := newTestRouter(t)

	body := strings.Replace(validReport, `[40.4168, -3.7038]`, `[140, 0]`, 1)
	w := post(r, "/api/generate-text", body)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp middleware.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Location must be a valid latitude and longitude.", resp.Fields["location"])
}

func TestText_MalformedBody(t *testing.T) {
	r, _ := newTestRouter(t)

	w := post(r, "/api/generate-text", `{"name":`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp middleware.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "BAD_JSON", resp.Code)
}

type pinger func(context.Context) error

func (p pinger) Ping(ctx context.Context) error { return p(ctx) }

func TestHealth(t *testing.T) {
	log := logger.New(&bytes.Buffer{}, logger.LevelInfo, "test")

	t.Run("ok", func(t *testing.T) {
		sys := NewSystem(log, nil, Dependency{Name: "redis", Pinger: pinger(func(context.Context) error { return nil })})
		r := gin.New()
		r.GET("/healthz", sys.Health)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"ok"`)
	})

	t.Run("degraded", func(t *testing.T) {
		sys := NewSystem(log, nil, Dependency{Name: "redis", Pinger: pinger(func(context.Context) error { return errors.New("refused") })})
		r := gin.New()
		r.GET("/healthz", sys.Health)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"error":"refused"`)
	})
}

func TestOpenAPI_DocumentLoadsAndValidates(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil))
	require.Equal(t, http.StatusOK, w.Code)

	loader := &openapi3.Loader{Context: context.Background()}
	doc, err := loader.LoadFromData(w.Body.Bytes())
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))

	text := doc.Paths.Find("/api/generate-text")
	require.NotNil(t, text)
	require.NotNil(t, text.Post)
	assert.Equal(t, "generateText", text.Post.OperationID)

	images := doc.Paths.Find("/api/generate-image")
	require.NotNil(t, images)
	require.NotNil(t, images.Post.Responses.Status(http.StatusInternalServerError))
}
