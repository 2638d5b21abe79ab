package helper

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wiki-engine/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code        int             `json:"code"`
	CodeType    string          `json:"code_type"`
	CodeMessage json.RawMessage `json:"code_message"`
	Data        json.RawMessage `json:"data"`
}

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/articles?status=public&page=2&limit=5", nil)
	return c, w
}

func TestUnderscore(t *testing.T) {
	tests := map[string]string{
		"NewTitle":   "new_title",
		"UserID":     "user_id",
		"ID":         "id",
		"MarkupType": "markup_type",
		"HTTPStatus": "http_status",
		"body":       "body",
	}
	for in, want := range tests {
		assert.Equal(t, want, Underscore(in), in)
	}
}

func TestGetStatusCode(t *testing.T) {
	h := NewHTTPHelper()

	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{models.ErrorNotFound{Message: "x"}, http.StatusNotFound},
		{models.ErrorNoVersions{ArticleID: 1}, http.StatusNotFound},
		{models.ErrorDuplicateTitle{Title: "x"}, http.StatusConflict},
		{models.ErrorPermissionDenied{Message: "x"}, http.StatusForbidden},
		{models.ErrorUnauthorized{Message: "x"}, http.StatusUnauthorized},
		{models.ErrorLockContention{Holder: "user:1"}, http.StatusConflict},
		{models.ErrorLockLost{}, http.StatusConflict},
		{models.ErrorValidation{Field: "body", Message: "x"}, http.StatusBadRequest},
		{models.ErrorConflict{Message: "x"}, http.StatusConflict},
		{models.ErrorRedirectLoop{Title: "x", Hops: 1}, http.StatusLoopDetected},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, h.GetStatusCode(tt.err), "%T", tt.err)
	}
}

func TestSendModelErrorLockContention(t *testing.T) {
	h := NewHTTPHelper()
	c, w := newContext()

	expires := time.Now().Add(3 * time.Minute)
	require.NoError(t, h.SendModelError(c, models.ErrorLockContention{Holder: "user:7", ExpiresAt: expires}))

	assert.Equal(t, http.StatusConflict, w.Code)
	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusConflict, body.Code)
	assert.Equal(t, "lockContention", body.CodeType)

	var data map[string]string
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, "user:7", data["holder"])
	assert.Equal(t, expires.UTC().Format(time.RFC3339), data["expires_at"])
	assert.Contains(t, data["expires_in"], "from now")
}

func TestSendModelErrorHidesInternalDetails(t *testing.T) {
	h := NewHTTPHelper()
	c, w := newContext()

	require.NoError(t, h.SendModelError(c, errors.New("pq: password authentication failed")))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	assert.Len(t, c.Errors, 1)
}

func TestSendBindErrorTranslatesValidation(t *testing.T) {
	h := NewHTTPHelper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.POST("/rename", func(c *gin.Context) {
		var req models.RenameRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = h.SendBindError(c, err)
			return
		}
		_ = h.SendSuccess(c, "ok", req)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/rename", jsonBody(`{"new_title":"a|b"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	var messages map[string][]string
	require.NoError(t, json.Unmarshal(body.CodeMessage, &messages))
	assert.Equal(t, []string{"new_title must be a valid article title"}, messages["new_title"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/rename", jsonBody(`{"new_title":"Fine title"}`)))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGeneratePaging(t *testing.T) {
	h := NewHTTPHelper()
	c, _ := newContext()

	paging := h.GeneratePaging(c, 0, 0, 5, 2, 12)
	assert.Equal(t, 3, paging["total_pages"])
	links := paging["links"].(map[string]interface{})
	assert.Equal(t, "http://example.com/api/v1/articles?limit=5&page=1&status=public", links["previous"])
	assert.Equal(t, "http://example.com/api/v1/articles?limit=5&page=3&status=public", links["next"])
	assert.Equal(t, "http://example.com/api/v1/articles?limit=5&page=3&status=public", links["last"])
}

func jsonBody(s string) *strings.Reader {
	return strings.NewReader(s)
}
