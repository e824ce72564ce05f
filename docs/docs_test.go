package docs

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpec_IsValidJSON(t *testing.T) {
	var doc struct {
		Swagger string                     `json:"swagger"`
		Paths   map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(Spec, &doc))
	assert.Equal(t, "2.0", doc.Swagger)
	for _, path := range []string{
		"/api/books",
		"/api/books/{id}",
		"/api/books/{id}/checkout",
		"/api/books/{id}/return",
		"/api/books/{id}/reviews",
		"/api/users/register",
		"/api/users/login",
		"/api/users/logout",
	} {
		assert.Contains(t, doc.Paths, path)
	}
}

func TestServeSpec(t *testing.T) {
	rec := httptest.NewRecorder()
	ServeSpec(rec, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, Spec, rec.Body.Bytes())
}

func TestServeUI(t *testing.T) {
	rec := httptest.NewRecorder()
	ServeUI(rec, httptest.NewRequest(http.MethodGet, "/swagger/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Library API")
	assert.Contains(t, rec.Body.String(), "/swagger/doc.json")
}
