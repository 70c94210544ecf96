package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsRequest(handler http.Handler, method, origin string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/products", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestCORS_SameOriginPassthrough(t *testing.T) {
	handler := CORS(CORSConfig{})(okHandler())

	w := corsRequest(handler, http.MethodGet, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Values("Vary"))
}

func TestCORS_WildcardOrigin(t *testing.T) {
	handler := CORS(CORSConfig{})(okHandler())

	w := corsRequest(handler, http.MethodGet, "https://shop.example.com", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Values("Vary"), "Origin")
}

func TestCORS_CredentialsEchoOrigin(t *testing.T) {
	handler := CORS(CORSConfig{AllowCredentials: true})(okHandler())

	w := corsRequest(handler, http.MethodGet, "https://shop.example.com", nil)
	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_AllowedOriginList(t *testing.T) {
	handler := CORS(CORSConfig{
		AllowOrigins: []string{"https://shop.example.com"},
	})(okHandler())

	w := corsRequest(handler, http.MethodGet, "https://shop.example.com", nil)
	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	// Origin matching is case-insensitive on the host.
	w = corsRequest(handler, http.MethodGet, "https://SHOP.example.com", nil)
	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	// Unknown origins get no CORS headers but the request still runs.
	w = corsRequest(handler, http.MethodGet, "https://evil.example.com", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Preflight(t *testing.T) {
	handler := CORS(CORSConfig{
		AllowOrigins: []string{"https://shop.example.com"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       600,
	})(okHandler())

	w := corsRequest(handler, http.MethodOptions, "https://shop.example.com", map[string]string{
		"Access-Control-Request-Method": http.MethodPost,
	})

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, corsMethods, w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Authorization, Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
	assert.Contains(t, w.Header().Values("Vary"), "Access-Control-Request-Method")
}

func TestCORS_PreflightEchoesRequestedHeaders(t *testing.T) {
	handler := CORS(CORSConfig{})(okHandler())

	w := corsRequest(handler, http.MethodOptions, "https://shop.example.com", map[string]string{
		"Access-Control-Request-Method":  http.MethodPut,
		"Access-Control-Request-Headers": "X-API-Key",
	})

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "X-API-Key", w.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORS_PreflightDisallowedOrigin(t *testing.T) {
	handler := CORS(CORSConfig{
		AllowOrigins: []string{"https://shop.example.com"},
	})(okHandler())

	w := corsRequest(handler, http.MethodOptions, "https://evil.example.com", map[string]string{
		"Access-Control-Request-Method": http.MethodPost,
	})

	// Preflight still short-circuits, just without allow headers.
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORS_OptionsWithoutRequestMethodIsNotPreflight(t *testing.T) {
	handler := CORS(CORSConfig{})(okHandler())

	w := corsRequest(handler, http.MethodOptions, "https://shop.example.com", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
