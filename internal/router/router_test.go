package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-settings/internal/config"
	"github.com/goliatone/go-settings/internal/definitions"
	"github.com/goliatone/go-settings/internal/handler"
	"github.com/goliatone/go-settings/internal/i18n"
	"github.com/goliatone/go-settings/internal/middleware"
	"github.com/goliatone/go-settings/internal/nonce"
	"github.com/goliatone/go-settings/pkg/render"
	"github.com/goliatone/go-settings/schema/openapi"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	t.Setenv("SETTINGS_STORE", "memory")
	t.Setenv("SETTINGS_ADMIN_KEY", "admin-key")
	t.Setenv("SETTINGS_LOG_LEVEL", "error")
	cfg, err := config.NewManager()
	require.NoError(t, err)

	renderer, err := render.New()
	require.NoError(t, err)
	translations, err := i18n.New("en")
	require.NoError(t, err)

	server := handler.NewServer(handler.NewServerParams{
		Catalog:   definitions.NewCatalog(t.TempDir(), nil),
		Renderer:  renderer,
		Nonces:    nonce.New("secret"),
		I18n:      translations,
		Generator: openapi.NewGenerator(),
	})
	return NewRouter(server, cfg)
}

func TestHealthIsPublic(t *testing.T) {
	engine := newTestRouter(t)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestSettingsRequireAdminKey(t *testing.T) {
	engine := newTestRouter(t)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/settings", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/settings", nil)
	req.Header.Set(middleware.KeyHeader, "admin-key")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"groups":[]}`, rec.Body.String())
}

func TestServesStylesheet(t *testing.T) {
	engine := newTestRouter(t)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, handler.StylesheetPath, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
	assert.Contains(t, rec.Body.String(), ".form-table")
}

func TestGzip(t *testing.T) {
	engine := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, handler.StylesheetPath, nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
}

func TestNotFound(t *testing.T) {
	engine := newTestRouter(t)
	for _, path := range []string{"/nope", "/assets/missing.css", "/assets/"} {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}
