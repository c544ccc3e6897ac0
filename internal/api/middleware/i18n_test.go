package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"facewatch-go/internal/i18n"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTranslator(t *testing.T) *i18n.Translator {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en.json"), []byte(`{"label.unknown": "Unknown"}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "de.json"), []byte(`{"label.unknown": "Unbekannt"}`), 0644))
	tr, err := i18n.NewTranslator("en", dir)
	require.NoError(t, err)
	return tr
}

func newRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(sessions.Sessions("test", cookie.NewStore([]byte("secret"))))
	router.Use(I18n(newTranslator(t)))
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, Language(c)+"|"+T(c, i18n.MsgUnknownLabel))
	})
	return router
}

func TestI18n_DefaultLanguage(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(t).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "en|Unknown", w.Body.String())
}

func TestI18n_QueryIsRememberedInSession(t *testing.T) {
	router := newRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?lang=de", nil))
	assert.Equal(t, "de|Unbekannt", w.Body.String())

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "de|Unbekannt", w.Body.String())
}

func TestI18n_UnsupportedLanguageFallsBack(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(t).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?lang=fr", nil))
	assert.Equal(t, "en|Unknown", w.Body.String())
}

func TestT_WithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, "api.not_found", T(c, i18n.MsgNotFound))
	assert.Equal(t, "", Language(c))
}
