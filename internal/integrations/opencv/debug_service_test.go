package opencv

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"facewatch-go/internal/core/processor"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebugService_EvictsOldest(t *testing.T) {
	svc := NewDebugService(2)
	svc.Add(processor.Overlay{FrameIndex: 1}, []byte("one"))
	svc.Add(processor.Overlay{FrameIndex: 2}, []byte("two"))
	svc.Add(processor.Overlay{FrameIndex: 3}, []byte("three"))

	assert.Nil(t, svc.GetImage(1))
	require.NotNil(t, svc.GetImage(3))

	latest := svc.GetLatestImages(0)
	require.Len(t, latest, 2)
	assert.Equal(t, uint64(2), latest[0].ID)
	assert.Equal(t, uint64(3), latest[1].ID)

	// replacing an existing frame keeps the ring size
	svc.Add(processor.Overlay{FrameIndex: 3}, []byte("three again"))
	assert.Len(t, svc.GetLatestImages(10), 2)
	assert.Equal(t, []byte("three again"), svc.GetImage(3).ImageData)
}

func TestDebugService_Routes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewDebugService(5)
	svc.Add(processor.Overlay{FrameIndex: 7, Labels: []processor.Label{{Name: "a_person", Known: true}}}, []byte("jpeg"))

	router := gin.New()
	svc.RegisterRoutes(router.Group("/api"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/debug/frames", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count  int                  `json:"count"`
		Images []debugImageMetadata `json:"images"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "/api/debug/frames/7", body.Images[0].URL)
	assert.Equal(t, "a_person", body.Images[0].Labels[0].Name)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/debug/frames/7", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "jpeg", w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/debug/frames/8", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/debug/frames/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
