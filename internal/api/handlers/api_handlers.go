package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"facewatch-go/internal/api/middleware"
	"facewatch-go/internal/core/processor"
	"facewatch-go/internal/database"
	"facewatch-go/internal/i18n"
	"facewatch-go/internal/models"
	"facewatch-go/internal/utils"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	defaultSightingLimit = 50
	maxSightingLimit     = 500
)

// Dependencies are the collaborators of APIHandler. Repo is nil when the
// database is disabled; Counters and Queue may be nil.
type Dependencies struct {
	Repo            database.Repository
	Counters        *processor.Counters
	Queue           utils.QueueStats
	ClientCount     func() int
	RunID           string
	Version         string
	SnapshotURLBase string
	Started         time.Time
}

// APIHandler serves the JSON API
type APIHandler struct {
	deps Dependencies
}

// NewAPIHandler creates an API handler
func NewAPIHandler(deps Dependencies) *APIHandler {
	if deps.Started.IsZero() {
		deps.Started = time.Now()
	}
	return &APIHandler{deps: deps}
}

// RegisterRoutes registers the API routes on router
func (h *APIHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/health", h.Health)
	router.GET("/identities", h.ListIdentities)
	router.GET("/sightings", h.ListSightings)
	router.GET("/sightings/:id", h.GetSighting)
	router.GET("/stats", h.GetStats)
}

// sightingResponse adds the public snapshot URL to a stored sighting
type sightingResponse struct {
	models.Sighting
	SnapshotURL string `json:"snapshot_url,omitempty"`
}

func (h *APIHandler) toResponse(s models.Sighting) sightingResponse {
	resp := sightingResponse{Sighting: s}
	if s.SnapshotPath != "" && h.deps.SnapshotURLBase != "" {
		resp.SnapshotURL = h.deps.SnapshotURLBase + "/" + s.SnapshotPath
	}
	return resp
}

func errorJSON(c *gin.Context, status int, id string) {
	c.JSON(status, gin.H{"error": middleware.T(c, id)})
}

// requireRepo writes 503 and returns false when there is no database
func (h *APIHandler) requireRepo(c *gin.Context) bool {
	if h.deps.Repo == nil {
		errorJSON(c, http.StatusServiceUnavailable, i18n.MsgDatabaseOff)
		return false
	}
	return true
}

// Health reports liveness and a few run facts
func (h *APIHandler) Health(c *gin.Context) {
	clients := 0
	if h.deps.ClientCount != nil {
		clients = h.deps.ClientCount()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"run_id":      h.deps.RunID,
		"version":     h.deps.Version,
		"database":    h.deps.Repo != nil,
		"sse_clients": clients,
		"uptime":      time.Since(h.deps.Started).Round(time.Second).String(),
		"language":    middleware.Language(c),
	})
}

// ListIdentities returns the enrolled gallery in gallery order
func (h *APIHandler) ListIdentities(c *gin.Context) {
	if !h.requireRepo(c) {
		return
	}

	identities, err := h.deps.Repo.GetIdentities(c.Request.Context())
	if err != nil {
		log.Errorf("Failed to load identities: %v", err)
		errorJSON(c, http.StatusInternalServerError, i18n.MsgInternalError)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":      len(identities),
		"identities": identities,
	})
}

// ListSightings returns stored sightings, newest first.
// Query: limit, offset, name, run_id, since (RFC3339).
func (h *APIHandler) ListSightings(c *gin.Context) {
	if !h.requireRepo(c) {
		return
	}

	filter := database.SightingFilter{
		Name:  c.Query("name"),
		RunID: c.Query("run_id"),
		Limit: defaultSightingLimit,
	}

	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			errorJSON(c, http.StatusBadRequest, i18n.MsgInvalidRequest)
			return
		}
		if limit > maxSightingLimit {
			limit = maxSightingLimit
		}
		filter.Limit = limit
	}
	if v := c.Query("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			errorJSON(c, http.StatusBadRequest, i18n.MsgInvalidRequest)
			return
		}
		filter.Offset = offset
	}
	if v := c.Query("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			errorJSON(c, http.StatusBadRequest, i18n.MsgInvalidRequest)
			return
		}
		filter.Since = since
	}

	sightings, total, err := h.deps.Repo.ListSightings(c.Request.Context(), filter)
	if err != nil {
		log.Errorf("Failed to list sightings: %v", err)
		errorJSON(c, http.StatusInternalServerError, i18n.MsgInternalError)
		return
	}

	out := make([]sightingResponse, len(sightings))
	for i, s := range sightings {
		out[i] = h.toResponse(s)
	}

	c.JSON(http.StatusOK, gin.H{
		"total":     total,
		"limit":     filter.Limit,
		"offset":    filter.Offset,
		"sightings": out,
	})
}

// GetSighting returns one sighting by ID
func (h *APIHandler) GetSighting(c *gin.Context) {
	if !h.requireRepo(c) {
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, i18n.MsgInvalidRequest)
		return
	}

	sighting, err := h.deps.Repo.GetSighting(c.Request.Context(), uint(id))
	if errors.Is(err, database.ErrNotFound) {
		errorJSON(c, http.StatusNotFound, i18n.MsgNotFound)
		return
	}
	if err != nil {
		log.Errorf("Failed to load sighting %d: %v", id, err)
		errorJSON(c, http.StatusInternalServerError, i18n.MsgInternalError)
		return
	}

	c.JSON(http.StatusOK, h.toResponse(*sighting))
}

// GetStats returns host, pipeline and history figures
func (h *APIHandler) GetStats(c *gin.Context) {
	resp := gin.H{
		"system": utils.GetSystemStats(h.deps.Started, h.deps.Counters, h.deps.Queue),
	}

	if h.deps.Repo != nil {
		stats, err := h.deps.Repo.GetStatistics(c.Request.Context())
		if err != nil {
			log.Errorf("Failed to load statistics: %v", err)
			errorJSON(c, http.StatusInternalServerError, i18n.MsgInternalError)
			return
		}
		resp["history"] = stats
	}

	c.JSON(http.StatusOK, resp)
}
