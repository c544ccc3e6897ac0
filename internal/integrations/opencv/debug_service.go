package opencv

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"facewatch-go/internal/core/processor"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// DebugImage is one annotated frame kept in memory
type DebugImage struct {
	ID        uint64    // frame index
	Timestamp time.Time
	Labels    []processor.Label
	ImageData []byte
}

// DebugService keeps the most recent annotated frames in a bounded ring
type DebugService struct {
	images     map[uint64]*DebugImage
	imagesList []*DebugImage // oldest first
	maxImages  int
	basePath   string
	mutex      sync.RWMutex
}

// NewDebugService creates a ring holding up to maxImages frames
func NewDebugService(maxImages int) *DebugService {
	if maxImages <= 0 {
		maxImages = 20
	}

	return &DebugService{
		images:     make(map[uint64]*DebugImage),
		imagesList: make([]*DebugImage, 0, maxImages),
		maxImages:  maxImages,
	}
}

// Add stores the annotated JPEG for overlay, evicting the oldest frame when full
func (s *DebugService) Add(overlay processor.Overlay, imgData []byte) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	img := &DebugImage{
		ID:        overlay.FrameIndex,
		Timestamp: time.Now(),
		Labels:    overlay.Labels,
		ImageData: imgData,
	}

	if _, exists := s.images[img.ID]; exists {
		s.images[img.ID] = img
		for i, existing := range s.imagesList {
			if existing.ID == img.ID {
				s.imagesList[i] = img
				break
			}
		}
		return
	}

	s.images[img.ID] = img
	s.imagesList = append(s.imagesList, img)
	if len(s.imagesList) > s.maxImages {
		oldest := s.imagesList[0]
		delete(s.images, oldest.ID)
		s.imagesList = s.imagesList[1:]
	}
}

// GetLatestImages returns up to count frames, newest last
func (s *DebugService) GetLatestImages(count int) []*DebugImage {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if count <= 0 || count > len(s.imagesList) {
		count = len(s.imagesList)
	}

	result := make([]*DebugImage, count)
	copy(result, s.imagesList[len(s.imagesList)-count:])
	return result
}

// GetImage returns the frame with the given index, or nil
func (s *DebugService) GetImage(id uint64) *DebugImage {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.images[id]
}

// RegisterRoutes mounts the debug endpoints on group
func (s *DebugService) RegisterRoutes(group *gin.RouterGroup) {
	s.basePath = group.BasePath()
	group.GET("/debug/frames", s.handleGetLatestImages)
	group.GET("/debug/frames/:id", s.handleGetImage)
	log.Debug("Debug frame routes registered")
}

type debugImageMetadata struct {
	ID        uint64            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Labels    []processor.Label `json:"labels"`
	URL       string            `json:"url"`
}

func (s *DebugService) handleGetLatestImages(c *gin.Context) {
	count, err := strconv.Atoi(c.DefaultQuery("count", "10"))
	if err != nil {
		count = 10
	}

	images := s.GetLatestImages(count)
	metadata := make([]debugImageMetadata, len(images))
	for i, img := range images {
		metadata[i] = debugImageMetadata{
			ID:        img.ID,
			Timestamp: img.Timestamp,
			Labels:    img.Labels,
			URL:       s.basePath + "/debug/frames/" + strconv.FormatUint(img.ID, 10),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  len(metadata),
		"images": metadata,
	})
}

func (s *DebugService) handleGetImage(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid frame id"})
		return
	}

	image := s.GetImage(id)
	if image == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "frame not found", "requested_id": id})
		return
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Data(http.StatusOK, "image/jpeg", image.ImageData)
}
