package opencv

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"

	"facewatch-go/internal/config"
	"facewatch-go/internal/core/processor"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

const (
	boxThickness = 2
	labelHeight  = 35
	labelPadding = 6
)

var (
	red   = color.RGBA{255, 0, 0, 0}
	white = color.RGBA{255, 255, 255, 0}
)

// Renderer draws overlays with gocv, shows them in a window and polls the
// quit key. Without a window it only feeds the debug ring.
type Renderer struct {
	window   *gocv.Window
	quitKey  int
	label    func(string) string
	debugSvc *DebugService
}

// NewRenderer creates the preview window when cfg.Enabled is set.
// label maps match names to the text drawn on screen.
func NewRenderer(cfg config.DisplayConfig, label func(string) string, debugSvc *DebugService) *Renderer {
	r := &Renderer{
		label:    label,
		debugSvc: debugSvc,
	}
	if cfg.QuitKey != "" {
		r.quitKey = int(strings.ToLower(cfg.QuitKey)[0])
	}
	if r.label == nil {
		r.label = func(name string) string { return name }
	}

	if cfg.Enabled {
		r.window = gocv.NewWindow(cfg.WindowName)
		log.Infof("Preview window %q opened, press '%s' to quit", cfg.WindowName, cfg.QuitKey)
	} else {
		log.Info("Preview window disabled, running headless")
	}
	return r
}

// Render implements processor.Renderer
func (r *Renderer) Render(ctx context.Context, f processor.Frame, overlay processor.Overlay) (bool, error) {
	frame, ok := f.(*Frame)
	if !ok {
		return false, fmt.Errorf("unsupported frame type %T", f)
	}

	if !frame.Empty() {
		Draw(frame.Mat(), overlay, r.label)

		if r.debugSvc != nil && overlay.Processed {
			data, err := frame.JPEG()
			if err != nil {
				log.Debugf("Failed to encode debug frame %d: %v", overlay.FrameIndex, err)
			} else {
				r.debugSvc.Add(overlay, data)
			}
		}
	}

	if r.window == nil {
		return false, nil
	}

	if !frame.Empty() {
		r.window.IMShow(*frame.Mat())
	}
	key := r.window.WaitKey(1)
	return r.quitKey != 0 && key >= 0 && (key&0xFF) == r.quitKey, nil
}

// Close destroys the window
func (r *Renderer) Close() error {
	if r.window != nil {
		return r.window.Close()
	}
	return nil
}

// Draw paints a box and a filled name bar for every label
func Draw(img *gocv.Mat, overlay processor.Overlay, label func(string) string) {
	for _, l := range overlay.Labels {
		rect := l.Box.Rect()
		gocv.Rectangle(img, rect, red, boxThickness)

		bar := image.Rect(l.Box.Left, l.Box.Bottom-labelHeight, l.Box.Right, l.Box.Bottom)
		gocv.Rectangle(img, bar, red, -1)

		origin := image.Point{X: l.Box.Left + labelPadding, Y: l.Box.Bottom - labelPadding}
		gocv.PutText(img, label(l.Name), origin, gocv.FontHersheyDuplex, 1.0, white, 1)
	}
}
