package output

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/image/draw"

	"github.com/bryanchriswhite/focusshot/internal/logger"
)

// PreviewStream serves composed editor frames as Motion JPEG over HTTP, so a
// remote client can watch the annotation session live.
type PreviewStream struct {
	config  Config
	running bool
	mu      sync.RWMutex

	clientsMu sync.RWMutex
	clients   map[chan []byte]struct{}

	lastMu sync.RWMutex
	last   []byte

	frames atomic.Uint64
}

// NewPreviewStream creates a stream. Frames larger than config's Width x
// Height are scaled down to fit; zero dimensions disable scaling.
func NewPreviewStream(config Config) *PreviewStream {
	if config.FPS <= 0 {
		config.FPS = 10
	}
	return &PreviewStream{
		config:  config,
		clients: make(map[chan []byte]struct{}),
	}
}

func (s *PreviewStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("preview stream already running")
	}
	s.running = true
	s.frames.Store(0)
	logger.WithComponent("preview").Info().Int("fps", s.config.FPS).Msg("Preview stream started")
	return nil
}

func (s *PreviewStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false

	s.clientsMu.Lock()
	for ch := range s.clients {
		close(ch)
	}
	s.clients = make(map[chan []byte]struct{})
	s.clientsMu.Unlock()

	logger.WithComponent("preview").Info().Uint64("frames", s.frames.Load()).Msg("Preview stream stopped")
	return nil
}

func (s *PreviewStream) Name() string { return "MJPEG editor preview" }

func (s *PreviewStream) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Clients returns the number of connected viewers.
func (s *PreviewStream) Clients() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// WriteFrame encodes frame once and fans it out. Slow viewers skip frames.
func (s *PreviewStream) WriteFrame(frame *image.RGBA) error {
	if !s.IsRunning() {
		return fmt.Errorf("preview stream not running")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, s.fit(frame), &jpeg.Options{Quality: 85}); err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	data := buf.Bytes()

	s.lastMu.Lock()
	s.last = data
	s.lastMu.Unlock()
	s.frames.Add(1)

	s.clientsMu.RLock()
	for ch := range s.clients {
		select {
		case ch <- data:
		default:
		}
	}
	s.clientsMu.RUnlock()
	return nil
}

func (s *PreviewStream) fit(frame *image.RGBA) image.Image {
	b := frame.Bounds()
	maxW, maxH := s.config.Width, s.config.Height
	if maxW <= 0 || maxH <= 0 || (b.Dx() <= maxW && b.Dy() <= maxH) {
		return frame
	}
	scale := float64(maxW) / float64(b.Dx())
	if sh := float64(maxH) / float64(b.Dy()); sh < scale {
		scale = sh
	}
	w, h := int(float64(b.Dx())*scale), int(float64(b.Dy())*scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), frame, b, draw.Src, nil)
	return dst
}

// Run pulls frames from source at the configured rate while the stream is
// running and at least one viewer is connected. A nil frame means there is
// nothing to show. Run returns when ctx is done.
func (s *PreviewStream) Run(ctx context.Context, source func() *image.RGBA) {
	ticker := time.NewTicker(time.Second / time.Duration(s.config.FPS))
	defer ticker.Stop()
	log := logger.WithComponent("preview")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.IsRunning() || s.Clients() == 0 {
				continue
			}
			frame := source()
			if frame == nil {
				continue
			}
			if err := s.WriteFrame(frame); err != nil {
				log.Warn().Err(err).Msg("Failed to write preview frame")
			}
		}
	}
}

// Handler returns the multipart/x-mixed-replace endpoint.
func (s *PreviewStream) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.IsRunning() {
			http.Error(w, "preview stream not running", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Connection", "close")

		frameChan := make(chan []byte, 2)
		s.lastMu.RLock()
		if s.last != nil {
			frameChan <- s.last
		}
		s.lastMu.RUnlock()

		s.clientsMu.Lock()
		s.clients[frameChan] = struct{}{}
		count := len(s.clients)
		s.clientsMu.Unlock()

		// Commit the headers now; the first frame may be a while coming.
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		log := logger.WithComponent("preview")
		log.Info().Int("clients", count).Msg("Preview client connected")
		defer func() {
			s.clientsMu.Lock()
			delete(s.clients, frameChan)
			count := len(s.clients)
			s.clientsMu.Unlock()
			log.Info().Int("clients", count).Msg("Preview client disconnected")
		}()

		for {
			select {
			case <-r.Context().Done():
				return
			case data, ok := <-frameChan:
				if !ok {
					return
				}
				if err := writePart(w, data); err != nil {
					return
				}
			}
		}
	}
}

func writePart(w http.ResponseWriter, data []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(data)); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "\r\n"); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
