package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/bryanchriswhite/focusshot/internal/config"
	apperrors "github.com/bryanchriswhite/focusshot/internal/errors"
	"github.com/bryanchriswhite/focusshot/internal/interaction"
	"github.com/bryanchriswhite/focusshot/internal/logger"
	"github.com/bryanchriswhite/focusshot/internal/output"
	"github.com/bryanchriswhite/focusshot/internal/session"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Server represents the HTTP API server
type Server struct {
	router    *mux.Router
	sessions  *session.Manager
	editor    *interaction.Controller
	configMgr *config.Manager
	preview   *output.PreviewStream
	upgrader  websocket.Upgrader
}

// NewServer creates a new API server. editor and preview may be nil, which
// disables the editor endpoints.
func NewServer(sessions *session.Manager, editor *interaction.Controller, configMgr *config.Manager, preview *output.PreviewStream) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		sessions:  sessions,
		editor:    editor,
		configMgr: configMgr,
		preview:   preview,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local tool, any origin
			},
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Displays and one-shot captures
	api.HandleFunc("/displays", s.handleDisplays).Methods("GET")
	api.HandleFunc("/capture", s.handleStartCapture).Methods("POST")
	api.HandleFunc("/capture/displays/{index:-?[0-9]+}", s.handleCaptureDisplay).Methods("GET")
	api.HandleFunc("/capture/all", s.handleCaptureAll).Methods("GET")

	// Active session
	api.HandleFunc("/session", s.handleSession).Methods("GET")
	api.HandleFunc("/session/image", s.handleSessionImage).Methods("GET")
	api.HandleFunc("/session/save", s.handleSave).Methods("POST")
	api.HandleFunc("/session/copy", s.handleCopy).Methods("POST")
	api.HandleFunc("/session/cancel", s.handleCancel).Methods("POST")

	// Editor
	api.HandleFunc("/editor/input", s.handleEditorInput).Methods("POST")
	api.HandleFunc("/editor/preview", s.handlePreview).Methods("GET")

	api.HandleFunc("/events", s.handleEvents)
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start serves on port until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, port int) error {
	log := logger.WithComponent("api")
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", port).Msgf("Starting server on http://localhost:%d", port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info().Msg("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HTTP Handlers

func (s *Server) handleDisplays(w http.ResponseWriter, r *http.Request) {
	displays, err := s.sessions.EnumerateDisplays(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, displays)
}

func (s *Server) handleStartCapture(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Display *int `json:"display"`
	}{}
	if err := decodeOptional(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	index := s.configMgr.Get().Capture.Display
	if req.Display != nil {
		index = *req.Display
	}

	res, err := s.sessions.StartCapture(r.Context(), index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCaptureDisplay(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	img, d, err := s.sessions.CaptureDisplay(r.Context(), index)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("X-Display", d.String())
	writePNG(w, img)
}

func (s *Server) handleCaptureAll(w http.ResponseWriter, r *http.Request) {
	img, err := s.sessions.CaptureAllDisplays(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writePNG(w, img)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Session session.Info          `json:"session"`
		Editor  *interaction.Snapshot `json:"editor,omitempty"`
	}{Session: s.sessions.Info()}
	if s.editor != nil {
		st := s.editor.State()
		resp.Editor = &st
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSessionImage(w http.ResponseWriter, r *http.Request) {
	uri, err := s.sessions.GetCapturedImage()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"encoded_image": uri})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Filename string `json:"filename"`
	}{}
	if err := decodeOptional(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	path, err := s.sessions.SaveImage(r.Context(), req.Filename)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved", "path": path})
}

func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.CopyToClipboard(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "copied"})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.CancelCapture(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleEditorInput(w http.ResponseWriter, r *http.Request) {
	if s.editor == nil {
		http.Error(w, "editor not available", http.StatusServiceUnavailable)
		return
	}
	var in interaction.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := in.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var repaint bool
	if in.Pointer != nil {
		repaint = s.editor.HandlePointer(*in.Pointer)
	} else {
		var err error
		repaint, err = s.editor.HandleKey(r.Context(), *in.Key)
		if err != nil && !apperrors.IsCancellation(err) {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, struct {
		Repaint bool                 `json:"repaint"`
		State   interaction.Snapshot `json:"state"`
	}{repaint, s.editor.State()})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if s.preview == nil {
		http.Error(w, "preview not enabled", http.StatusServiceUnavailable)
		return
	}
	s.preview.Handler()(w, r)
}

// eventMessage is the websocket envelope for a bus signal.
type eventMessage struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	events, unsubscribe := s.sessions.Bus().Channel(32)
	defer unsubscribe()

	// The client never sends; reading detects when it goes away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			msg := eventMessage{Type: e.EventType(), Timestamp: e.Timestamp(), Data: e}
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Msg("WebSocket write error")
				return
			}
		}
	}
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.configMgr.Get())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
		"state":   s.sessions.State().String(),
	})
}

// decodeOptional decodes a JSON body, accepting an empty one.
func decodeOptional(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writePNG(w http.ResponseWriter, img *image.RGBA) {
	data, err := output.Encode(img)
	if err != nil {
		writeError(w, err)
		return
	}
	logger.WithComponent("api").Debug().
		Str("bounds", img.Bounds().String()).
		Str("size", humanize.Bytes(uint64(len(data)))).
		Msg("Serving capture")
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case apperrors.IsCancellation(err):
		return http.StatusConflict
	case apperrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	switch apperrors.Kind(err) {
	case apperrors.ErrNoActiveSession:
		return http.StatusConflict
	case apperrors.ErrDisplayNotFound:
		return http.StatusNotFound
	case apperrors.ErrPermissionDenied:
		return http.StatusForbidden
	case apperrors.ErrUnsupportedPlatform:
		return http.StatusNotImplemented
	case apperrors.ErrNoDisplayAvailable, apperrors.ErrWindowCreationFailed:
		return http.StatusServiceUnavailable
	case apperrors.ErrCaptureTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	body := map[string]string{"error": apperrors.UserMessage(err)}
	if kind := apperrors.Kind(err); kind != nil {
		body["kind"] = kind.Error()
	}
	writeJSON(w, statusFor(err), body)
}
