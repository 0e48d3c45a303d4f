// Package session owns the capture session lifecycle: it hides the host
// window, captures a display, opens (or reuses) the overlay window, and
// closes the session on save, copy or cancel.
//
// Every mutable field sits behind one lock held only by StartCapture and
// closeSession. Signals are collected while the lock is held and published
// after it is released, so bus handlers may call back into the manager.
package session

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/focusshot/internal/capture"
	apperrors "github.com/bryanchriswhite/focusshot/internal/errors"
	"github.com/bryanchriswhite/focusshot/internal/event"
	"github.com/bryanchriswhite/focusshot/internal/logger"
	"github.com/bryanchriswhite/focusshot/internal/permissions"
)

// MainWindow is the host application window. Only visibility is managed here.
type MainWindow interface {
	Hide() error
	Show() error
	IsVisible() bool
}

// OverlayWindow is the full-screen editor window. It is hidden between
// sessions and moved in place for the next one.
type OverlayWindow interface {
	Place(d capture.DisplayDescriptor) error
	Show() error
	Hide() error
	Close() error
}

// OverlayFactory creates an overlay window covering d.
type OverlayFactory func(d capture.DisplayDescriptor) (OverlayWindow, error)

// Capturer takes the snapshots.
type Capturer interface {
	EnumerateDisplays(ctx context.Context) ([]capture.DisplayDescriptor, error)
	CaptureDisplay(ctx context.Context, index int) (*image.RGBA, capture.DisplayDescriptor, error)
	CaptureAll(ctx context.Context) (*image.RGBA, error)
}

// Composer supplies the edited raster of a session and its revision.
type Composer interface {
	Compose(sessionID string) (*image.RGBA, uint64, bool)
}

// Output encodes and delivers artifacts.
type Output interface {
	Encode(sessionID string, revision uint64, img image.Image) ([]byte, error)
	DataURI(sessionID string, revision uint64, img image.Image) (string, error)
	UsesDialog() bool
	ChoosePath(ctx context.Context, filename string) (string, error)
	Write(path string, data []byte) error
	Copy(ctx context.Context, data []byte) error
	Forget(sessionID string)
}

// Gate grants output capabilities.
type Gate interface {
	Check(c permissions.Capability) error
}

// Config wires a Manager. MainWindow, Overlays and Composer are optional.
type Config struct {
	Capturer   Capturer
	Output     Output
	Gate       Gate
	Bus        *event.Bus
	MainWindow MainWindow
	Overlays   OverlayFactory
	Composer   Composer
}

// Capture is what StartCapture hands back to the caller.
type Capture struct {
	SessionID    string                    `json:"session_id"`
	EncodedImage string                    `json:"encoded_image"`
	Display      capture.DisplayDescriptor `json:"display"`
	Reused       bool                      `json:"reused"`
}

type activeSession struct {
	id        string
	display   capture.DisplayDescriptor
	raw       *image.RGBA
	encoded   string
	startedAt time.Time
}

// Manager is the capture session and window service.
type Manager struct {
	capturer Capturer
	out      Output
	gate     Gate
	bus      *event.Bus
	main     MainWindow
	overlays OverlayFactory

	mu          sync.Mutex
	composer    Composer
	state       State
	session     *activeSession
	overlay     OverlayWindow
	didHideMain bool
	lastMillis  int64
	lastOutcome string

	log *zerolog.Logger
}

// NewManager creates an idle manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Capturer == nil || cfg.Output == nil {
		return nil, fmt.Errorf("session manager needs a capturer and an output")
	}
	if cfg.Gate == nil {
		cfg.Gate = permissions.AllowAll()
	}
	if cfg.Bus == nil {
		cfg.Bus = event.NewBus()
	}
	return &Manager{
		capturer: cfg.Capturer,
		out:      cfg.Output,
		gate:     cfg.Gate,
		bus:      cfg.Bus,
		main:     cfg.MainWindow,
		overlays: cfg.Overlays,
		composer: cfg.Composer,
		log:      logger.WithComponent("session"),
	}, nil
}

// SetComposer registers the editor that produces exported rasters.
func (m *Manager) SetComposer(c Composer) {
	m.mu.Lock()
	m.composer = c
	m.mu.Unlock()
}

// Bus returns the signal bus.
func (m *Manager) Bus() *event.Bus {
	return m.bus
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Info returns a status snapshot.
func (m *Manager) Info() Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	info := Info{
		State:       m.state,
		Display:     capture.PrimaryDisplay,
		LastOutcome: m.lastOutcome,
		MainHidden:  m.didHideMain,
	}
	if s := m.session; s != nil {
		info.SessionID = s.id
		info.Display = s.display.Index
		info.Width, info.Height = s.raw.Bounds().Dx(), s.raw.Bounds().Dy()
		info.StartedAt = s.startedAt
	}
	return info
}

// EnumerateDisplays lists the active displays.
func (m *Manager) EnumerateDisplays(ctx context.Context) ([]capture.DisplayDescriptor, error) {
	return m.capturer.EnumerateDisplays(ctx)
}

// CaptureDisplay is a one-shot capture outside any session.
func (m *Manager) CaptureDisplay(ctx context.Context, index int) (*image.RGBA, capture.DisplayDescriptor, error) {
	return m.capturer.CaptureDisplay(ctx, index)
}

// CaptureAllDisplays is a one-shot capture of the whole virtual desktop.
func (m *Manager) CaptureAllDisplays(ctx context.Context) (*image.RGBA, error) {
	return m.capturer.CaptureAll(ctx)
}

// nextIDLocked mints "session-<unix ms>", bumped past the previous id when two
// sessions start within the same millisecond.
func (m *Manager) nextIDLocked() string {
	ms := time.Now().UnixMilli()
	if ms <= m.lastMillis {
		ms = m.lastMillis + 1
	}
	m.lastMillis = ms
	return fmt.Sprintf("session-%d", ms)
}

// StartCapture runs Idle -> Capturing -> EditorOpen. While a session is
// active it returns that session instead of capturing again. On any failure
// the main window is visible again and the manager is Idle when it returns.
func (m *Manager) StartCapture(ctx context.Context, displayIndex int) (Capture, error) {
	m.mu.Lock()
	if s := m.session; s != nil {
		m.mu.Unlock()
		m.log.Debug().Str("session_id", s.id).Msg("Capture already active, reusing session")
		return Capture{SessionID: s.id, EncodedImage: s.encoded, Display: s.display, Reused: true}, nil
	}

	events := []event.Event{event.NewCaptureStartedEvent(displayIndex)}
	res, err := m.startLocked(ctx, displayIndex, &events)
	if err != nil {
		m.cleanupLocked(err, &events)
	}
	m.mu.Unlock()

	m.publish(events)
	return res, err
}

func (m *Manager) startLocked(ctx context.Context, displayIndex int, events *[]event.Event) (Capture, error) {
	m.state = Capturing
	id := m.nextIDLocked()
	log := logger.WithSession("session", id)

	if m.main != nil && m.main.IsVisible() {
		if err := m.main.Hide(); err != nil {
			return Capture{}, fmt.Errorf("hide main window: %w", err)
		}
		m.didHideMain = true
	}

	img, d, err := m.capturer.CaptureDisplay(ctx, displayIndex)
	if err != nil {
		return Capture{}, err
	}
	if img == nil || img.Bounds().Empty() {
		return Capture{}, apperrors.Wrapf("capture", apperrors.ErrInvalidImage, "empty raster from display %d", d.Index)
	}
	*events = append(*events, event.NewCaptureCapturedEvent(d.Index, img.Bounds().Dx(), img.Bounds().Dy()))

	// Held on the manager from here on so cleanup can drop it.
	s := &activeSession{id: id, display: d, raw: img, startedAt: time.Now()}
	m.session = s

	s.encoded, err = m.out.DataURI(id, 0, img)
	if err != nil {
		return Capture{}, apperrors.Wrap("encode capture", err)
	}

	if err := m.showOverlayLocked(d); err != nil {
		return Capture{}, err
	}

	m.state = EditorOpen
	*events = append(*events,
		event.NewSessionStartEvent(id),
		event.NewImageDataEvent(s.encoded, id),
	)
	log.Info().
		Int("display", d.Index).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Bool("hid_main", m.didHideMain).
		Msg("Capture session started")
	return Capture{SessionID: id, EncodedImage: s.encoded, Display: d}, nil
}

// showOverlayLocked reuses the overlay window when it can and recreates it
// when reuse fails.
func (m *Manager) showOverlayLocked(d capture.DisplayDescriptor) error {
	if m.overlay != nil {
		err := m.overlay.Place(d)
		if err == nil {
			err = m.overlay.Show()
		}
		if err == nil {
			return nil
		}
		m.log.Warn().Err(err).Msg("Overlay reuse failed, recreating")
		if cerr := m.overlay.Close(); cerr != nil {
			m.log.Debug().Err(cerr).Msg("Closing stale overlay")
		}
		m.overlay = nil
	}
	if m.overlays == nil {
		return nil
	}

	w, err := m.overlays(d)
	if err != nil {
		return apperrors.Wrapf("create overlay", apperrors.ErrWindowCreationFailed, "%v", err)
	}
	if err := w.Show(); err != nil {
		w.Close()
		return apperrors.Wrapf("show overlay", apperrors.ErrWindowCreationFailed, "%v", err)
	}
	m.overlay = w
	return nil
}

// cleanupLocked is the single recovery path for StartCapture: restore the
// main window, drop the raster, hide the overlay, and go back to Idle.
func (m *Manager) cleanupLocked(err error, events *[]event.Event) {
	sessionID := ""
	if m.session != nil {
		sessionID = m.session.id
		m.out.Forget(sessionID)
	}
	m.session = nil

	if m.overlay != nil {
		if herr := m.overlay.Hide(); herr != nil {
			m.log.Warn().Err(herr).Msg("Hiding overlay after failure, closing it")
			m.overlay.Close()
			m.overlay = nil
		}
	}
	m.restoreMainLocked()

	if apperrors.IsCancellation(err) {
		m.lastOutcome = OutcomeCancelled
		m.log.Info().Msg("Capture cancelled")
		*events = append(*events, event.NewCaptureCancelledEvent())
	} else {
		m.lastOutcome = Errored.String()
		m.log.Error().Err(err).Str("session_id", sessionID).Msg("Capture failed")
		*events = append(*events, event.NewCaptureErrorEvent(apperrors.UserMessage(err)))
	}
	m.state = Idle
}

func (m *Manager) restoreMainLocked() {
	if !m.didHideMain {
		return
	}
	if err := m.main.Show(); err != nil {
		m.log.Error().Err(err).Msg("Failed to restore main window")
		return
	}
	m.didHideMain = false
}

// closeSession hides the overlay for reuse, restores the main window and
// moves through the terminal state back to Idle.
func (m *Manager) closeSession(sessionID, outcome string, signal event.Event) error {
	m.mu.Lock()
	s := m.session
	if s == nil || (sessionID != "" && s.id != sessionID) {
		m.mu.Unlock()
		return apperrors.ErrNoActiveSession
	}

	if m.overlay != nil {
		if err := m.overlay.Hide(); err != nil {
			m.log.Warn().Err(err).Msg("Failed to hide overlay, closing it")
			m.overlay.Close()
			m.overlay = nil
		}
	}
	m.restoreMainLocked()
	m.out.Forget(s.id)
	m.session = nil
	m.lastOutcome = outcome
	logger.WithSession("session", s.id).Info().
		Stringer("state", outcomeState(outcome)).
		Dur("duration", time.Since(s.startedAt)).
		Msg("Capture session closed")
	m.state = Idle
	m.mu.Unlock()

	m.publish([]event.Event{signal, event.NewSessionEndEvent(s.id, outcome)})
	return nil
}

// CancelCapture ends the active session without output.
func (m *Manager) CancelCapture() error {
	return m.closeSession("", OutcomeCancelled, event.NewCaptureCancelledEvent())
}

// current returns the active session and marks it as being edited.
func (m *Manager) current() (*activeSession, Composer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, nil, apperrors.ErrNoActiveSession
	}
	if m.state == EditorOpen {
		m.state = Editing
	}
	return m.session, m.composer, nil
}

// export returns the raster to deliver: the editor's composition when one is
// registered, otherwise the raw capture.
func export(s *activeSession, c Composer) (*image.RGBA, uint64) {
	if c != nil {
		if img, rev, ok := c.Compose(s.id); ok {
			return img, rev
		}
	}
	return s.raw, 0
}

// GetCapturedImage returns the current export of the active session as a
// data URI.
func (m *Manager) GetCapturedImage() (string, error) {
	s, c, err := m.current()
	if err != nil {
		return "", err
	}
	img, rev := export(s, c)
	uri, err := m.out.DataURI(s.id, rev, img)
	if err != nil {
		return "", m.fail(s.id, apperrors.Wrap("encode", err))
	}
	return uri, nil
}

// SaveImage writes the session's export to filename, to a generated name in
// the output directory, or to the path picked in the save dialog. A dismissed
// dialog returns ErrDialogCancelled and leaves the session open.
func (m *Manager) SaveImage(ctx context.Context, filename string) (string, error) {
	s, c, err := m.current()
	if err != nil {
		return "", err
	}
	log := logger.WithSession("session", s.id)
	if err := m.gate.Check(permissions.Filesystem); err != nil {
		return "", m.fail(s.id, err)
	}

	img, rev := export(s, c)
	data, err := m.out.Encode(s.id, rev, img)
	if err != nil {
		return "", m.fail(s.id, apperrors.Wrap("encode", err))
	}

	dialog := filename == "" && m.out.UsesDialog()
	if dialog {
		m.setOverlayVisible(false)
	}
	path, err := m.out.ChoosePath(ctx, filename)
	if dialog {
		m.setOverlayVisible(true)
	}
	if err != nil {
		if apperrors.IsCancellation(err) {
			log.Info().Msg("Save dialog dismissed")
			return "", err
		}
		return "", m.fail(s.id, apperrors.Wrap("save dialog", err))
	}

	if err := m.out.Write(path, data); err != nil {
		return "", m.fail(s.id, apperrors.Wrap("save", err))
	}
	if err := m.closeSession(s.id, OutcomeSaved, event.NewCaptureSavedEvent(path)); err != nil {
		return path, err
	}
	return path, nil
}

// CopyToClipboard places the session's export on the clipboard. On failure
// the session stays open so the image can still be saved.
func (m *Manager) CopyToClipboard(ctx context.Context) error {
	s, c, err := m.current()
	if err != nil {
		return err
	}
	if err := m.gate.Check(permissions.Clipboard); err != nil {
		return m.fail(s.id, err)
	}

	img, rev := export(s, c)
	data, err := m.out.Encode(s.id, rev, img)
	if err != nil {
		return m.fail(s.id, apperrors.Wrap("encode", err))
	}
	if err := m.out.Copy(ctx, data); err != nil {
		return m.fail(s.id, apperrors.Wrap("copy", err))
	}
	return m.closeSession(s.id, OutcomeCopied, event.NewCaptureCopiedEvent())
}

// fail reports a sink failure as capture.error. The session is kept.
func (m *Manager) fail(sessionID string, err error) error {
	logger.WithSession("session", sessionID).Error().Err(err).Msg("Output failed")
	m.bus.Publish(event.NewCaptureErrorEvent(apperrors.UserMessage(err)))
	return err
}

func (m *Manager) setOverlayVisible(visible bool) {
	m.mu.Lock()
	w := m.overlay
	m.mu.Unlock()
	if w == nil {
		return
	}
	var err error
	if visible {
		err = w.Show()
	} else {
		err = w.Hide()
	}
	if err != nil {
		m.log.Warn().Err(err).Bool("visible", visible).Msg("Overlay visibility change failed")
	}
}

// Close tears down the overlay window and restores the main window.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restoreMainLocked()
	m.session = nil
	m.state = Idle
	if m.overlay == nil {
		return nil
	}
	err := m.overlay.Close()
	m.overlay = nil
	return err
}

func (m *Manager) publish(events []event.Event) {
	for _, e := range events {
		m.bus.Publish(e)
	}
}
