// Package event carries the capture pipeline's asynchronous signals from the
// session manager to whoever renders or relays them (the overlay editor, the
// websocket stream, the CLI).
package event

import "time"

// Signal names emitted by the capture session manager.
const (
	TypeCaptureStarted   = "capture.started"
	TypeCaptureCaptured  = "capture.captured"
	TypeCaptureSaved     = "capture.saved"
	TypeCaptureCopied    = "capture.copied"
	TypeCaptureCancelled = "capture.cancelled"
	TypeCaptureError     = "capture.error"
	TypeSessionStart     = "session.start"
	TypeSessionEnd       = "session.end"
	TypeImageData        = "image.data"
)

// Event is implemented by every signal.
type Event interface {
	// EventType returns "category.action".
	EventType() string
	Timestamp() time.Time
}

type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// CaptureStartedEvent fires when startCapture begins work.
type CaptureStartedEvent struct {
	baseEvent
	DisplayIndex int `json:"display_index"`
}

func NewCaptureStartedEvent(displayIndex int) CaptureStartedEvent {
	return CaptureStartedEvent{baseEvent: newBaseEvent(TypeCaptureStarted), DisplayIndex: displayIndex}
}

// CaptureCapturedEvent fires once the backend returned a raster.
type CaptureCapturedEvent struct {
	baseEvent
	DisplayIndex int `json:"display_index"`
	Width        int `json:"width"`
	Height       int `json:"height"`
}

func NewCaptureCapturedEvent(displayIndex, width, height int) CaptureCapturedEvent {
	return CaptureCapturedEvent{
		baseEvent:    newBaseEvent(TypeCaptureCaptured),
		DisplayIndex: displayIndex,
		Width:        width,
		Height:       height,
	}
}

// CaptureSavedEvent carries the written file path.
type CaptureSavedEvent struct {
	baseEvent
	Path string `json:"path"`
}

func NewCaptureSavedEvent(path string) CaptureSavedEvent {
	return CaptureSavedEvent{baseEvent: newBaseEvent(TypeCaptureSaved), Path: path}
}

type CaptureCopiedEvent struct {
	baseEvent
}

func NewCaptureCopiedEvent() CaptureCopiedEvent {
	return CaptureCopiedEvent{baseEvent: newBaseEvent(TypeCaptureCopied)}
}

type CaptureCancelledEvent struct {
	baseEvent
}

func NewCaptureCancelledEvent() CaptureCancelledEvent {
	return CaptureCancelledEvent{baseEvent: newBaseEvent(TypeCaptureCancelled)}
}

// CaptureErrorEvent carries a human-readable message, never a raw error value.
type CaptureErrorEvent struct {
	baseEvent
	Message string `json:"message"`
}

func NewCaptureErrorEvent(message string) CaptureErrorEvent {
	return CaptureErrorEvent{baseEvent: newBaseEvent(TypeCaptureError), Message: message}
}

type SessionStartEvent struct {
	baseEvent
	SessionID string `json:"session_id"`
}

func NewSessionStartEvent(sessionID string) SessionStartEvent {
	return SessionStartEvent{baseEvent: newBaseEvent(TypeSessionStart), SessionID: sessionID}
}

// SessionEndEvent reports the terminal outcome ("saved", "copied", "cancelled", "errored").
type SessionEndEvent struct {
	baseEvent
	SessionID string `json:"session_id"`
	Outcome   string `json:"outcome"`
}

func NewSessionEndEvent(sessionID, outcome string) SessionEndEvent {
	return SessionEndEvent{baseEvent: newBaseEvent(TypeSessionEnd), SessionID: sessionID, Outcome: outcome}
}

// ImageDataEvent delivers the encoded capture to the interaction layer.
// EncodedImage is a data URI.
type ImageDataEvent struct {
	baseEvent
	EncodedImage string `json:"encoded_image"`
	SessionID    string `json:"session_id"`
}

func NewImageDataEvent(encodedImage, sessionID string) ImageDataEvent {
	return ImageDataEvent{
		baseEvent:    newBaseEvent(TypeImageData),
		EncodedImage: encodedImage,
		SessionID:    sessionID,
	}
}
