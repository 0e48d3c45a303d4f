package session

import (
	"fmt"
	"time"
)

// State of the capture session manager.
type State int

const (
	Idle State = iota
	Capturing
	EditorOpen
	Editing
	Saved
	CopiedToClipboard
	Cancelled
	Errored
)

var stateNames = map[State]string{
	Idle:              "idle",
	Capturing:         "capturing",
	EditorOpen:        "editor_open",
	Editing:           "editing",
	Saved:             "saved",
	CopiedToClipboard: "copied",
	Cancelled:         "cancelled",
	Errored:           "errored",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether s ends a session.
func (s State) Terminal() bool {
	return s >= Saved
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a name written by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	for state, name := range stateNames {
		if name == string(b) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", b)
}

// Outcome names reported in session.end.
const (
	OutcomeSaved     = "saved"
	OutcomeCopied    = "copied"
	OutcomeCancelled = "cancelled"
)

func outcomeState(outcome string) State {
	switch outcome {
	case OutcomeSaved:
		return Saved
	case OutcomeCopied:
		return CopiedToClipboard
	case OutcomeCancelled:
		return Cancelled
	}
	return Errored
}

// Info describes the manager for status endpoints.
type Info struct {
	State       State     `json:"state"`
	SessionID   string    `json:"session_id,omitempty"`
	Display     int       `json:"display"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	LastOutcome string    `json:"last_outcome,omitempty"`
	MainHidden  bool      `json:"main_hidden"`
}
