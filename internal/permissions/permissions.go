// Package permissions gates the output sinks on capability grants read from
// the config file or environment.
package permissions

import (
	"fmt"
	"strings"

	apperrors "github.com/bryanchriswhite/focusshot/internal/errors"
)

// Status enumerates coarse permission results.
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusGranted Status = "granted"
	StatusDenied  Status = "denied"
	// StatusPromptRequired means the platform will ask the user when the sink runs.
	StatusPromptRequired Status = "prompt"
	StatusUnavailable    Status = "unavailable"
)

// Capability is something an output sink needs.
type Capability string

const (
	Filesystem Capability = "filesystem"
	Clipboard  Capability = "clipboard"
)

// ParseStatus normalises a configured value. Unrecognised values are unknown.
func ParseStatus(value string) Status {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "granted", "allow", "allowed", "yes", "true":
		return StatusGranted
	case "denied", "no", "false", "blocked":
		return StatusDenied
	case "prompt", "ask":
		return StatusPromptRequired
	case "unavailable", "unsupported":
		return StatusUnavailable
	default:
		return StatusUnknown
	}
}

// Allows reports whether a sink may proceed under s.
func (s Status) Allows() bool {
	return s == StatusGranted || s == StatusPromptRequired
}

// Gate holds the status of each capability.
type Gate struct {
	statuses map[Capability]Status
}

// NewGate builds a gate from configured values.
func NewGate(filesystem, clipboard string) *Gate {
	return &Gate{statuses: map[Capability]Status{
		Filesystem: ParseStatus(filesystem),
		Clipboard:  ParseStatus(clipboard),
	}}
}

// AllowAll grants every capability.
func AllowAll() *Gate {
	return NewGate(string(StatusGranted), string(StatusGranted))
}

// Status returns the recorded status of c.
func (g *Gate) Status(c Capability) Status {
	if s, ok := g.statuses[c]; ok {
		return s
	}
	return StatusUnknown
}

// Check returns ErrPermissionDenied unless c may be used.
func (g *Gate) Check(c Capability) error {
	s := g.Status(c)
	if s.Allows() {
		return nil
	}
	return fmt.Errorf("%s access is %s: %w", c, s, apperrors.ErrPermissionDenied)
}
