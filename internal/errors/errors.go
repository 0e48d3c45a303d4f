// Package errors holds the capture pipeline's error taxonomy.
//
// Sentinel errors name the failure kind and are matched with errors.Is through
// any amount of wrapping. CaptureError attaches the failing operation to a
// cause so logs and signals can say where things went wrong.
//
// Two sentinels are not failures: ErrUserCancelled and ErrDialogCancelled mark
// normal terminal outcomes. IsCancellation reports them (and context.Canceled)
// so callers can route them down the cancellation path instead of the error
// path.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions so callers only import this package.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Capture taxonomy
var (
	ErrDisplayNotFound      = New("display not found")
	ErrNoDisplayAvailable   = New("no display available")
	ErrInvalidImage         = New("invalid image")
	ErrEncodingFailed       = New("image encoding failed")
	ErrWindowCreationFailed = New("overlay window creation failed")
	ErrClipboardSetFailed   = New("failed to set clipboard")
	ErrUnsupportedPlatform  = New("unsupported platform")
	ErrCaptureTimeout       = New("capture timed out")
)

// Session and access errors
var (
	ErrNoActiveSession  = New("no active capture session")
	ErrPermissionDenied = New("permission denied")
)

// Normal terminal outcomes
var (
	ErrUserCancelled   = New("cancelled by user")
	ErrDialogCancelled = New("dialog cancelled by user")
)

// CaptureError wraps a cause with the operation that produced it.
type CaptureError struct {
	Op string
	// Kind is the taxonomy sentinel of Err, nil when it matches none.
	Kind error
	Err  error
}

// Wrap returns nil for a nil cause so it can sit on a return line.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CaptureError{Op: op, Kind: Kind(err), Err: err}
}

// Wrapf wraps a sentinel kind together with formatted detail.
func Wrapf(op string, kind error, format string, args ...interface{}) error {
	return &CaptureError{Op: op, Kind: kind, Err: fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))}
}

func (e *CaptureError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// IsCancellation reports whether err is a normal user-driven terminal outcome.
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}
	return Is(err, ErrUserCancelled) || Is(err, ErrDialogCancelled) || Is(err, context.Canceled)
}

// Kind returns the taxonomy sentinel matched by err, or nil.
func Kind(err error) error {
	for _, kind := range []error{
		ErrDisplayNotFound,
		ErrNoDisplayAvailable,
		ErrInvalidImage,
		ErrEncodingFailed,
		ErrWindowCreationFailed,
		ErrClipboardSetFailed,
		ErrUnsupportedPlatform,
		ErrCaptureTimeout,
		ErrNoActiveSession,
		ErrPermissionDenied,
		ErrUserCancelled,
		ErrDialogCancelled,
	} {
		if Is(err, kind) {
			return kind
		}
	}
	return nil
}

// UserMessage renders err for the capture.error signal.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if kind := Kind(err); kind != nil && !strings.Contains(msg, kind.Error()) {
		msg = kind.Error() + ": " + msg
	}
	if len(msg) > 0 {
		msg = strings.ToUpper(msg[:1]) + msg[1:]
	}
	return msg
}
