//go:build !windows && !((linux || darwin) && cgo)

package output

// NewClipboard returns Unsupported: the bitmap clipboard needs cgo here.
func NewClipboard() Clipboard {
	return NewUnsupported()
}
