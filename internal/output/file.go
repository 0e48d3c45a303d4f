package output

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bryanchriswhite/focusshot/internal/logger"
)

// FilenameLayout is the time layout of auto-generated file names.
const FilenameLayout = "Screenshot_2006-01-02_15-04-05.png"

// FileSink writes artifacts under a base directory.
type FileSink struct {
	dir string
	now func() time.Time
}

// NewFileSink creates a sink rooted at dir.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir, now: time.Now}
}

// Dir returns the base directory.
func (s *FileSink) Dir() string { return s.dir }

// DefaultName returns the timestamped name used when no filename is given.
func (s *FileSink) DefaultName() string {
	return s.now().Format(FilenameLayout)
}

// Resolve maps a caller-supplied filename to an absolute target path.
// Empty names get a timestamped name; relative names land in the base dir.
func (s *FileSink) Resolve(filename string) string {
	if filename == "" {
		filename = s.DefaultName()
	}
	if filepath.Ext(filename) == "" {
		filename += ".png"
	}
	if !filepath.IsAbs(filename) {
		filename = filepath.Join(s.dir, filename)
	}
	return filepath.Clean(filename)
}

// Write stores data at path. The directory is created if needed and the file
// appears atomically via rename.
func (s *FileSink) Write(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".focusshot-*.png")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into %s: %w", path, err)
	}

	logger.WithComponent("output").Info().
		Str("path", path).
		Str("size", humanize.Bytes(uint64(len(data)))).
		Msg("Screenshot saved")
	return nil
}

// Save resolves filename and writes data there, returning the final path.
func (s *FileSink) Save(filename string, data []byte) (string, error) {
	path := s.Resolve(filename)
	if err := s.Write(path, data); err != nil {
		return "", err
	}
	return path, nil
}
