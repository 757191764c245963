package reliability

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// DirectoryDumper writes every attempt to its own file in a directory,
// headers first, then a blank line, then the body
type DirectoryDumper struct {
	dir    string
	logger *slog.Logger
}

// NewDirectoryDumper creates dir if needed
func NewDirectoryDumper(dir string, logger *slog.Logger) (*DirectoryDumper, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create dump directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryDumper{dir: dir, logger: logger}, nil
}

// FileName returns the file an attempt is dumped to
func (d *DirectoryDumper) FileName(mode MessageMode, messageID string, attempt int) string {
	return filepath.Join(d.dir, fmt.Sprintf("%s-%s-%d.as4", sanitizeFileName(messageID), mode, attempt))
}

func (d *DirectoryDumper) OnBeginRequest(mode MessageMode, messageID string, header http.Header, attempt int) (io.WriteCloser, error) {
	f, err := os.Create(d.FileName(mode, messageID, attempt))
	if err != nil {
		return nil, err
	}
	w := &fileSink{f: f, w: bufio.NewWriter(f)}
	if err := header.Write(w.w); err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := w.w.WriteString("\r\n"); err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

func (d *DirectoryDumper) OnEndRequest(mode MessageMode, messageID string, err error) {
	if err != nil {
		d.logger.Debug("dumped failed attempt", "mode", mode.String(), "message_id", messageID, "error", err)
	}
}

type fileSink struct {
	f *os.File
	w *bufio.Writer
}

func (s *fileSink) Write(p []byte) (int, error) { return s.w.Write(p) }

func (s *fileSink) Close() error {
	if err := s.w.Flush(); err != nil {
		_ = s.f.Close()
		return err
	}
	return s.f.Close()
}

func sanitizeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_', r == '@':
			return r
		default:
			return '_'
		}
	}, s)
}
