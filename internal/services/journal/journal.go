// Package journal writes the human-readable chat and server activity logs.
package journal

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mcoot/parksync/internal/dependencies/clock"
)

const (
	lineTimeFormat = "2006/01/02 15:04:05"
	fileTimeFormat = "2006-01-02_15-04-05"
)

// Journal appends timestamped lines to one file. A nil Journal discards
// everything, so callers can keep logging after a failed Open.
type Journal struct {
	mu    sync.Mutex
	clock clock.Clock
	path  string
	file  *os.File
	w     *bufio.Writer
}

// Open creates a new file named after kind and the current time under dir
func Open(dir, kind string, clk clock.Clock) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	name := fmt.Sprintf("%s_%s.txt", kind, clk.Now().Format(fileTimeFormat))
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s log: %w", kind, err)
	}
	return &Journal{clock: clk, path: path, file: f, w: bufio.NewWriter(f)}, nil
}

// Path returns the file being written
func (j *Journal) Path() string {
	if j == nil {
		return ""
	}
	return j.path
}

// Log writes one line prefixed with the current time. Embedded newlines are
// flattened so every entry stays on one line.
func (j *Journal) Log(text string) error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	text = strings.ReplaceAll(text, "\n", " ")
	if _, err := fmt.Fprintf(j.w, "[%s] %s\n", j.clock.Now().Format(lineTimeFormat), text); err != nil {
		return err
	}
	return j.w.Flush()
}

// Close flushes and closes the file
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.w.Flush(); err != nil {
		j.file.Close()
		return err
	}
	return j.file.Close()
}
