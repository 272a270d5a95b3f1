package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileWriter appends to a date-stamped file log-YYYY-MM-DD.txt inside a
// directory and switches to a new file when the date changes.
type FileWriter struct {
	now  func() time.Time
	file *os.File
	dir  string
	date string
	mu   sync.Mutex
}

// NewFileWriter creates dir if needed and returns a writer for it.
func NewFileWriter(dir string) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logger: create log dir: %w", err)
	}
	return &FileWriter{dir: dir, now: time.Now}, nil
}

// Path returns the file the next write goes to.
func (w *FileWriter) Path() string {
	return filepath.Join(w.dir, "log-"+w.now().Format(time.DateOnly)+".txt")
}

func (w *FileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	date := w.now().Format(time.DateOnly)
	if w.file == nil || date != w.date {
		if w.file != nil {
			_ = w.file.Close()
			w.file = nil
		}
		f, err := os.OpenFile(filepath.Join(w.dir, "log-"+date+".txt"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return 0, fmt.Errorf("logger: open log file: %w", err)
		}
		w.file, w.date = f, date
	}
	return w.file.Write(p)
}

// Close closes the current file.
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
