package alert

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dfgiraldo/movalert/internal/news"
)

// FileChannel appends alerts as JSON lines to a log file, one object per
// line so the file stays greppable and tail-friendly.
type FileChannel struct {
	path string
}

// NewFileChannel creates a file channel writing to path.
func NewFileChannel(path string) *FileChannel {
	return &FileChannel{path: path}
}

func (f *FileChannel) Name() string { return "file" }

type fileAlert struct {
	AlertedAt string    `json:"alerted_at"`
	Item      news.Item `json:"item"`
}

func (f *FileChannel) Send(item news.Item) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("creating alerts directory: %w", err)
	}

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening alerts file: %w", err)
	}
	defer file.Close()

	record := fileAlert{
		AlertedAt: time.Now().UTC().Format(time.RFC3339),
		Item:      item,
	}
	if err := json.NewEncoder(file).Encode(record); err != nil {
		return fmt.Errorf("writing alert: %w", err)
	}
	return nil
}
