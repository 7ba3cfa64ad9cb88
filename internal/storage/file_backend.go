package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/logging"
	"github.com/camerarecorder/cloud-agent-go/internal/protocol"
)

// FileBackend is the default local Backend: one file per item under
// rootDir, named so List can reconstruct [begin, end) without opening
// the file.
type FileBackend struct {
	rootDir string
	logger  *logging.Logger
}

// NewFileBackend builds a FileBackend rooted at dir, creating it if
// necessary.
func NewFileBackend(dir string, logger *logging.Logger) (*FileBackend, error) {
	if logger == nil {
		logger = logging.GetLogger("storage-file-backend")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root dir: %w", err)
	}
	return &FileBackend{rootDir: dir, logger: logger}, nil
}

func (b *FileBackend) path(item Item) string {
	ext := "bin"
	switch item.MediaType {
	case protocol.MediaTypeMP4:
		ext = "mp4"
	case protocol.MediaTypeJPG:
		ext = "jpg"
	}
	name := fmt.Sprintf("%s__%s__%d__%d.%s",
		sanitize(item.StreamID), sanitize(string(item.Category)),
		item.Begin.UnixNano(), item.End.UnixNano(), ext)
	return filepath.Join(b.rootDir, name)
}

func sanitize(s string) string {
	return strings.ReplaceAll(s, string(filepath.Separator), "_")
}

func parseName(name string) (streamID string, category protocol.StorageCategory, begin, end time.Time, ok bool) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(base, "__")
	if len(parts) != 4 {
		return "", "", time.Time{}, time.Time{}, false
	}
	beginNs, err1 := strconv.ParseInt(parts[2], 10, 64)
	endNs, err2 := strconv.ParseInt(parts[3], 10, 64)
	if err1 != nil || err2 != nil {
		return "", "", time.Time{}, time.Time{}, false
	}
	return parts[0], protocol.StorageCategory(parts[1]), time.Unix(0, beginNs), time.Unix(0, endNs), true
}

// List returns every item whose [begin, end) overlaps [start, end], with
// no Data populated.
func (b *FileBackend) List(ctx context.Context, start, end time.Time) ([]Item, error) {
	entries, err := os.ReadDir(b.rootDir)
	if err != nil {
		return nil, fmt.Errorf("storage: list root dir: %w", err)
	}

	var items []Item
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		streamID, category, begin, itemEnd, ok := parseName(entry.Name())
		if !ok {
			continue
		}
		if itemEnd.Before(start) || begin.After(end) {
			continue
		}
		items = append(items, Item{StreamID: streamID, Category: category, Begin: begin, End: itemEnd})
	}
	return items, nil
}

// Load fills item.Data by reading the backing file.
func (b *FileBackend) Load(ctx context.Context, item *Item) error {
	data, err := os.ReadFile(b.resolveExisting(*item))
	if err != nil {
		return fmt.Errorf("storage: load %s: %w", item.StreamID, err)
	}
	item.Data = data
	return nil
}

// resolveExisting finds the on-disk file for item regardless of which
// media-type extension it was written with, since Load may be called on
// an Item built purely from List (MediaType unset).
func (b *FileBackend) resolveExisting(item Item) string {
	if item.MediaType != "" {
		return b.path(item)
	}
	entries, err := os.ReadDir(b.rootDir)
	if err != nil {
		return b.path(item)
	}
	prefix := fmt.Sprintf("%s__%s__%d__%d.",
		sanitize(item.StreamID), sanitize(string(item.Category)), item.Begin.UnixNano(), item.End.UnixNano())
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), prefix) {
			return filepath.Join(b.rootDir, entry.Name())
		}
	}
	return b.path(item)
}

// Store writes item.Data to a temp file and renames it into place, so a
// crash mid-write never leaves a partial item visible to List.
func (b *FileBackend) Store(ctx context.Context, item *Item, isCancelled IsCancelled) error {
	if isCancelled != nil && isCancelled() {
		return fmt.Errorf("storage: store cancelled before start")
	}

	dest := b.path(*item)
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, item.Data, 0o644); err != nil {
		return fmt.Errorf("storage: write temp file: %w", err)
	}

	if isCancelled != nil && isCancelled() {
		_ = os.Remove(tmp)
		return fmt.Errorf("storage: store cancelled mid-transfer")
	}

	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("storage: rename into place: %w", err)
	}
	return nil
}

// Erase best-effort removes item's backing file.
func (b *FileBackend) Erase(ctx context.Context, item Item) error {
	if err := os.Remove(b.resolveExisting(item)); err != nil && !os.IsNotExist(err) {
		b.logger.WithFields(logging.Fields{"stream": item.StreamID, "error": err}).Warn("failed to erase storage item")
	}
	return nil
}
