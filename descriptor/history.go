package descriptor

import (
	"bufio"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// History remembers which input files were already imported, keyed by
// path and last modification time in milliseconds.
type History struct {
	path  string
	files map[string]int64
}

// LoadHistory reads the history file at path. A missing file yields an
// empty history.
func LoadHistory(path string) (*History, error) {
	h := &History{path: path, files: make(map[string]int64)}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return h, nil
		}
		return nil, fmt.Errorf("error opening history file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		mtime, name, ok := strings.Cut(sc.Text(), " ")
		if !ok {
			continue
		}
		ms, err := strconv.ParseInt(mtime, 10, 64)
		if err != nil {
			continue
		}
		h.files[name] = ms
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("error reading history file: %w", err)
	}
	return h, nil
}

// Seen reports whether name was imported with the given mtime.
func (h *History) Seen(name string, mtime int64) bool {
	ms, ok := h.files[name]
	return ok && ms == mtime
}

// Mark records name as imported.
func (h *History) Mark(name string, mtime int64) {
	h.files[name] = mtime
}

// Save atomically replaces the history file.
func (h *History) Save() error {
	if err := os.MkdirAll(filepath.Dir(h.path), 0755); err != nil {
		return fmt.Errorf("create history directory failed: %w", err)
	}
	dir, err := os.Open(filepath.Dir(h.path))
	if err != nil {
		return fmt.Errorf("open directory failed: %w", err)
	}
	defer dir.Close()

	var sb strings.Builder
	for _, name := range slices.Sorted(maps.Keys(h.files)) {
		fmt.Fprintf(&sb, "%d %s\n", h.files[name], name)
	}

	tmp := fmt.Sprintf("%s.tmp", h.path)
	if err := safeWrite(tmp, sb.String()); err != nil {
		return fmt.Errorf("safe write failed: %w", err)
	}
	if err := os.Rename(tmp, h.path); err != nil {
		return fmt.Errorf("rename failed: %w", err)
	}
	if err := dir.Sync(); err != nil {
		return fmt.Errorf("sync directory failed: %w", err)
	}
	return nil
}

func safeWrite(path string, data string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create failed: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(data); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync file failed: %w", err)
	}
	return nil
}
