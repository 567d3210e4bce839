package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// ChunkSize is the size of each write when streaming an image to disk
	ChunkSize = 10_000_000

	// DefaultCacheSize bounds how many known file names the manager remembers
	DefaultCacheSize = 4096

	tempSuffix = ".tmp"
)

var chunkPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, ChunkSize)
		return &buf
	},
}

// Manager writes images into one output directory and answers whether a
// file name is already taken
type Manager struct {
	outputDir string
	known     *lru.Cache[string, struct{}]
}

// NewManager creates the output directory if needed and indexes the files
// already in it
func NewManager(outputDir string, cacheSize int) (*Manager, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	// Create output directory if it doesn't exist
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	known, err := lru.New[string, struct{}](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create file cache: %w", err)
	}

	manager := &Manager{
		outputDir: outputDir,
		known:     known,
	}

	if err := manager.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}

	return manager, nil
}

// scanExistingFiles seeds the cache with files already in the output directory
func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), tempSuffix) {
			continue
		}
		m.known.Add(entry.Name(), struct{}{})
	}

	return nil
}

// FileName joins a display name and the link's trailing path segment.
// With an empty name the segment alone is used.
func FileName(name, link string) string {
	segment := lastSegment(link)
	if name == "" {
		return segment
	}
	return name + "_" + segment
}

// DisplayName recovers the display name FileName joined into fileName.
// A file name not built from link is returned unchanged.
func DisplayName(fileName, link string) string {
	segment := lastSegment(link)
	if fileName == segment {
		return ""
	}
	if name, ok := strings.CutSuffix(fileName, "_"+segment); ok && name != "" {
		return name
	}
	return fileName
}

func lastSegment(link string) string {
	if i := strings.IndexAny(link, "?#"); i >= 0 {
		link = link[:i]
	}
	return filepath.Base(filepath.FromSlash(link))
}

// Path returns the absolute location of fileName inside the output directory
func (m *Manager) Path(fileName string) string {
	return filepath.Join(m.outputDir, fileName)
}

// Exists reports whether fileName is already present in the output directory
func (m *Manager) Exists(fileName string) bool {
	if m.known.Contains(fileName) {
		return true
	}

	if info, err := os.Stat(m.Path(fileName)); err == nil && !info.IsDir() {
		m.known.Add(fileName, struct{}{})
		return true
	}

	return false
}

// Save streams r into fileName through a temporary file that is renamed
// into place once fully written. It returns the final path.
func (m *Manager) Save(r io.Reader, fileName string) (string, error) {
	path := m.Path(fileName)

	out, err := os.CreateTemp(m.outputDir, fileName+".*"+tempSuffix)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempFile := out.Name()

	_, err = copyChunks(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to save image data: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Chmod(tempFile, 0644); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to set file mode: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.known.Add(fileName, struct{}{})
	return path, nil
}

// copyChunks copies r to w in ChunkSize writes
func copyChunks(w io.Writer, r io.Reader) (int64, error) {
	bufp := chunkPool.Get().(*[]byte)
	defer chunkPool.Put(bufp)
	buf := *bufp

	var written int64
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			nw, werr := w.Write(buf[:n])
			written += int64(nw)
			if werr != nil {
				return written, werr
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}

// Dir returns the output directory path
func (m *Manager) Dir() string {
	return m.outputDir
}

// KnownCount returns how many file names are currently cached as present
func (m *Manager) KnownCount() int {
	return m.known.Len()
}
