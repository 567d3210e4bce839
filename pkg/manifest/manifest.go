package manifest

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"walldo/pkg/storage"
)

// Version is the manifest format written by Save. Version 1 keyed images by
// display name; Load converts those keys to file names.
const Version = 2

// FileName is the manifest name used when a run exports into its target directory
const FileName = "walldo-manifest.json"

// Manifest records what a run downloaded so the same images can be fetched
// again later, possibly into another directory
type Manifest struct {
	Keyword   string            `json:"keyword"`
	TargetDir string            `json:"target_dir"`
	RunID     string            `json:"run_id,omitempty"`
	Images    map[string]string `json:"images"` // file name -> full-size link
	CreatedAt time.Time         `json:"created_at"`
	Version   int               `json:"version"`
}

// New creates a manifest for a finished run. The images map is copied.
func New(keyword, targetDir, runID string, images map[string]string) *Manifest {
	copied := make(map[string]string, len(images))
	for fileName, link := range images {
		copied[fileName] = link
	}

	return &Manifest{
		Keyword:   keyword,
		TargetDir: targetDir,
		RunID:     runID,
		Images:    copied,
		CreatedAt: time.Now().UTC(),
		Version:   Version,
	}
}

// DefaultPath returns where a run exports its manifest inside targetDir
func DefaultPath(targetDir string) string {
	return filepath.Join(targetDir, FileName)
}

// Save writes the manifest to path atomically
func Save(path string, m *Manifest) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	file, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary manifest file: %w", err)
	}
	tempPath := file.Name()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(m); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	// Ensure data is written to disk
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync manifest file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close manifest file: %w", err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to set manifest permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace manifest file: %w", err)
	}

	return nil
}

// Load reads and validates a manifest
func Load(path string) (*Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer file.Close()

	var m Manifest
	if err := json.NewDecoder(file).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}

	if m.Version < 2 {
		m.Images = fileNameKeys(m.Images)
		m.Version = Version
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}

	return &m, nil
}

// Validate checks the format version, that every key is a plain file name
// and that every link is an absolute http(s) URL
func (m *Manifest) Validate() error {
	if m.Version > Version {
		return fmt.Errorf("unsupported manifest version %d", m.Version)
	}
	if len(m.Images) == 0 {
		return fmt.Errorf("manifest lists no images")
	}
	for fileName, link := range m.Images {
		if fileName == "" || fileName == "." || fileName == ".." || strings.ContainsAny(fileName, `/\`) {
			return fmt.Errorf("image %q is not a plain file name", fileName)
		}
		u, err := url.Parse(link)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("image %q has an invalid link %q", fileName, link)
		}
	}
	return nil
}

// fileNameKeys rewrites a display name -> link map the way downloads name
// their files
func fileNameKeys(byName map[string]string) map[string]string {
	out := make(map[string]string, len(byName))
	for name, link := range byName {
		out[storage.FileName(name, link)] = link
	}
	return out
}
