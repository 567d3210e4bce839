package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exports", "ironman.json")
	images := map[string]string{
		"Iron Man_123.jpg":     "https://images.example/123.jpg",
		"Iron Man Mk3_456.png": "https://images.example/456.png",
	}

	m := New("ironman", "wallpapers/ironman", "run-1", images)
	images["mutated_789.jpg"] = "https://images.example/789.jpg"
	require.NoError(t, Save(path, m))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ironman", loaded.Keyword)
	assert.Equal(t, "wallpapers/ironman", loaded.TargetDir)
	assert.Equal(t, "run-1", loaded.RunID)
	assert.Equal(t, Version, loaded.Version)
	assert.Len(t, loaded.Images, 2)
	assert.Equal(t, "https://images.example/456.png", loaded.Images["Iron Man Mk3_456.png"])
	assert.WithinDuration(t, m.CreatedAt, loaded.CreatedAt, 0)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestSaveReplacesWithoutLeftovers(t *testing.T) {
	dir := t.TempDir()
	path := DefaultPath(dir)

	require.NoError(t, Save(path, New("a", dir, "", map[string]string{"a.jpg": "http://x.test/a.jpg"})))
	require.NoError(t, Save(path, New("b", dir, "", map[string]string{"b.jpg": "http://x.test/b.jpg"})))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, FileName, entries[0].Name())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "b", loaded.Keyword)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))
		return path
	}

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"missing file", filepath.Join(dir, "nope.json"), "failed to open manifest"},
		{"not json", write("garbage.json", "{not json"), "failed to decode manifest"},
		{"no images", write("empty.json", `{"keyword":"x","images":{},"version":1}`), "lists no images"},
		{"relative link", write("relative.json", `{"images":{"a":"/img/1.jpg"},"version":1}`), "invalid link"},
		{"path in file name", write("traversal.json", `{"images":{"../evil.jpg":"http://x.test/1.jpg"},"version":2}`), "not a plain file name"},
		{"future version", write("future.json", `{"images":{"a":"http://x.test/1.jpg"},"version":99}`), "unsupported manifest version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Load(tt.path)
			assert.Nil(t, m)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadVersion1KeysByDisplayName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.json")
	body := `{"keyword":"spiderman","images":{"Spiderman":"http://x.test/img/205.jpg","":"http://x.test/img/7.jpg"},"version":1}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Version, m.Version)
	assert.Equal(t, map[string]string{
		"Spiderman_205.jpg": "http://x.test/img/205.jpg",
		"7.jpg":             "http://x.test/img/7.jpg",
	}, m.Images)
}
