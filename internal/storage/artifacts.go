// Package storage writes per-document check outputs to disk.
package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ArtifactStorage saves output files under BaseDir, one directory per
// checked source.
type ArtifactStorage struct {
	BaseDir string
	fs      afero.Fs
}

// NewArtifactStorage creates a storage handler rooted at baseDir.
func NewArtifactStorage(fs afero.Fs, baseDir string) *ArtifactStorage {
	return &ArtifactStorage{BaseDir: baseDir, fs: fs}
}

// Dir returns the directory artifacts of source are written to.
func (s *ArtifactStorage) Dir(source string) string {
	return filepath.Join(s.BaseDir, sanitize(source))
}

// Save writes data as name for source and returns the file path.
func (s *ArtifactStorage) Save(source, name string, data []byte) (string, error) {
	dir := s.Dir(source)
	if err := s.fs.MkdirAll(dir, 0o775); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	path := filepath.Join(dir, sanitize(name))
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", name, err)
	}
	return path, nil
}

// Load reads back an artifact written by Save.
func (s *ArtifactStorage) Load(source, name string) ([]byte, error) {
	return afero.ReadFile(s.fs, filepath.Join(s.Dir(source), sanitize(name)))
}

// sanitize maps a source or artifact name onto one safe path element.
// Characters other than letters, digits, '-', '_' and a non-leading '.'
// become '_'.
func sanitize(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == '.' && i > 0 && name[i-1] != '.' && name[i-1] != '/':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "document"
	}
	return b.String()
}
