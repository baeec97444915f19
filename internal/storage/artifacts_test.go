package storage

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewArtifactStorage(fs, "out")

	path, err := s.Save("ci/build.yml", "parsed.yaml", []byte("extends: {}\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("out", "ci_build.yml", "parsed.yaml"), path)

	data, err := s.Load("ci/build.yml", "parsed.yaml")
	require.NoError(t, err)
	assert.Equal(t, "extends: {}\n", string(data))
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"build.yml":           "build.yml",
		"ci/build.yml":        "ci_build.yml",
		"../../etc/passwd":    "______etc_passwd",
		"..":                  "__",
		".hidden":             "_hidden",
		"a..b":                "a._b",
		"p-1":                 "p-1",
		"":                    "document",
		"my pipeline (1).yml": "my_pipeline__1_.yml",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitize(in), in)
	}
}
