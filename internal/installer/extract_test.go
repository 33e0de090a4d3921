package installer

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	out, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	for name, body := range files {
		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate}
		hdr.SetMode(0755)
		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())
}

func TestExtractZipAndFindExecutable(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "gh_2.40.0_macOS_arm64.zip")
	writeZip(t, src, map[string]string{
		"gh_2.40.0_macOS_arm64/bin/gh":     "binary",
		"gh_2.40.0_macOS_arm64/LICENSE":    "MIT",
		"gh_2.40.0_macOS_arm64/share/gh.1": "man",
	})

	dest := filepath.Join(dir, "out")
	require.NoError(t, extractArchive(src, dest))

	bin, err := findExecutable(dest, "gh")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "gh_2.40.0_macOS_arm64", "bin", "gh"), bin)

	installed, err := installBinary(bin, filepath.Join(dir, "bin"))
	require.NoError(t, err)
	data, err := os.ReadFile(installed)
	require.NoError(t, err)
	assert.Equal(t, "binary", string(data))
}

func TestExtractTarGz(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tool.tgz")
	writeTarGz(t, src, map[string]string{"tool/tool": "x"})

	dest := filepath.Join(dir, "out")
	require.NoError(t, extractArchive(src, dest))
	assert.FileExists(t, filepath.Join(dest, "tool", "tool"))
}

func TestExtractRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "evil.zip")
	writeZip(t, src, map[string]string{"../escaped": "x"})

	err := extractArchive(src, filepath.Join(dir, "out"))
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "escaped"))
}

func TestExtractUnsupportedFormat(t *testing.T) {
	assert.Error(t, extractArchive("tool.rar", t.TempDir()))
	assert.False(t, isArchive("tool.rar"))
	assert.True(t, isArchive("tool.tar.xz"))
	assert.True(t, isArchive("tool.7z"))
}

func TestFindExecutableMissing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tool"), []byte("x"), 0644))

	_, err := findExecutable(dir, "tool")
	assert.Error(t, err)
}
