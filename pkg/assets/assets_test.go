package assets

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html", "<html></html>")
	writeFile(t, root, "img/logo.png", "png")
	writeFile(t, root, "css/site.css", "body{}")
	writeFile(t, root, ".git/config", "secret")
	writeFile(t, root, ".env", "secret")

	got, err := Discover(root, false)
	require.NoError(t, err)

	paths := make([]string, 0, len(got))
	for _, a := range got {
		paths = append(paths, a.Path)
	}

	assert.Equal(t, []string{"css/site.css", "img/logo.png", "index.html"}, paths)
	assert.Equal(t, int64(6), got[0].Size)

	rc, err := got[0].Open()
	require.NoError(t, err)

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "body{}", string(data))
}

func TestDiscover_IncludeHidden(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".well-known/security.txt", "contact")

	got, err := Discover(root, true)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ".well-known/security.txt", got[0].Path)
}

func TestDiscover_Errors(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "missing"), false)
	require.Error(t, err)

	root := t.TempDir()
	writeFile(t, root, "file.txt", "x")

	_, err = Discover(filepath.Join(root, "file.txt"), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestFileAsset(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.js", "console.log(1)")

	a, err := FileAsset(filepath.Join(root, "app.js"), "js/app.js")
	require.NoError(t, err)
	assert.Equal(t, "js/app.js", a.Path)
	assert.Equal(t, int64(14), a.Size)
	assert.Contains(t, a.ContentType, "javascript")

	_, err = FileAsset(root, "dir")
	require.Error(t, err)
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantPrefix string
	}{
		{name: "json file", path: "data/config.json", wantPrefix: "application/json"},
		{name: "no extension", path: "assets/LICENSE", wantPrefix: "application/octet-stream"},
		{name: "html file", path: "index.html", wantPrefix: "text/html"},
		{name: "css file", path: "css/site.css", wantPrefix: "text/css"},
		{name: "unknown extension", path: "blob.assetoorxyz", wantPrefix: "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectContentType(tt.path)
			assert.Contains(t, got, tt.wantPrefix)
		})
	}
}
