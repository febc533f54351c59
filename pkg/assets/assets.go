// Package assets discovers local files to upload.
package assets

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethpandaops/assetoor/pkg/upload"
)

// Discover walks root and returns every regular file as an asset whose
// path is the slash-separated path relative to root. Files are returned in
// lexical order. Hidden files and directories are skipped unless
// includeHidden is set.
func Discover(root string, includeHidden bool) ([]upload.Asset, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading asset directory: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var out []upload.Asset

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if path != root && !includeHidden && strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("computing relative path: %w", err)
		}

		out = append(out, fileAsset(path, filepath.ToSlash(relPath), info.Size()))

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory %s: %w", root, err)
	}

	return out, nil
}

// FileAsset returns an asset for a single local file published under
// path.
func FileAsset(localPath, path string) (upload.Asset, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return upload.Asset{}, fmt.Errorf("reading asset: %w", err)
	}

	if !info.Mode().IsRegular() {
		return upload.Asset{}, fmt.Errorf("%s is not a regular file", localPath)
	}

	return fileAsset(localPath, path, info.Size()), nil
}

func fileAsset(localPath, path string, size int64) upload.Asset {
	return upload.Asset{
		Path:        path,
		Size:        size,
		ContentType: detectContentType(localPath),
		Open: func() (io.ReadCloser, error) {
			return os.Open(localPath)
		},
	}
}

// detectContentType returns a MIME type based on file extension.
func detectContentType(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return "application/octet-stream"
	}

	ct := mime.TypeByExtension(ext)
	if ct == "" {
		return "application/octet-stream"
	}

	return ct
}
