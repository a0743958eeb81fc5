package dataset

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// ListFiles discovers TIFF files (.tif, .tiff, any case) under dir,
// recursively. The result is sorted by path so every worker computes the
// same ordered list. An empty result is ErrNoInputFiles.
func ListFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".tif", ".tiff":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", dir, err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %q", ErrNoInputFiles, dir)
	}
	sort.Strings(files)
	return files, nil
}
