package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const TuskDirName = ".tusk"

// FindUpward looks for any of the relative candidate paths in start and each
// of its parents, returning the first that exists. The closest directory wins.
func FindUpward(start string, candidates []string) string {
	currentDir := start
	for {
		for _, relPath := range candidates {
			fullPath := filepath.Join(currentDir, relPath)
			if _, err := os.Stat(fullPath); err == nil {
				return fullPath
			}
		}

		parent := filepath.Dir(currentDir)
		if parent == currentDir || parent == "." {
			return ""
		}
		currentDir = parent
	}
}

// ProjectRoot returns the directory a config file belongs to: the parent of
// the .tusk directory when the file lives inside one, its own directory
// otherwise.
func ProjectRoot(configPath string) string {
	dir := filepath.Dir(configPath)
	if filepath.Base(dir) == TuskDirName {
		return filepath.Dir(dir)
	}
	return dir
}

// ResolvePath makes p absolute relative to root. Absolute paths are returned
// unchanged.
func ResolvePath(root, p string) string {
	if p == "" || filepath.IsAbs(p) || root == "" {
		return p
	}
	return filepath.Join(root, p)
}

// ListFiles returns the files below dir with one of the given extensions,
// sorted by path.
func ListFiles(dir string, exts ...string) ([]string, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("directory not found: %s", dir)
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if len(exts) == 0 || slices.Contains(exts, ext) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error listing %s: %w", dir, err)
	}

	slices.Sort(files)
	return files, nil
}
