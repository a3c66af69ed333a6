// Package fsutil provides file system utility functions.
package fsutil

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// FindFilesByExtension recursively searches the given root path for all files ending
// with the specified extension. It returns their full paths, sorted. Hidden
// files and directories (name starting with ".") below root are skipped, so
// editor swap files are never picked up.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	return findFiles(rootPath, extension, true)
}

// FindAllFilesByExtension is FindFilesByExtension including hidden files and
// directories.
func FindAllFilesByExtension(rootPath string, extension string) ([]string, error) {
	return findFiles(rootPath, extension, false)
}

func findFiles(rootPath string, extension string, skipHidden bool) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if skipHidden && path != rootPath && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
