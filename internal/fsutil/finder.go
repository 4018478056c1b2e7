// Package fsutil provides file system utility functions on top of afero so
// that callers can be exercised against in-memory trees.
package fsutil

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
)

// FindFiles walks rootPath and returns the paths of every regular file named
// name, at most maxDepth path segments below the root. A missing root yields
// no files and no error. The result is sorted.
func FindFiles(fsys afero.Fs, rootPath, name string, maxDepth int) ([]string, error) {
	if name == "" {
		panic("name must not be empty")
	}

	exists, err := afero.DirExists(fsys, rootPath)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	var files []string
	err = afero.Walk(fsys, rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(rootPath, path)
		if err != nil {
			return err
		}
		depth := 0
		if rel != "." {
			depth = strings.Count(filepath.ToSlash(rel), "/") + 1
		}
		if info.IsDir() {
			if depth >= maxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Name() == name {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)
	return files, nil
}

// Dirs lists the names of the immediate subdirectories of dir, sorted.
func Dirs(fsys afero.Fs, dir string) ([]string, error) {
	infos, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, info := range infos {
		if info.IsDir() {
			names = append(names, info.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// FilesWithSuffix returns every regular file below dir whose name ends with
// suffix, sorted. A missing directory yields no files.
func FilesWithSuffix(fsys afero.Fs, dir, suffix string) ([]string, error) {
	exists, err := afero.DirExists(fsys, dir)
	if err != nil || !exists {
		return nil, err
	}
	var files []string
	err = afero.Walk(fsys, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(info.Name(), suffix) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}
