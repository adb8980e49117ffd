package utils

import (
	"errors"
	"os"
	"path/filepath"
)

var ErrSearchFile = errors.New("could not search file")

// SearchFilePathtoUpward looks for fileName in root and then in each of its
// ancestor directories, nearest first.
//
// It returns the path of the first hit, or ErrSearchFile when even the
// filesystem root has no such file.
func SearchFilePathtoUpward(root string, fileName string) (*string, error) {
	path := filepath.Join(root, fileName)
	if _, err := os.Stat(path); err == nil {
		return &path, nil
	}

	parent := filepath.Dir(root)
	if parent == root {
		return nil, ErrSearchFile
	}
	return SearchFilePathtoUpward(parent, fileName)
}
