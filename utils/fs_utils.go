package utils

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// CreateFile will create a file at the given path and file name combination. If the path is the empty string, the
// file will be created in the current working directory.
func CreateFile(path string, fileName string) (*os.File, error) {
	// By default, the path will be the name of the file
	filePath := fileName

	// Check to see if the file needs to be created in another directory or the working directory
	if path != "" {
		// Make the directory, if it does not exist already
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, errors.WithStack(err)
		}
		filePath = filepath.Join(path, fileName)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return file, nil
}

// WriteFile writes data to the provided path, creating any missing parent directories first.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.WithStack(err)
		}
	}
	return errors.WithStack(os.WriteFile(path, data, 0644))
}

// FileExists returns a boolean indicating whether a file or directory exists at the provided path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
