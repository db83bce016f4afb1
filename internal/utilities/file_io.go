package utilities

import (
	"errors"
	"os"
	"path/filepath"
)

// EnsureParentDir creates the directory holding destFilePath when missing.
func EnsureParentDir(destFilePath string) error {
	dir := filepath.Dir(destFilePath)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return os.MkdirAll(dir, os.ModePerm)
	}
	return nil
}

// WriteFileAtomic writes data next to destFilePath and renames it into place
// so readers never observe a partial file.
func WriteFileAtomic(destFilePath string, data []byte) error {
	if err := EnsureParentDir(destFilePath); err != nil {
		return err
	}
	tmp := destFilePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, destFilePath); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// OpenAppend opens destFilePath for appending and reports whether the file
// was created by this call.
func OpenAppend(destFilePath string) (*os.File, bool, error) {
	if err := EnsureParentDir(destFilePath); err != nil {
		return nil, false, err
	}
	_, err := os.Stat(destFilePath)
	created := errors.Is(err, os.ErrNotExist)
	f, err := os.OpenFile(destFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, false, err
	}
	if !created {
		if info, err := f.Stat(); err == nil && info.Size() == 0 {
			created = true
		}
	}
	return f, created, nil
}
