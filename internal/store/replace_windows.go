//go:build windows

package store

import "os"

func replaceFile(tmpPath, finalPath string) error {
	// Windows cannot rename over an existing file.
	if err := os.Remove(finalPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmpPath, finalPath)
}
