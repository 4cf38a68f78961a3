package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// DiskUsage returns the combined size in bytes of files and directories.
// Empty or missing paths count as zero. SQLite WAL and shm side files are included.
func DiskUsage(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		for _, candidate := range []string{p, p + "-wal", p + "-shm"} {
			n, err := sizeOf(candidate)
			if err != nil {
				return 0, err
			}
			total += n
		}
	}
	return total, nil
}

func sizeOf(path string) (int64, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	var total int64
	err = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		total += fi.Size()
		return nil
	})
	return total, err
}
