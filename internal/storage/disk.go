package storage

import (
	"os"
)

// SizeBytes returns the on-disk size of the catalog, including the WAL and
// shared-memory files. It is 0 for an in-memory catalog.
func (s *SQLiteStorage) SizeBytes() (int64, error) {
	if s.path == ":memory:" {
		return 0, nil
	}
	return FileSizes(s.path, s.path+"-wal", s.path+"-shm")
}

// FileSizes sums the sizes of the given files. Missing files count as 0.
func FileSizes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if !info.IsDir() {
			total += info.Size()
		}
	}
	return total, nil
}
