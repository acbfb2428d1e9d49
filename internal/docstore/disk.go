package docstore

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
)

// Usage summarizes what the support directory holds.
type Usage struct {
	Archives     int
	ArchiveBytes int64
	TotalBytes   int64
}

// diskUsage walks root and sums file sizes. Files ending in archiveSuffix are also
// counted as archives. A missing root yields a zero Usage.
func diskUsage(root, archiveSuffix string) (Usage, error) {
	var u Usage
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == root {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			// Removed between listing and stat.
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		u.TotalBytes += info.Size()
		if strings.HasSuffix(d.Name(), archiveSuffix) {
			u.Archives++
			u.ArchiveBytes += info.Size()
		}
		return nil
	})
	return u, err
}
