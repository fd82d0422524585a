package qrbatch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ArtifactPath returns the output file path for id under dest.
func ArtifactPath(dest, id string) string {
	return filepath.Join(dest, id+".png")
}

// validateID rejects identifiers that cannot be used as a file name inside dest.
func validateID(id string) error {
	if id == "" || id == "." || id == ".." {
		return fmt.Errorf("invalid identifier for file name: %q", id)
	}
	if strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return fmt.Errorf("identifier contains a path separator: %q", id)
	}
	return nil
}

// writeFileAtomic replaces dst with b through a temporary file in the same directory,
// so that readers never observe a half-written image. It returns the info of the
// written file, which keeps its identity across the rename.
func writeFileAtomic(dst string, b []byte) (_ os.FileInfo, err error) {
	dir, name := filepath.Split(dst)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file for %s: %w", dst, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmp.Write(b); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", dst, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return nil, fmt.Errorf("failed to chmod %s: %w", dst, err)
	}
	fi, err := tmp.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close %s: %w", dst, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return nil, fmt.Errorf("failed to rename %s to %s: %w", tmpName, dst, err)
	}
	return fi, nil
}

// removeIfSame removes path only while it is still the file described by own.
// A file written to the same path by another unit is left alone.
func removeIfSame(path string, own os.FileInfo) (bool, error) {
	cur, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if !os.SameFile(own, cur) {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		return false, err
	}
	return true, nil
}
