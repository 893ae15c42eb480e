package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// PartialSuffix marks in-progress SaveStream temp files.
const PartialSuffix = ".part"

// ErrLimitExceeded is returned when a stream is larger than the allowed size.
var ErrLimitExceeded = errors.New("size limit exceeded")

// ErrExists is returned when the SaveStream destination is already present.
// It wraps os.ErrExist.
var ErrExists = fmt.Errorf("destination %w", os.ErrExist)

// Saved describes a file written by SaveStream.
type Saved struct {
	Path   string
	Size   int64
	SHA256 string
}

// SaveStream copies r into dst through a temporary file in the same
// directory and links it into place, so readers never observe a partial
// file. An existing dst is never replaced: SaveStream returns ErrExists and
// leaves it untouched. A limit > 0 caps the number of bytes accepted;
// exceeding it removes the temporary file and returns ErrLimitExceeded.
func SaveStream(dst string, r io.Reader, limit int64, mode os.FileMode) (Saved, error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Saved{}, fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*"+PartialSuffix)
	if err != nil {
		return Saved{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, hasher), src)
	if err != nil {
		return Saved{}, fmt.Errorf("write %s: %w", filepath.Base(dst), err)
	}
	if limit > 0 && written > limit {
		return Saved{}, ErrLimitExceeded
	}
	if err := tmp.Sync(); err != nil {
		return Saved{}, fmt.Errorf("sync %s: %w", filepath.Base(dst), err)
	}
	if err := tmp.Close(); err != nil {
		return Saved{}, fmt.Errorf("close %s: %w", filepath.Base(dst), err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return Saved{}, fmt.Errorf("chmod %s: %w", filepath.Base(dst), err)
	}
	if err := commitNoClobber(tmpPath, dst); err != nil {
		return Saved{}, err
	}
	committed = true
	return Saved{Path: dst, Size: written, SHA256: hex.EncodeToString(hasher.Sum(nil))}, nil
}

// commitNoClobber moves tmpPath to dst unless dst exists. Filesystems
// without hard links fall back to a stat check before the rename.
func commitNoClobber(tmpPath, dst string) error {
	err := os.Link(tmpPath, dst)
	if err == nil {
		_ = os.Remove(tmpPath)
		return nil
	}
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%s: %w", filepath.Base(dst), ErrExists)
	}
	if _, statErr := os.Lstat(dst); statErr == nil {
		return fmt.Errorf("%s: %w", filepath.Base(dst), ErrExists)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// RemoveQuietly deletes path and ignores a missing file.
func RemoveQuietly(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
