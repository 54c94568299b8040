package assets

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Record tracks one extracted asset from its temporary location to its
// final name.
type Record struct {
	CanonicalPath string
	Name          string
	TempPath      string

	moved bool
}

// Store owns the temporary container directory assets are written into.
// Ownership of an asset file transfers to the caller through MoveTo;
// whatever is left is deleted by Cleanup.
type Store struct {
	dir     string
	records []*Record
}

// NewStore creates a fresh container directory under baseDir, or under
// the system temp directory when baseDir is empty.
func NewStore(baseDir string) (*Store, error) {
	dir, err := os.MkdirTemp(baseDir, "mht-to-tsv-*")
	if err != nil {
		return nil, fmt.Errorf("create asset container: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the container directory path.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) put(name string, content []byte) (*Record, error) {
	file, err := os.CreateTemp(s.dir, "*_"+name)
	if err != nil {
		return nil, fmt.Errorf("create asset file: %w", err)
	}
	if _, err := file.Write(content); err != nil {
		file.Close()
		return nil, fmt.Errorf("write asset %s: %w", name, err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("close asset %s: %w", name, err)
	}

	rec := &Record{Name: name, TempPath: file.Name()}
	s.records = append(s.records, rec)
	return rec, nil
}

// MoveTo moves an asset out of the container into destDir under its
// final name and returns the destination path.
func (s *Store) MoveTo(rec *Record, destDir string) (string, error) {
	dest := filepath.Join(destDir, rec.Name)
	if err := os.Rename(rec.TempPath, dest); err != nil {
		// rename fails across filesystems, fall back to copy
		if err := copyFile(rec.TempPath, dest); err != nil {
			return "", fmt.Errorf("move asset %s: %w", rec.Name, err)
		}
		if err := os.Remove(rec.TempPath); err != nil {
			return "", fmt.Errorf("remove temp copy of %s: %w", rec.Name, err)
		}
	}
	rec.moved = true
	return dest, nil
}

// Cleanup deletes every asset still inside the container, then the
// container itself. The container is removed with a plain rmdir, so
// anything unexpectedly left in it surfaces as an error instead of
// being wiped.
func (s *Store) Cleanup() error {
	var firstErr error
	for _, rec := range s.records {
		if rec.moved {
			continue
		}
		if err := os.Remove(rec.TempPath); err != nil && !errors.Is(err, os.ErrNotExist) && firstErr == nil {
			firstErr = fmt.Errorf("remove asset %s: %w", rec.Name, err)
		}
	}
	if err := os.Remove(s.dir); err != nil && !errors.Is(err, os.ErrNotExist) && firstErr == nil {
		firstErr = fmt.Errorf("remove asset container: %w", err)
	}
	return firstErr
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
