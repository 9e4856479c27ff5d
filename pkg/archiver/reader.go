package archiver

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/mholt/archiver/v3"
)

// Entry describes one member of an archive.
type Entry struct {
	Name     string
	Size     int64
	Modified time.Time
	Dir      bool
}

// Extract unpacks every entry of src into dest, creating folders as needed and
// overwriting files that already exist. Nothing is written when src is missing
// or is not a zip archive.
func (a *Archiver) Extract(src, dest string) error {
	if _, err := a.CheckSupport(); err != nil {
		return err
	}

	z, done, err := a.openArchive(src, "error on extract")
	if err != nil {
		return err
	}
	defer done()

	dest = filepath.Clean(dest)
	if err := a.fs.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("%w: error on extract: creating %s: %v", ErrIO, dest, err)
	}

	count := 0
	for {
		f, err := z.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: error on extract: %v", ErrIO, err)
		}

		err = a.extractOne(f, dest)
		f.Close()
		if err != nil {
			return err
		}
		count++
	}

	a.logger.Info("Archive extracted", map[string]interface{}{
		"archive":     src,
		"destination": dest,
		"entries":     count,
	})

	return nil
}

func (a *Archiver) extractOne(f archiver.File, dest string) error {
	name := entryName(f)

	target, err := extractPath(dest, name)
	if err != nil {
		return fmt.Errorf("%w: error on extract: %v", ErrIO, err)
	}

	if f.IsDir() {
		if err := a.fs.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("%w: error on extract: creating %s: %v", ErrIO, target, err)
		}
		return nil
	}

	if err := a.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("%w: error on extract: creating %s: %v", ErrIO, filepath.Dir(target), err)
	}

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}

	out, err := a.fs.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("%w: error on extract: %v", ErrIO, err)
	}

	if _, err := io.Copy(out, f); err != nil {
		out.Close()
		return fmt.Errorf("%w: error on extract: writing %s: %v", ErrIO, name, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: error on extract: closing %s: %v", ErrIO, target, err)
	}

	a.logger.Trace("Extracted archive entry", map[string]interface{}{
		"entry":  name,
		"target": target,
	})

	return nil
}

// List returns the entries of src in archive order without extracting them.
func (a *Archiver) List(src string) ([]Entry, error) {
	if _, err := a.CheckSupport(); err != nil {
		return nil, err
	}

	z, done, err := a.openArchive(src, "cannot read archive")
	if err != nil {
		return nil, err
	}
	defer done()

	var entries []Entry
	for {
		f, err := z.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: cannot read archive %s: %v", ErrIO, src, err)
		}

		entries = append(entries, Entry{
			Name:     entryName(f),
			Size:     f.Size(),
			Modified: f.ModTime(),
			Dir:      f.IsDir(),
		})
		f.Close()
	}

	return entries, nil
}

// openArchive opens src for reading. The returned func closes both the zip
// reader and the underlying file.
func (a *Archiver) openArchive(src, op string) (*archiver.Zip, func(), error) {
	in, err := a.fs.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: archive %s", ErrNotFound, src)
		}
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrIO, op, err)
	}

	info, err := in.Stat()
	if err != nil {
		in.Close()
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrIO, op, err)
	}
	if info.IsDir() {
		in.Close()
		return nil, nil, fmt.Errorf("%w: %s: %s is a directory", ErrIO, op, src)
	}

	z := a.newZip()
	if err := z.Open(in, info.Size()); err != nil {
		in.Close()
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrIO, op, err)
	}

	return z, func() {
		z.Close()
		in.Close()
	}, nil
}

// extractPath resolves an entry name under dest, refusing names that would
// land outside it.
func extractPath(dest, name string) (string, error) {
	slashed := filepath.ToSlash(name)
	if slashed == "" || strings.HasPrefix(slashed, "/") || filepath.IsAbs(name) {
		return "", fmt.Errorf("illegal entry path %q", name)
	}

	cleaned := path.Clean(slashed)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("illegal entry path %q", name)
	}

	target := filepath.Join(dest, filepath.FromSlash(cleaned))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("illegal entry path %q", name)
	}

	return target, nil
}
