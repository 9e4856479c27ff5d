package archiver

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"github.com/mholt/archiver/v3"
)

// ArchiveEntry is a single file staged for writing.
type ArchiveEntry struct {
	// Source is the path of the file on the archiver's filesystem.
	Source string
	// Name is the entry name inside the archive, slash separated.
	Name string
}

// ArchiveDirectory writes every file under root into dest, named by its path
// relative to root. Files directly inside an excluded folder are left out;
// exclusions are relative folder paths such as "cache" or "assets/tmp/".
func (a *Archiver) ArchiveDirectory(root, dest string, exclude ...string) error {
	if _, err := a.CheckSupport(); err != nil {
		return err
	}

	folders, err := a.Collect(root)
	if err != nil {
		return err
	}

	root = filepath.Clean(root)
	skip := excludeSet(exclude)

	var entries []ArchiveEntry
	for _, key := range folders.Keys() {
		if _, ok := skip[key]; ok {
			a.logger.Debug("Skipping excluded folder", map[string]interface{}{
				"folder": key,
				"files":  len(folders[key]),
			})
			continue
		}

		for _, name := range folders[key] {
			entries = append(entries, ArchiveEntry{
				Source: filepath.Join(root, filepath.FromSlash(key), name),
				Name:   key + name,
			})
		}
	}

	return a.write(dest, entries)
}

// ArchiveFiles writes each existing file in files into dest under its base
// name. When two files share a base name the later one wins.
func (a *Archiver) ArchiveFiles(files []string, dest string) error {
	if len(files) == 0 {
		return fmt.Errorf("%w: no files to archive", ErrInvalidArgument)
	}

	if _, err := a.CheckSupport(); err != nil {
		return err
	}

	entries := make([]ArchiveEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, ArchiveEntry{
			Source: f,
			Name:   filepath.Base(f),
		})
	}

	return a.write(dest, entries)
}

// write builds the archive in a staging file next to dest and renames it into
// place once the central directory has been flushed. An existing archive at
// dest contributes the entries that are not replaced.
func (a *Archiver) write(dest string, entries []ArchiveEntry) error {
	dest = filepath.Clean(dest)

	parent, err := a.fs.Stat(filepath.Dir(dest))
	if err != nil || !parent.IsDir() {
		return fmt.Errorf("%w: cannot open archive %s: parent directory missing", ErrIO, dest)
	}

	staged, err := a.stage(entries)
	if err != nil {
		return err
	}

	staging := dest + ".partial-" + uuid.NewString()
	out, err := a.fs.OpenFile(staging, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: cannot open archive %s: %v", ErrIO, dest, err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = a.fs.Remove(staging)
		}
	}()

	z := a.newZip()
	if err := z.Create(out); err != nil {
		out.Close()
		return fmt.Errorf("%w: cannot open archive %s: %v", ErrIO, dest, err)
	}

	abort := func(err error) error {
		z.Close()
		out.Close()
		return err
	}

	written := make(map[string]struct{}, len(staged))
	skipped := len(entries) - len(staged)
	for _, e := range staged {
		ok, err := a.add(z, e)
		if err != nil {
			return abort(err)
		}
		if !ok {
			skipped++
			continue
		}
		written[e.Name] = struct{}{}
	}

	// Existing entries go in after the new ones so a file that vanished
	// before add does not take its old entry down with it.
	kept, err := a.carryOver(z, dest, written)
	if err != nil {
		return abort(err)
	}

	if err := z.Close(); err != nil {
		out.Close()
		return fmt.Errorf("%w: finalizing archive %s: %v", ErrIO, dest, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: closing archive %s: %v", ErrIO, dest, err)
	}

	if err := a.fs.Rename(staging, dest); err != nil {
		return fmt.Errorf("%w: finalizing archive %s: %v", ErrIO, dest, err)
	}
	committed = true

	a.logger.Info("Archive written", map[string]interface{}{
		"archive": dest,
		"added":   len(written),
		"kept":    kept,
		"skipped": skipped,
	})

	return nil
}

// stage drops entries whose source is missing and collapses duplicate names,
// keeping the first position and the last source.
func (a *Archiver) stage(entries []ArchiveEntry) ([]ArchiveEntry, error) {
	index := make(map[string]int, len(entries))
	staged := make([]ArchiveEntry, 0, len(entries))

	for _, e := range entries {
		info, err := a.fs.Stat(e.Source)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: stat %s: %v", ErrIO, e.Source, err)
		}
		if err != nil {
			if err := a.missing(e); err != nil {
				return nil, err
			}
			continue
		}
		if !info.Mode().IsRegular() {
			a.skipIrregular(e, info)
			continue
		}

		if i, ok := index[e.Name]; ok {
			staged[i] = e
			continue
		}
		index[e.Name] = len(staged)
		staged = append(staged, e)
	}

	return staged, nil
}

// add copies one file into the archive. It reports false when the file is
// gone by the time it is opened.
func (a *Archiver) add(z *archiver.Zip, e ArchiveEntry) (bool, error) {
	f, err := a.fs.Open(e.Source)
	if err != nil {
		if os.IsNotExist(err) {
			return false, a.missing(e)
		}
		return false, fmt.Errorf("%w: opening %s: %v", ErrIO, e.Source, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("%w: stat %s: %v", ErrIO, e.Source, err)
	}
	if !info.Mode().IsRegular() {
		a.skipIrregular(e, info)
		return false, nil
	}

	err = z.Write(archiver.File{
		FileInfo: archiver.FileInfo{
			FileInfo:   info,
			CustomName: e.Name,
		},
		ReadCloser: f,
	})
	if err != nil {
		return false, fmt.Errorf("%w: adding %s: %v", ErrIO, e.Name, err)
	}

	a.logger.Trace("Added archive entry", map[string]interface{}{
		"entry":  e.Name,
		"source": e.Source,
	})

	return true, nil
}

func (a *Archiver) missing(e ArchiveEntry) error {
	if a.strict {
		return fmt.Errorf("%w: source file %s", ErrNotFound, e.Source)
	}

	a.logger.Debug("Skipping missing source file", map[string]interface{}{
		"source": e.Source,
	})
	return nil
}

// skipIrregular drops a source that exists but is not a regular file, such as
// a directory reached through a symlink. Strict mode does not apply.
func (a *Archiver) skipIrregular(e ArchiveEntry, info os.FileInfo) {
	a.logger.Debug("Skipping non-regular source", map[string]interface{}{
		"source": e.Source,
		"mode":   info.Mode().String(),
	})
}

// carryOver copies entries of an existing archive at dest into z, except the
// names in replaced. A missing dest is not an error.
func (a *Archiver) carryOver(z *archiver.Zip, dest string, replaced map[string]struct{}) (int, error) {
	in, err := a.fs.Open(dest)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: cannot open archive %s: %v", ErrIO, dest, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: cannot open archive %s: %v", ErrIO, dest, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%w: cannot open archive %s: is a directory", ErrIO, dest)
	}

	existing := a.newZip()
	if err := existing.Open(in, info.Size()); err != nil {
		return 0, fmt.Errorf("%w: cannot open archive %s: %v", ErrIO, dest, err)
	}
	defer existing.Close()

	kept := 0
	for {
		f, err := existing.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return kept, fmt.Errorf("%w: reading archive %s: %v", ErrIO, dest, err)
		}

		name := entryName(f)
		if _, ok := replaced[name]; ok || f.Mode()&os.ModeSymlink != 0 {
			f.Close()
			continue
		}

		err = z.Write(archiver.File{
			FileInfo: archiver.FileInfo{
				FileInfo:   f.FileInfo,
				CustomName: strings.TrimSuffix(name, "/"),
			},
			ReadCloser: f.ReadCloser,
		})
		f.Close()
		if err != nil {
			return kept, fmt.Errorf("%w: copying entry %s: %v", ErrIO, name, err)
		}
		kept++
	}

	return kept, nil
}

// entryName returns the full in-archive name of a file read from a zip. The
// reader hands back klauspost headers; FileInfo only carries the base name.
func entryName(f archiver.File) string {
	switch h := f.Header.(type) {
	case zip.FileHeader:
		return h.Name
	case *zip.FileHeader:
		return h.Name
	}
	return f.Name()
}

func excludeSet(exclude []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		if strings.TrimSpace(e) == "" {
			continue
		}
		set[folderKey(e)] = struct{}{}
	}
	return set
}
