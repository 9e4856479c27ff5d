package archiver

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Folders maps a folder path relative to the walk root to the names of the
// files directly inside it. Keys use forward slashes and end with "/"; the
// root itself is "".
type Folders map[string][]string

// Keys returns the folder keys in lexical order.
func (f Folders) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the total number of files across all folders.
func (f Folders) Len() int {
	n := 0
	for _, names := range f {
		n += len(names)
	}
	return n
}

// Collect walks root recursively and groups every non-directory entry by its
// relative folder. Symlinks and hidden files are recorded like any other file.
func (a *Archiver) Collect(root string) (Folders, error) {
	root = filepath.Clean(root)

	info, err := a.fs.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: directory %s", ErrNotFound, root)
		}
		return nil, fmt.Errorf("%w: stat %s: %v", ErrIO, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNotFound, root)
	}

	folders := make(Folders)

	err = afero.Walk(a.fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			// Entries removed mid-walk are not an error.
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}

		key := folderKey(path.Dir(filepath.ToSlash(rel)))
		folders[key] = append(folders[key], info.Name())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walking %s: %v", ErrIO, root, err)
	}

	a.logger.Debug("Collected directory tree", map[string]interface{}{
		"root":    root,
		"folders": len(folders),
		"files":   folders.Len(),
	})

	return folders, nil
}

// folderKey turns a slash separated relative folder into its Folders key.
func folderKey(dir string) string {
	dir = path.Clean(strings.TrimPrefix(filepath.ToSlash(dir), "/"))
	if dir == "." || dir == "" {
		return ""
	}
	return dir + "/"
}
