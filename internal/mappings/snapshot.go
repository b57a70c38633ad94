package mappings

import (
	"os"
	"path/filepath"
	"sort"
	"time"
)

// FileEntry records a single mapping file's metadata at snapshot time
type FileEntry struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Snapshot is a map of paths relative to the mappings directory to FileEntry
type Snapshot map[string]FileEntry

// ChangeType describes how a mapping file changed between two snapshots
type ChangeType string

const (
	Added    ChangeType = "added"
	Modified ChangeType = "modified"
	Deleted  ChangeType = "deleted"
)

// Change is a single mapping file difference
type Change struct {
	Path string     `json:"path"`
	Type ChangeType `json:"type"`
	Size int64      `json:"size"`
}

// Take walks a mappings directory and records every regular file in it.
// A directory that does not exist yields an empty snapshot.
func Take(root string) (Snapshot, error) {
	snap := make(Snapshot)

	if _, err := os.Stat(root); os.IsNotExist(err) {
		return snap, nil
	}

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		snap[filepath.ToSlash(rel)] = FileEntry{
			Path:    filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return snap, nil
}

// Diff compares two snapshots and returns the changes sorted by path
func Diff(pre, post Snapshot) []Change {
	var changes []Change

	for path, after := range post {
		before, ok := pre[path]
		switch {
		case !ok:
			changes = append(changes, Change{Path: path, Type: Added, Size: after.Size})
		case before.Size != after.Size || !before.ModTime.Equal(after.ModTime):
			changes = append(changes, Change{Path: path, Type: Modified, Size: after.Size})
		}
	}

	for path, before := range pre {
		if _, ok := post[path]; !ok {
			changes = append(changes, Change{Path: path, Type: Deleted, Size: before.Size})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})
	return changes
}

// List returns the sorted names of all files in a mappings directory
func List(root string) ([]string, error) {
	snap, err := Take(root)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(snap))
	for path := range snap {
		names = append(names, path)
	}
	sort.Strings(names)
	return names, nil
}
