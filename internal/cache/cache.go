// Package cache implements an on-disk cache of compiled unit.Units keyed
// by source file path, so a script that hasn't changed since its last run
// can skip lexing/parsing/compiling entirely.
package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"nilan/unit"
)

// Dir is a directory of cached compiled units, one file per source path.
type Dir struct {
	root string
}

// New returns a Dir rooted at root, creating it if necessary.
func New(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Dir{root: root}, nil
}

func (d *Dir) pathFor(sourcePath string) string {
	abs, err := filepath.Abs(sourcePath)
	if err != nil {
		abs = sourcePath
	}
	return filepath.Join(d.root, fmt.Sprintf("%x.nic", unit.ItemHash(abs)))
}

// Lookup returns the cached Unit for sourcePath if a cache entry exists,
// is at least as new as the source file, and deserializes cleanly. A
// stale or corrupt cache entry is reported as a plain miss (ok == false,
// err == nil), never a hard error: a broken cache must never block a run.
func (d *Dir) Lookup(sourcePath string) (u *unit.Unit, ok bool, err error) {
	srcInfo, err := os.Stat(sourcePath)
	if err != nil {
		return nil, false, err
	}
	cachePath := d.pathFor(sourcePath)
	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		return nil, false, nil
	}
	if cacheInfo.ModTime().Before(srcInfo.ModTime()) {
		return nil, false, nil
	}
	data, err := os.ReadFile(cachePath)
	if err != nil {
		return nil, false, nil
	}
	got, err := unit.Deserialize(data)
	if err != nil {
		return nil, false, nil
	}
	return got, true, nil
}

// Store serializes u and writes it as the cache entry for sourcePath.
func (d *Dir) Store(sourcePath string, u *unit.Unit) error {
	data, err := unit.Serialize(u)
	if err != nil {
		return err
	}
	return os.WriteFile(d.pathFor(sourcePath), data, 0o644)
}

// Clear removes every cached entry under the directory.
func (d *Dir) Clear() error {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".nic" {
			continue
		}
		if err := os.Remove(filepath.Join(d.root, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
