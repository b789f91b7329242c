package primitives

import (
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// Filepath is a type-safe wrapper around file paths used for heap files, WAL
// files and catalog files. Its hash is the table identity: a table's id is
// the xxhash of the absolute path of its backing file.
type Filepath string

// Hash derives a stable TableID from the file path. The path is made absolute
// first so relative spellings of the same file agree.
func (f Filepath) Hash() TableID {
	abs, err := filepath.Abs(string(f))
	if err != nil {
		abs = string(f)
	}
	return TableID(xxhash.Sum64String(abs))
}

func (f Filepath) String() string {
	return string(f)
}

// IsEmpty reports whether the path is the empty string.
func (f Filepath) IsEmpty() bool {
	return f == ""
}

// Dir returns the directory portion of the path.
func (f Filepath) Dir() string {
	return filepath.Dir(string(f))
}

// Base returns the file name without its directory.
func (f Filepath) Base() string {
	return filepath.Base(string(f))
}

// Ext returns the file extension including the dot.
func (f Filepath) Ext() string {
	return filepath.Ext(string(f))
}

// Join appends path elements and returns a new Filepath.
func (f Filepath) Join(elem ...string) Filepath {
	parts := append([]string{string(f)}, elem...)
	return Filepath(filepath.Join(parts...))
}

// Exists checks whether the file exists on the OS filesystem.
func (f Filepath) Exists() bool {
	_, err := os.Stat(string(f))
	return err == nil
}
