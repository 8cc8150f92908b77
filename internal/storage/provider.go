// Package storage defines the vault file-system abstraction.
//
// All paths are relative to the vault root and use forward slashes.
package storage

// Provider is the interface for vault file operations.
type Provider interface {
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath, creating newPath's parent directory.
	Move(oldPath, newPath string) error
	// Exists reports whether path exists.
	Exists(path string) (bool, error)
	// ListFiles returns the names of regular files in dir with the given
	// extension. It does not descend into subdirectories.
	ListFiles(dir, ext string) ([]string, error)
	// ListDirs returns the names of the immediate subdirectories of dir.
	ListDirs(dir string) ([]string, error)
	// MakeDir creates dir. It fails if dir already exists.
	MakeDir(dir string) error
	// RemoveDir removes dir. It fails if dir is not empty.
	RemoveDir(dir string) error
	// Abs returns the absolute file-system path of path.
	Abs(path string) (string, error)
}
