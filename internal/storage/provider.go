// Package storage implements the file-system layer under the Mimir storage
// root: path containment, atomic writes, and the per-path lock queue.
package storage

// Provider is the interface for storage-root file operations. All paths are
// relative to the root.
type Provider interface {
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (temp file, then rename).
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// DeleteTree removes the directory at path and everything under it.
	DeleteTree(path string) error
	// Exists reports whether a file or directory exists at path.
	Exists(path string) (bool, error)
	// ListFiles returns the sorted names of regular files directly in dir.
	ListFiles(dir string) ([]string, error)
	// ListDirs returns the sorted names of subdirectories directly in dir.
	ListDirs(dir string) ([]string, error)
}
