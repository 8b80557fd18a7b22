package adapter

import (
	"io"
	"os"
)

// FileSystem defines an interface for file system operations to enable mocking
//
//go:generate mockgen -source=filesystem.go -destination=../mocks/filesystem.go -package=mocks -mock_names=FileSystem=MockFileSystem,File=MockFile
type FileSystem interface {
	// OpenAppend opens the named file for appending, creating it when missing
	OpenAppend(name string) (File, error)

	// MkdirAll creates a directory and any missing parents
	MkdirAll(path string) error
}

// File defines an interface for file operations
type File interface {
	io.Writer
	io.Closer
	Sync() error
}

// RealFileSystem implements FileSystem using the standard os package
type RealFileSystem struct{}

// NewFileSystem creates a new real file system
func NewFileSystem() FileSystem {
	return &RealFileSystem{}
}

// OpenAppend opens the named file for appending, creating it when missing
func (fs *RealFileSystem) OpenAppend(name string) (File, error) {
	return os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec,G304
}

// MkdirAll creates a directory and any missing parents
func (fs *RealFileSystem) MkdirAll(path string) error {
	return os.MkdirAll(path, 0o755) //nolint:gosec,G301
}
