package panel

import (
	"io/fs"
	"os"
)

// FS is the read side of the filesystem a panel lists.
type FS interface {
	ReadDir(dir string) ([]fs.DirEntry, error)
	Open(file string) (fs.File, error)
	Stat(file string) (fs.FileInfo, error)
	Lstat(file string) (fs.FileInfo, error)
	Readlink(file string) (string, error)
}

// LocalFS is the FS of the local machine.
type LocalFS struct{}

func (LocalFS) ReadDir(dir string) ([]fs.DirEntry, error) { return os.ReadDir(dir) }
func (LocalFS) Open(file string) (fs.File, error)         { return os.Open(file) }
func (LocalFS) Stat(file string) (fs.FileInfo, error)     { return os.Stat(file) }
func (LocalFS) Lstat(file string) (fs.FileInfo, error)    { return os.Lstat(file) }
func (LocalFS) Readlink(file string) (string, error)      { return os.Readlink(file) }
