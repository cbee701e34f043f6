package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

func storageErr(op string, err error) error {
	return errors.Join(ErrStorageIO, fmt.Errorf("%s: %w", op, err))
}

// maxReopen bounds how often a lock is retaken after the locked inode was
// replaced by a concurrent write.
const maxReopen = 3

// openLocked opens path with open and locks it. A write renames a new inode
// over path, so a lock won on a descriptor opened before that rename guards
// a stale file; the open is then repeated against the current inode.
func openLocked(path string, exclusive bool, open func(string) (*os.File, error)) (*os.File, error) {
	for range maxReopen {
		f, err := open(path)
		if err != nil {
			return nil, err
		}
		if err := lockFile(f, exclusive); err != nil {
			f.Close()
			return nil, err
		}
		current, err := isCurrent(f, path)
		if err != nil {
			f.Close()
			return nil, err
		}
		if current {
			return f, nil
		}
		f.Close()
	}
	return nil, ErrConcurrentAccess
}

// isCurrent reports whether f is still the file found at path.
func isCurrent(f *os.File, path string) (bool, error) {
	held, err := f.Stat()
	if err != nil {
		return false, storageErr("stat vault", err)
	}
	onDisk, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("stat vault", err)
	}
	return os.SameFile(held, onDisk), nil
}

func openForRead(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, storageErr("open vault", err)
	}
	return f, nil
}

func openForWrite(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), DirMode); err != nil {
		return nil, storageErr("create vault directory", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, FileMode)
	if err != nil {
		return nil, storageErr("open vault", err)
	}
	return f, nil
}

// atomicWriteFile replaces path with data through a synced temp file in the
// same directory, so readers see either the old or the new container.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".otpguard-*")
	if err != nil {
		return storageErr("create temp file", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if err := tmpFile.Chmod(perm); err != nil {
		return storageErr("chmod temp file", err)
	}
	if _, err := tmpFile.Write(data); err != nil {
		return storageErr("write temp file", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return storageErr("sync temp file", err)
	}
	if err := tmpFile.Close(); err != nil {
		return storageErr("close temp file", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return storageErr("replace vault", err)
	}

	_ = syncDir(dir)
	if err := os.Chmod(path, perm); err != nil {
		return storageErr("chmod vault", err)
	}
	return nil
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
