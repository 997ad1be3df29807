package vfs

import (
	"errors"
	"io"
	"os"
	"sync"
)

var (
	// ErrInjectedReadError is returned when a read error is injected.
	ErrInjectedReadError = errors.New("vfs: injected read error")

	// ErrInjectedWriteError is returned when a write error is injected.
	ErrInjectedWriteError = errors.New("vfs: injected write error")

	// ErrInjectedSyncError is returned when a sync error is injected.
	ErrInjectedSyncError = errors.New("vfs: injected sync error")
)

// FaultInjectionFS wraps an FS and fails selected operations.
// An empty path in InjectReadError or InjectWriteError matches every file.
type FaultInjectionFS struct {
	base FS

	mu               sync.RWMutex
	injectReadError  bool
	injectWriteError bool
	injectSyncError  bool
	readErrorPath    string
	writeErrorPath   string
	active           bool
}

// NewFaultInjectionFS returns a wrapper around base with no faults armed.
func NewFaultInjectionFS(base FS) *FaultInjectionFS {
	return &FaultInjectionFS{base: base, active: true}
}

// SetFilesystemActive makes every mutation fail while active is false.
func (fs *FaultInjectionFS) SetFilesystemActive(active bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.active = active
}

// InjectReadError fails Open of path.
func (fs *FaultInjectionFS) InjectReadError(path string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.injectReadError = true
	fs.readErrorPath = path
}

// InjectWriteError fails Create of and writes to path.
func (fs *FaultInjectionFS) InjectWriteError(path string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.injectWriteError = true
	fs.writeErrorPath = path
}

// InjectSyncError fails every file Sync.
func (fs *FaultInjectionFS) InjectSyncError() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.injectSyncError = true
}

// ClearErrors disarms every fault.
func (fs *FaultInjectionFS) ClearErrors() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.injectReadError = false
	fs.injectWriteError = false
	fs.injectSyncError = false
	fs.readErrorPath = ""
	fs.writeErrorPath = ""
}

func (fs *FaultInjectionFS) writeFault(name string) error {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if !fs.active {
		return ErrInjectedWriteError
	}
	if fs.injectWriteError && (fs.writeErrorPath == "" || fs.writeErrorPath == name) {
		return ErrInjectedWriteError
	}
	return nil
}

func (fs *FaultInjectionFS) Create(name string) (WritableFile, error) {
	if err := fs.writeFault(name); err != nil {
		return nil, err
	}
	f, err := fs.base.Create(name)
	if err != nil {
		return nil, err
	}
	return &faultWritableFile{base: f, fs: fs, name: name}, nil
}

func (fs *FaultInjectionFS) Open(name string) (io.ReadCloser, error) {
	fs.mu.RLock()
	fail := fs.injectReadError && (fs.readErrorPath == "" || fs.readErrorPath == name)
	fs.mu.RUnlock()
	if fail {
		return nil, ErrInjectedReadError
	}
	return fs.base.Open(name)
}

func (fs *FaultInjectionFS) Rename(oldname, newname string) error {
	if err := fs.writeFault(newname); err != nil {
		return err
	}
	return fs.base.Rename(oldname, newname)
}

func (fs *FaultInjectionFS) Remove(name string) error {
	return fs.base.Remove(name)
}

func (fs *FaultInjectionFS) MkdirAll(path string, perm os.FileMode) error {
	fs.mu.RLock()
	active := fs.active
	fs.mu.RUnlock()
	if !active {
		return ErrInjectedWriteError
	}
	return fs.base.MkdirAll(path, perm)
}

func (fs *FaultInjectionFS) Stat(name string) (os.FileInfo, error) {
	return fs.base.Stat(name)
}

func (fs *FaultInjectionFS) Exists(name string) bool {
	return fs.base.Exists(name)
}

func (fs *FaultInjectionFS) Lock(name string) (io.Closer, error) {
	return fs.base.Lock(name)
}

func (fs *FaultInjectionFS) SyncDir(path string) error {
	return fs.base.SyncDir(path)
}

type faultWritableFile struct {
	base WritableFile
	fs   *FaultInjectionFS
	name string
}

func (f *faultWritableFile) Write(p []byte) (int, error) {
	if err := f.fs.writeFault(f.name); err != nil {
		return 0, err
	}
	return f.base.Write(p)
}

func (f *faultWritableFile) Close() error {
	return f.base.Close()
}

func (f *faultWritableFile) Sync() error {
	f.fs.mu.RLock()
	fail := f.fs.injectSyncError
	f.fs.mu.RUnlock()
	if fail {
		return ErrInjectedSyncError
	}
	return f.base.Sync()
}
