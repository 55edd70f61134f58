package upload

import (
	"errors"
	"io/fs"
	"os"
	"sync"

	"go.uber.org/zap"
)

// Photo is an uploaded file on local disk. It has a single owner, which
// must call Release on every exit path; only the first call removes the file.
type Photo struct {
	path         string
	originalName string

	once   sync.Once
	remove func(string) error
}

// NewPhoto wraps an existing file.
func NewPhoto(path, originalName string) *Photo {
	return &Photo{path: path, originalName: originalName, remove: os.Remove}
}

// Path returns the on-disk location.
func (p *Photo) Path() string { return p.path }

// OriginalName returns the client-supplied file name.
func (p *Photo) OriginalName() string { return p.originalName }

// Release deletes the file. Errors are logged and swallowed.
func (p *Photo) Release() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		if err := p.remove(p.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			zap.L().Warn("failed to remove upload", zap.String("path", p.path), zap.Error(err))
			return
		}
		zap.L().Debug("upload removed", zap.String("path", p.path))
	})
}
