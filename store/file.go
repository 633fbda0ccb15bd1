package store

import (
	"context"
	"path/filepath"

	"github.com/kiw9761/GAIN/core/model"
)

// FileStore keeps one gob-encoded checkpoint per key at <Dir>/<key>.ckpt.
type FileStore struct {
	Dir string
}

// NewFileStore returns a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = "."
	}
	return &FileStore{Dir: dir}
}

// Path returns the file used for key.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.Dir, key+".ckpt")
}

// Load implements gain.ModelStore.
func (s *FileStore) Load(ctx context.Context, key string) (*model.Checkpoint, error) {
	if err := validateKey("FileStore.Load", key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return model.LoadCheckpoint(s.Path(key))
}

// Save implements gain.ModelStore. The file is replaced atomically.
func (s *FileStore) Save(ctx context.Context, key string, cp *model.Checkpoint) error {
	if err := validateKey("FileStore.Save", key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return model.SaveCheckpoint(cp, s.Path(key))
}
