package model

import "context"

// CheckpointStore persists checkpoints under a string key. Load returns an
// error matching errors.ErrCheckpointNotFound when nothing is stored.
type CheckpointStore interface {
	Load(ctx context.Context, key string) (*Checkpoint, error)
	Save(ctx context.Context, key string, cp *Checkpoint) error
}
