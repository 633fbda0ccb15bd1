package model

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/kiw9761/GAIN/pkg/errors"
)

// SaveCheckpoint はチェックポイントをファイルに保存する。
// 一時ファイルに書き込んでからリネームするため、途中で失敗しても既存のファイルは壊れない。
//
// 使用例:
//
//	err := model.SaveCheckpoint(cp, "model/letter.ckpt")
func SaveCheckpoint(cp *Checkpoint, filename string) (err error) {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return errors.NewModelError("SaveCheckpoint", "create directory", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".*.tmp")
	if err != nil {
		return errors.NewModelError("SaveCheckpoint", "create file", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = SaveCheckpointToWriter(cp, tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return errors.NewModelError("SaveCheckpoint", "close file", err)
	}
	if err = os.Rename(tmp.Name(), filename); err != nil {
		return errors.NewModelError("SaveCheckpoint", "rename file", err)
	}
	return nil
}

// LoadCheckpoint はファイルからチェックポイントを読み込む。
// ファイルが存在しない場合は errors.ErrCheckpointNotFound を返す。
func LoadCheckpoint(filename string) (*Checkpoint, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrCheckpointNotFound, "open %s", filename)
		}
		return nil, errors.NewModelError("LoadCheckpoint", "open file", err)
	}
	defer file.Close()

	return LoadCheckpointFromReader(file)
}

// SaveCheckpointToWriter はチェックポイントをio.Writerにgob形式で書き込む
func SaveCheckpointToWriter(cp *Checkpoint, w io.Writer) error {
	if err := cp.Validate(); err != nil {
		return err
	}
	if err := gob.NewEncoder(w).Encode(cp); err != nil {
		return errors.NewModelError("SaveCheckpointToWriter", "failed to encode checkpoint", err)
	}
	return nil
}

// LoadCheckpointFromReader はio.Readerからgob形式のチェックポイントを読み込み、検証する
func LoadCheckpointFromReader(r io.Reader) (*Checkpoint, error) {
	var cp Checkpoint
	if err := gob.NewDecoder(r).Decode(&cp); err != nil {
		return nil, errors.NewModelError("LoadCheckpointFromReader", "failed to decode checkpoint", err)
	}
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	return &cp, nil
}
