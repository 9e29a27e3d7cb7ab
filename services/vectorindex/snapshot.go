package vectorindex

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const snapshotFilename = "index.gob"

// SaveSnapshot writes the full index contents to dir so the index
// survives restarts. The write goes through a temp file and rename to
// avoid a torn snapshot on crash.
func (i *Index) SaveSnapshot(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}

	i.mu.RLock()
	entries := make([]indexEntry, len(i.entries))
	copy(entries, i.entries)
	i.mu.RUnlock()

	tmp, err := os.CreateTemp(dir, "index-*.gob.tmp")
	if err != nil {
		return fmt.Errorf("creating snapshot temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(entries); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing snapshot temp file: %w", err)
	}

	target := filepath.Join(dir, snapshotFilename)
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}

	i.logger.Info("saved index snapshot",
		zap.String("path", target),
		zap.Int("vectors", len(entries)),
	)
	return nil
}

// LoadSnapshot replaces the index contents with a snapshot previously
// written by SaveSnapshot. A missing snapshot is not an error; the index
// simply starts empty.
func (i *Index) LoadSnapshot(dir string) error {
	path := filepath.Join(dir, snapshotFilename)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			i.logger.Info("no index snapshot found, starting empty", zap.String("path", path))
			return nil
		}
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	var entries []indexEntry
	if err := gob.NewDecoder(f).Decode(&entries); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}

	i.mu.Lock()
	i.entries = entries
	i.mu.Unlock()

	i.logger.Info("loaded index snapshot",
		zap.String("path", path),
		zap.Int("vectors", len(entries)),
	)
	return nil
}
