package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	fileutil "examcompress/internal/file"
)

// Store abstracts persistence of session snapshots. The default
// implementation keeps one JSON file per session under dataDir/sessions.
type Store interface {
	SaveSnapshot(ctx context.Context, s Snapshot) error
	LoadSnapshots(ctx context.Context) ([]Snapshot, error)
	DeleteSnapshot(ctx context.Context, id string) error
}

type fileStore struct {
	dataDir string
}

// NewFileStore returns a Store writing under dataDir.
func NewFileStore(dataDir string) Store { //nolint:ireturn
	if dataDir == "" {
		dataDir = "data"
	}
	return &fileStore{dataDir: dataDir}
}

func (s *fileStore) root() string {
	return filepath.Join(s.dataDir, "sessions")
}

func (s *fileStore) snapshotPath(id string) string {
	return filepath.Join(s.root(), id+".json")
}

func (s *fileStore) SaveSnapshot(_ context.Context, snap Snapshot) error {
	if !validID(snap.ID) {
		return fmt.Errorf("invalid session id %q", snap.ID)
	}
	if err := fileutil.WriteJSONAtomic(s.snapshotPath(snap.ID), snap); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func (s *fileStore) LoadSnapshots(_ context.Context) ([]Snapshot, error) {
	entries, err := os.ReadDir(s.root())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir: %w", err)
	}
	snaps := make([]Snapshot, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		var snap Snapshot
		if err := fileutil.ReadJSON(filepath.Join(s.root(), e.Name()), &snap); err != nil {
			continue
		}
		if !validID(snap.ID) {
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

func (s *fileStore) DeleteSnapshot(_ context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("invalid session id %q", id)
	}
	if err := os.Remove(s.snapshotPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	return nil
}

func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\.`)
}
