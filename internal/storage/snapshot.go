// Package storage persists the full entry list as a JSON array, the exchange
// format the mobile app uses for its local store. Dates travel as ISO-8601
// strings and amounts as integer paise.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/karzdaar/ledger/internal/domain"
)

// SnapshotStore reads and writes entry snapshots on the local filesystem.
type SnapshotStore struct {
	path      string
	backupDir string
}

func NewSnapshotStore(path, backupDir string) *SnapshotStore {
	return &SnapshotStore{path: path, backupDir: backupDir}
}

// Save writes the snapshot atomically (temp file then rename).
func (s *SnapshotStore) Save(entries []domain.DebtEntry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Load reads the snapshot, tolerating records written by older app versions:
// missing notes, amounts, directions and payment arrays get defaults instead
// of failing the whole load. A missing file is an empty book, not an error.
func (s *SnapshotStore) Load() ([]domain.DebtEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []domain.DebtEntry{}, nil
		}
		return nil, err
	}

	var entries []domain.DebtEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	for i := range entries {
		normalizeEntry(&entries[i])
	}
	return entries, nil
}

// Backup writes a timestamped copy of the snapshot into the backup directory
// and returns its path.
func (s *SnapshotStore) Backup(entries []domain.DebtEntry, now time.Time) (string, error) {
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("karzdaar-%s.json", now.Format("20060102-150405"))
	path := filepath.Join(s.backupDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// normalizeEntry fills the defaults the original loader applied to legacy
// records.
func normalizeEntry(e *domain.DebtEntry) {
	if e.CustomerName == "" {
		e.CustomerName = "Unknown Customer"
	}
	if e.Note == "" {
		e.Note = domain.DefaultNote
	}
	if e.Direction == "" {
		e.Direction = domain.DirectionGave
	}
	if e.Status == "" {
		e.Status = domain.StatusPending
	}
	if e.OriginalAmount == 0 && e.CurrentAmount != 0 {
		// Records predating payment tracking carried only a live amount.
		e.OriginalAmount = e.CurrentAmount
	}
	if e.Payments == nil {
		e.Payments = []domain.Payment{}
	}
	if e.TransactionDate.IsZero() {
		e.TransactionDate = e.CreatedAt
	}
}
