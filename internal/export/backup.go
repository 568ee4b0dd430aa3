package export

import (
	"context"
	"fmt"
	"time"

	"tracker/internal/db"
	"tracker/internal/game"
)

// backupVersion is the format marker written into every backup file.
const backupVersion = "1.0"

// Backup is the full-data export format. Its shape is a persisted contract:
// files written years apart must stay mutually restorable.
type Backup struct {
	Version    string         `json:"version"`
	ExportDate time.Time      `json:"exportDate"`
	Players    []game.Player  `json:"players"`
	Matches    []game.Match   `json:"matches"`
	Maps       []game.MapInfo `json:"maps"`
}

// Filename returns the canonical backup file name for the export date.
func (b *Backup) Filename() string {
	return fmt.Sprintf("tracker-backup-%s.json", b.ExportDate.Format("2006-01-02"))
}

// Service assembles backups from store snapshots and, when an uploader is
// configured, ships them to object storage.
type Service struct {
	store    *db.Store
	uploader *Uploader
}

// NewService builds the export service. uploader may be nil; Snapshot still
// works and only scheduled uploads are disabled.
func NewService(store *db.Store, uploader *Uploader) *Service {
	return &Service{store: store, uploader: uploader}
}

// Snapshot reads all collections and assembles a backup.
func (s *Service) Snapshot(ctx context.Context) (*Backup, error) {
	players, err := s.store.ListPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot players: %w", err)
	}
	matches, err := s.store.ListMatches(ctx, db.MatchFilter{})
	if err != nil {
		return nil, fmt.Errorf("snapshot matches: %w", err)
	}
	maps, err := s.store.ListMaps(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot maps: %w", err)
	}

	if players == nil {
		players = []game.Player{}
	}
	if matches == nil {
		matches = []game.Match{}
	}
	if maps == nil {
		maps = []game.MapInfo{}
	}

	return &Backup{
		Version:    backupVersion,
		ExportDate: time.Now().UTC(),
		Players:    players,
		Matches:    matches,
		Maps:       maps,
	}, nil
}
