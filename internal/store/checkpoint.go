package store

import (
	"context"

	"github.com/familysearch/crawlengine/internal/crawlerr"
)

// Checkpoint forces a WAL checkpoint, flushing committed writes from the
// write-ahead log into the main database file. Called by the Person
// Processor every N payloads and by the control plane's checkpoint
// scheduler, so a crash loses at most the last partial commit window.
func (s *Store) Checkpoint(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(PASSIVE)`); err != nil {
		return crawlerr.New(crawlerr.KindStoreIntegrity, "store.checkpoint", err)
	}
	return nil
}
