package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/familysearch/crawlengine/internal/crawlerr"
)

// AddToFrontier inserts each pid into FrontierQueue only if it is not already
// present in Vertex ∪ ProcessingSet ∪ FrontierQueue, preserving submission
// order on first insertion.
func (s *Store) AddToFrontier(ctx context.Context, pids []string) error {
	if len(pids) == 0 {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return crawlerr.New(crawlerr.KindStoreIntegrity, "store.add_to_frontier", err)
	}
	defer tx.Rollback()

	if err := s.insertFrontierTx(ctx, tx, pids); err != nil {
		return crawlerr.New(crawlerr.KindStoreIntegrity, "store.add_to_frontier", err)
	}

	if err := tx.Commit(); err != nil {
		return crawlerr.New(crawlerr.KindStoreIntegrity, "store.add_to_frontier", err)
	}
	return nil
}

// insertFrontierTx is the shared insert-if-unseen helper used by
// AddToFrontier and AddParentChildRelationship. Must run inside tx under
// writeMu.
func (s *Store) insertFrontierTx(ctx context.Context, tx *sql.Tx, pids []string) error {
	seq, err := s.nextFrontierSeqTx(ctx, tx)
	if err != nil {
		return err
	}

	for _, pid := range pids {
		seen, err := s.isSeenTx(ctx, tx, pid)
		if err != nil {
			return err
		}
		if seen {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO FRONTIER_QUEUE (id, seq) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
			pid, seq,
		); err != nil {
			return fmt.Errorf("insert frontier %q: %w", pid, err)
		}
		seq++
	}

	return s.setMetaTx(ctx, tx, metaFrontierSeq, fmt.Sprintf("%d", seq))
}

func (s *Store) nextFrontierSeqTx(ctx context.Context, tx *sql.Tx) (int64, error) {
	var value string
	err := tx.QueryRowContext(ctx, `SELECT value FROM JOB_METADATA WHERE key = ?`, metaFrontierSeq).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read frontier seq: %w", err)
	}
	var n int64
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
		return 0, fmt.Errorf("parse frontier seq: %w", err)
	}
	return n, nil
}

func (s *Store) setMetaTx(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO JOB_METADATA (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// isSeenTx reports whether pid is already in Vertex, ProcessingSet, or
// FrontierQueue.
func (s *Store) isSeenTx(ctx context.Context, tx *sql.Tx, pid string) (bool, error) {
	var exists int
	err := tx.QueryRowContext(ctx, `
		SELECT 1 FROM VERTEX WHERE id = ?
		UNION ALL
		SELECT 1 FROM PROCESSING_QUEUE WHERE id = ?
		UNION ALL
		SELECT 1 FROM FRONTIER_QUEUE WHERE id = ?
		LIMIT 1`,
		pid, pid, pid,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check seen %q: %w", pid, err)
	}
	return true, nil
}

// StartIteration atomically moves up to maxBatchDrain oldest frontier entries
// into ProcessingSet and returns the promoted pids. If ProcessingSet was
// already non-empty (unclean prior shutdown), it returns the existing
// contents without promoting more — the crash-recovery path.
func (s *Store) StartIteration(ctx context.Context, maxBatchDrain int) ([]string, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, crawlerr.New(crawlerr.KindStoreIntegrity, "store.start_iteration", err)
	}
	defer tx.Rollback()

	existing, err := s.processingSnapshotTx(ctx, tx)
	if err != nil {
		return nil, crawlerr.New(crawlerr.KindStoreIntegrity, "store.start_iteration", err)
	}
	if len(existing) > 0 {
		// Crash-recovery path: re-dispatch verbatim, vertex/edge inserts are
		// idempotent so this is safe.
		return existing, nil
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM FRONTIER_QUEUE ORDER BY seq ASC LIMIT ?`, maxBatchDrain,
	)
	if err != nil {
		return nil, crawlerr.New(crawlerr.KindStoreIntegrity, "store.start_iteration", err)
	}
	var promoted []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, crawlerr.New(crawlerr.KindStoreIntegrity, "store.start_iteration", err)
		}
		promoted = append(promoted, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, crawlerr.New(crawlerr.KindStoreIntegrity, "store.start_iteration", err)
	}
	rows.Close()

	for _, pid := range promoted {
		if _, err := tx.ExecContext(ctx, `INSERT INTO PROCESSING_QUEUE (id) VALUES (?)`, pid); err != nil {
			return nil, crawlerr.New(crawlerr.KindStoreIntegrity, "store.start_iteration", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM FRONTIER_QUEUE WHERE id = ?`, pid); err != nil {
			return nil, crawlerr.New(crawlerr.KindStoreIntegrity, "store.start_iteration", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, crawlerr.New(crawlerr.KindStoreIntegrity, "store.start_iteration", err)
	}
	return promoted, nil
}

func (s *Store) processingSnapshotTx(ctx context.Context, tx *sql.Tx) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM PROCESSING_QUEUE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetIDsToProcess returns a snapshot of the current ProcessingSet.
func (s *Store) GetIDsToProcess(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM PROCESSING_QUEUE`)
	if err != nil {
		return nil, crawlerr.New(crawlerr.KindStoreIntegrity, "store.get_ids_to_process", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, crawlerr.New(crawlerr.KindStoreIntegrity, "store.get_ids_to_process", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddIndividual upserts v into Vertex and removes its pid from ProcessingSet.
// No-op if a vertex for this pid already exists (idempotent for replay
// safety).
func (s *Store) AddIndividual(ctx context.Context, v Vertex) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return crawlerr.New(crawlerr.KindStoreIntegrity, "store.add_individual", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO VERTEX (id, color, surname, given_name, iteration, lifespan)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		v.PID, string(v.Color), v.Surname, v.GivenName, v.Iteration, v.Lifespan,
	)
	if err != nil {
		return crawlerr.New(crawlerr.KindStoreIntegrity, "store.add_individual", err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM PROCESSING_QUEUE WHERE id = ?`, v.PID); err != nil {
			return crawlerr.New(crawlerr.KindStoreIntegrity, "store.add_individual", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return crawlerr.New(crawlerr.KindStoreIntegrity, "store.add_individual", err)
	}
	return nil
}

// AddParentChildRelationship upserts an Edge keyed by (source, destination,
// relationship_id). Whichever of source and destination is unseen is
// appended to the frontier. Idempotent.
func (s *Store) AddParentChildRelationship(ctx context.Context, source, destination, relationshipID string, edgeType EdgeType) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return crawlerr.New(crawlerr.KindStoreIntegrity, "store.add_parent_child_relationship", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO EDGE (source, destination, id, type) VALUES (?, ?, ?, ?)
		 ON CONFLICT(source, destination, id) DO UPDATE SET type = excluded.type`,
		source, destination, relationshipID, string(edgeType),
	); err != nil {
		return crawlerr.New(crawlerr.KindStoreIntegrity, "store.add_parent_child_relationship", err)
	}

	if err := s.insertFrontierTx(ctx, tx, []string{source, destination}); err != nil {
		return crawlerr.New(crawlerr.KindStoreIntegrity, "store.add_parent_child_relationship", err)
	}

	if err := tx.Commit(); err != nil {
		return crawlerr.New(crawlerr.KindStoreIntegrity, "store.add_parent_child_relationship", err)
	}
	return nil
}

// DetermineResolution flips the edge type to Resolve for any destination
// (child) with more than two incident, not-yet-resolved biological-ish
// edges, preserving each flipped edge's prior type in prior_type so the
// relationship resolver can later weigh its own authoritative answer
// against it before committing a final type. Edges already rewritten once
// by UpdateRelationship (resolved = 1) are excluded even if their final
// type still reads as biological-ish, so a destination whose resolved
// answer doesn't clear the ambiguity threshold (e.g. every incident edge
// came back BiologicalParent) is never re-flagged on a later pass.
func (s *Store) DetermineResolution(ctx context.Context) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, crawlerr.New(crawlerr.KindStoreIntegrity, "store.determine_resolution", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT destination FROM EDGE
		WHERE type IN (?, ?, ?) AND resolved = 0
		GROUP BY destination
		HAVING COUNT(*) > 2`,
		string(EdgeUnspecifiedParentType), string(EdgeAssumedBiological), string(EdgeBiologicalParent),
	)
	if err != nil {
		return 0, crawlerr.New(crawlerr.KindStoreIntegrity, "store.determine_resolution", err)
	}
	var ambiguous []string
	for rows.Next() {
		var dest string
		if err := rows.Scan(&dest); err != nil {
			rows.Close()
			return 0, crawlerr.New(crawlerr.KindStoreIntegrity, "store.determine_resolution", err)
		}
		ambiguous = append(ambiguous, dest)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, crawlerr.New(crawlerr.KindStoreIntegrity, "store.determine_resolution", err)
	}
	rows.Close()

	flipped := 0
	for _, dest := range ambiguous {
		res, err := tx.ExecContext(ctx,
			`UPDATE EDGE SET prior_type = type, type = ? WHERE destination = ? AND type IN (?, ?, ?) AND resolved = 0`,
			string(EdgeResolve), dest,
			string(EdgeUnspecifiedParentType), string(EdgeAssumedBiological), string(EdgeBiologicalParent),
		)
		if err != nil {
			return 0, crawlerr.New(crawlerr.KindStoreIntegrity, "store.determine_resolution", err)
		}
		n, _ := res.RowsAffected()
		flipped += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, crawlerr.New(crawlerr.KindStoreIntegrity, "store.determine_resolution", err)
	}
	return flipped, nil
}

// EndIteration writes the IterationLog row, clears ProcessingSet (returning
// any still-present pids to the frontier first), and commits.
func (s *Store) EndIteration(ctx context.Context, iteration int, duration time.Duration, entry IterationLogEntry) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return crawlerr.New(crawlerr.KindStoreIntegrity, "store.end_iteration", err)
	}
	defer tx.Rollback()

	leftover, err := s.processingSnapshotTx(ctx, tx)
	if err != nil {
		return crawlerr.New(crawlerr.KindStoreIntegrity, "store.end_iteration", err)
	}
	if len(leftover) > 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM PROCESSING_QUEUE`); err != nil {
			return crawlerr.New(crawlerr.KindStoreIntegrity, "store.end_iteration", err)
		}
		if err := s.insertFrontierTx(ctx, tx, leftover); err != nil {
			return crawlerr.New(crawlerr.KindStoreIntegrity, "store.end_iteration", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO LOG (iteration, duration, vertices, frontier, edges, spanning_edges, frontier_edges)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		iteration, duration.Seconds(), entry.VerticesAdded, entry.FrontierSizeAfter,
		entry.EdgesAdded, entry.SpanningEdgesAdded, entry.FrontierEdgesAdded,
	); err != nil {
		return crawlerr.New(crawlerr.KindStoreIntegrity, "store.end_iteration", err)
	}

	if err := s.setMetaTx(ctx, tx, metaLastCheckpoint, "checkpoint"); err != nil {
		return crawlerr.New(crawlerr.KindStoreIntegrity, "store.end_iteration", err)
	}
	if err := s.setMetaTx(ctx, tx, metaLastCheckpointTS, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return crawlerr.New(crawlerr.KindStoreIntegrity, "store.end_iteration", err)
	}

	if err := tx.Commit(); err != nil {
		return crawlerr.New(crawlerr.KindStoreIntegrity, "store.end_iteration", err)
	}
	return nil
}

// ListResolveRelationshipIDs returns distinct relationship_ids currently
// flagged Resolve, for the resolver to dispatch.
func (s *Store) ListResolveRelationshipIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT id FROM EDGE WHERE type = ?`, string(EdgeResolve))
	if err != nil {
		return nil, crawlerr.New(crawlerr.KindStoreIntegrity, "store.list_resolve_relationship_ids", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, crawlerr.New(crawlerr.KindStoreIntegrity, "store.list_resolve_relationship_ids", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetEdgeType returns the current type of relationshipID's edge, for
// operator inspection and tests. It returns "" if relationshipID names no
// edge.
func (s *Store) GetEdgeType(ctx context.Context, relationshipID string) (EdgeType, error) {
	var edgeType string
	err := s.db.QueryRowContext(ctx, `SELECT type FROM EDGE WHERE id = ? LIMIT 1`, relationshipID).Scan(&edgeType)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", crawlerr.New(crawlerr.KindStoreIntegrity, "store.get_edge_type", err)
	}
	return EdgeType(edgeType), nil
}

// GetEdgePriorType returns the type relationshipID's edge held immediately
// before DetermineResolution flipped it to Resolve, so a caller can weigh a
// new candidate type against it under the type precedence rule. It returns
// "" if relationshipID names no edge or the edge was never flipped.
func (s *Store) GetEdgePriorType(ctx context.Context, relationshipID string) (EdgeType, error) {
	var priorType string
	err := s.db.QueryRowContext(ctx, `SELECT prior_type FROM EDGE WHERE id = ? LIMIT 1`, relationshipID).Scan(&priorType)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", crawlerr.New(crawlerr.KindStoreIntegrity, "store.get_edge_prior_type", err)
	}
	return EdgeType(priorType), nil
}

// UpdateRelationship rewrites type for all edges sharing relationshipID,
// clears prior_type, and marks the edge resolved so DetermineResolution
// never reconsiders it, even if newType still reads as biological-ish.
func (s *Store) UpdateRelationship(ctx context.Context, relationshipID string, newType EdgeType) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE EDGE SET type = ?, prior_type = '', resolved = 1 WHERE id = ?`,
		string(newType), relationshipID,
	)
	if err != nil {
		return crawlerr.New(crawlerr.KindStoreIntegrity, "store.update_relationship", err)
	}
	return nil
}

// EndRelationshipResolution records a resolution log entry and commits.
func (s *Store) EndRelationshipResolution(ctx context.Context, duration time.Duration, resolvedCount int) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO RESOLUTION_LOG (duration, relationships_resolved) VALUES (?, ?)`,
		duration.Seconds(), resolvedCount,
	)
	if err != nil {
		return crawlerr.New(crawlerr.KindStoreIntegrity, "store.end_relationship_resolution", err)
	}
	return nil
}

// PeekFrontier returns an ordered snapshot of up to limit frontier pids, for
// operator inspection.
func (s *Store) PeekFrontier(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM FRONTIER_QUEUE ORDER BY seq ASC LIMIT ?`, limit)
	if err != nil {
		return nil, crawlerr.New(crawlerr.KindStoreIntegrity, "store.peek_frontier", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, crawlerr.New(crawlerr.KindStoreIntegrity, "store.peek_frontier", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SeedFrontierIfEmpty seeds pids into the frontier only when the store has
// seen nothing yet (fresh run). Safe to call on every `run` invocation.
func (s *Store) SeedFrontierIfEmpty(ctx context.Context, pids []string) error {
	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM VERTEX) +
			(SELECT COUNT(*) FROM PROCESSING_QUEUE) +
			(SELECT COUNT(*) FROM FRONTIER_QUEUE)`,
	).Scan(&total)
	if err != nil {
		return crawlerr.New(crawlerr.KindStoreIntegrity, "store.seed_frontier_if_empty", err)
	}
	if total > 0 {
		return nil
	}
	return s.AddToFrontier(ctx, pids)
}

// NextIterationToRun returns max(LOG.iteration)+1, or 0 if LOG is empty.
func (s *Store) NextIterationToRun(ctx context.Context) (int, error) {
	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(iteration) FROM LOG`).Scan(&max)
	if err != nil {
		return 0, crawlerr.New(crawlerr.KindStoreIntegrity, "store.next_iteration_to_run", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64) + 1, nil
}

// GetStatus returns a point-in-time snapshot of queue depths and run state.
func (s *Store) GetStatus(ctx context.Context) (Status, error) {
	var st Status

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM FRONTIER_QUEUE`).Scan(&st.FrontierDepth); err != nil {
		return st, crawlerr.New(crawlerr.KindStoreIntegrity, "store.get_status", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM PROCESSING_QUEUE`).Scan(&st.ProcessingDepth); err != nil {
		return st, crawlerr.New(crawlerr.KindStoreIntegrity, "store.get_status", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM VERTEX`).Scan(&st.VertexCount); err != nil {
		return st, crawlerr.New(crawlerr.KindStoreIntegrity, "store.get_status", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM EDGE`).Scan(&st.EdgeCount); err != nil {
		return st, crawlerr.New(crawlerr.KindStoreIntegrity, "store.get_status", err)
	}

	var lastIter sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(iteration) FROM LOG`).Scan(&lastIter); err != nil {
		return st, crawlerr.New(crawlerr.KindStoreIntegrity, "store.get_status", err)
	}
	if lastIter.Valid {
		st.LastIteration = int(lastIter.Int64)
	} else {
		st.LastIteration = -1
	}

	runStatus, ok, err := s.getMeta(ctx, metaRunStatus)
	if err != nil {
		return st, crawlerr.New(crawlerr.KindStoreIntegrity, "store.get_status", err)
	}
	if ok {
		st.RunStatus = RunStatus(runStatus)
	} else {
		st.RunStatus = RunIdle
	}

	st.UpdatedAt = time.Now().UTC()
	return st, nil
}

// SetRunStatus records the run's lifecycle state in JOB_METADATA.
func (s *Store) SetRunStatus(ctx context.Context, status RunStatus) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.setMeta(ctx, metaRunStatus, string(status)); err != nil {
		return crawlerr.New(crawlerr.KindStoreIntegrity, "store.set_run_status", err)
	}
	return nil
}

// GetRunStatus reads the run's lifecycle state from JOB_METADATA.
func (s *Store) GetRunStatus(ctx context.Context) (RunStatus, error) {
	value, ok, err := s.getMeta(ctx, metaRunStatus)
	if err != nil {
		return "", crawlerr.New(crawlerr.KindStoreIntegrity, "store.get_run_status", err)
	}
	if !ok {
		return RunIdle, nil
	}
	return RunStatus(value), nil
}

// SetRunMetadata persists the seeds, max hop count, and serialized throttle
// configuration for this run, at run start.
func (s *Store) SetRunMetadata(ctx context.Context, seedsJSON string, maxHops int, throttleJSON string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.setMeta(ctx, metaSeeds, seedsJSON); err != nil {
		return crawlerr.New(crawlerr.KindStoreIntegrity, "store.set_run_metadata", err)
	}
	if err := s.setMeta(ctx, metaMaxHops, fmt.Sprintf("%d", maxHops)); err != nil {
		return crawlerr.New(crawlerr.KindStoreIntegrity, "store.set_run_metadata", err)
	}
	if err := s.setMeta(ctx, metaThrottleConfig, throttleJSON); err != nil {
		return crawlerr.New(crawlerr.KindStoreIntegrity, "store.set_run_metadata", err)
	}
	return nil
}

// GetMaxHops reads the persisted max hop count, or the provided fallback if
// none was ever recorded.
func (s *Store) GetMaxHops(ctx context.Context, fallback int) (int, error) {
	n, err := s.getMetaInt(ctx, metaMaxHops, fallback)
	if err != nil {
		return 0, crawlerr.New(crawlerr.KindStoreIntegrity, "store.get_max_hops", err)
	}
	return n, nil
}
