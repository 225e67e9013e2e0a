package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(context.Background(), dir, "crawl", true, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenCreatesSchema(t *testing.T) {
	s := openTestStore(t)

	status, err := s.GetStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunIdle, status.RunStatus)
	assert.Equal(t, 0, status.FrontierDepth)
	assert.Equal(t, -1, status.LastIteration)
}

func TestOpenMissingFileWithoutCreate(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(context.Background(), dir, "absent", false, nil)
	require.Error(t, err)
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(context.Background(), dir, "crawl", true, nil)
	require.NoError(t, err)
	require.NoError(t, s1.AddToFrontier(context.Background(), []string{"P1"}))
	require.NoError(t, s1.Close())

	s2, err := Open(context.Background(), dir, "crawl", false, nil)
	require.NoError(t, err)
	defer s2.Close()

	ids, err := s2.PeekFrontier(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, ids)
}

func TestAddToFrontierDedupes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddToFrontier(ctx, []string{"P1", "P2", "P1"}))
	require.NoError(t, s.AddToFrontier(ctx, []string{"P2", "P3"}))

	ids, err := s.PeekFrontier(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1", "P2", "P3"}, ids)
}

func TestAddToFrontierExcludesVertexAndProcessing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddIndividual(ctx, Vertex{PID: "P1"}))
	require.NoError(t, s.AddToFrontier(ctx, []string{"P2"}))
	_, err := s.StartIteration(ctx, 10)
	require.NoError(t, err)

	require.NoError(t, s.AddToFrontier(ctx, []string{"P1", "P2", "P3"}))

	ids, err := s.PeekFrontier(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"P3"}, ids)
}

func TestStartIterationPromotesAndClearsFrontier(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddToFrontier(ctx, []string{"P1", "P2", "P3"}))

	promoted, err := s.StartIteration(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1", "P2"}, promoted)

	remaining, err := s.PeekFrontier(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"P3"}, remaining)

	processing, err := s.GetIDsToProcess(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"P1", "P2"}, processing)
}

func TestStartIterationResumesExistingProcessingSet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddToFrontier(ctx, []string{"P1", "P2"}))
	first, err := s.StartIteration(ctx, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"P1", "P2"}, first)

	// Simulate crash recovery: call StartIteration again before the
	// iteration ends.
	second, err := s.StartIteration(ctx, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"P1", "P2"}, second)
}

func TestAddIndividualIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddToFrontier(ctx, []string{"P1"}))
	_, err := s.StartIteration(ctx, 10)
	require.NoError(t, err)

	require.NoError(t, s.AddIndividual(ctx, Vertex{PID: "P1", GivenName: "Ada"}))
	require.NoError(t, s.AddIndividual(ctx, Vertex{PID: "P1", GivenName: "Overwritten"}))

	processing, err := s.GetIDsToProcess(ctx)
	require.NoError(t, err)
	assert.Empty(t, processing)

	status, err := s.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.VertexCount)
}

func TestAddParentChildRelationshipAppendsUnseenDestination(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddIndividual(ctx, Vertex{PID: "PARENT"}))
	require.NoError(t, s.AddParentChildRelationship(ctx, "PARENT", "CHILD", "REL1", EdgeBiologicalParent))

	ids, err := s.PeekFrontier(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"CHILD"}, ids)

	status, err := s.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.EdgeCount)
}

func TestAddParentChildRelationshipDoesNotReAddKnownDestination(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddIndividual(ctx, Vertex{PID: "PARENT"}))
	require.NoError(t, s.AddIndividual(ctx, Vertex{PID: "CHILD"}))
	require.NoError(t, s.AddParentChildRelationship(ctx, "PARENT", "CHILD", "REL1", EdgeBiologicalParent))

	ids, err := s.PeekFrontier(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDetermineResolutionFlipsAmbiguousDestinations(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddIndividual(ctx, Vertex{PID: "CHILD"}))
	require.NoError(t, s.AddParentChildRelationship(ctx, "P1", "CHILD", "R1", EdgeUnspecifiedParentType))
	require.NoError(t, s.AddParentChildRelationship(ctx, "P2", "CHILD", "R2", EdgeAssumedBiological))
	require.NoError(t, s.AddParentChildRelationship(ctx, "P3", "CHILD", "R3", EdgeBiologicalParent))

	flipped, err := s.DetermineResolution(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, flipped)
}

func TestDetermineResolutionLeavesTwoParentsAlone(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddParentChildRelationship(ctx, "P1", "CHILD", "R1", EdgeBiologicalParent))
	require.NoError(t, s.AddParentChildRelationship(ctx, "P2", "CHILD", "R2", EdgeBiologicalParent))

	flipped, err := s.DetermineResolution(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, flipped)
}

func TestDetermineResolutionPreservesPriorType(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddParentChildRelationship(ctx, "P1", "CHILD", "R1", EdgeUnspecifiedParentType))
	require.NoError(t, s.AddParentChildRelationship(ctx, "P2", "CHILD", "R2", EdgeAssumedBiological))
	require.NoError(t, s.AddParentChildRelationship(ctx, "P3", "CHILD", "R3", EdgeBiologicalParent))

	flipped, err := s.DetermineResolution(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, flipped)

	prior, err := s.GetEdgePriorType(ctx, "R2")
	require.NoError(t, err)
	assert.Equal(t, EdgeAssumedBiological, prior)
}

func TestGetEdgePriorTypeEmptyForUnflippedEdge(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddParentChildRelationship(ctx, "P1", "CHILD", "R1", EdgeBiologicalParent))

	prior, err := s.GetEdgePriorType(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, EdgeType(""), prior)
}

func TestUpdateRelationshipClearsPriorType(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddParentChildRelationship(ctx, "P1", "CHILD", "R1", EdgeUnspecifiedParentType))
	require.NoError(t, s.AddParentChildRelationship(ctx, "P2", "CHILD", "R2", EdgeUnspecifiedParentType))
	require.NoError(t, s.AddParentChildRelationship(ctx, "P3", "CHILD", "R3", EdgeUnspecifiedParentType))
	_, err := s.DetermineResolution(ctx)
	require.NoError(t, err)

	prior, err := s.GetEdgePriorType(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, EdgeUnspecifiedParentType, prior)

	require.NoError(t, s.UpdateRelationship(ctx, "R1", EdgeBiologicalParent))

	prior, err = s.GetEdgePriorType(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, EdgeType(""), prior)
}

// TestDetermineResolutionDoesNotReflagAResolvedEdge covers the convergence
// guarantee the resolved column protects: a destination whose incident
// edges resolve to answers that still read as biological-ish (so the
// >2-incident-edges count condition would otherwise match again) must
// never be reselected once UpdateRelationship has marked them resolved.
func TestDetermineResolutionDoesNotReflagAResolvedEdge(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddParentChildRelationship(ctx, "P1", "CHILD", "R1", EdgeUnspecifiedParentType))
	require.NoError(t, s.AddParentChildRelationship(ctx, "P2", "CHILD", "R2", EdgeUnspecifiedParentType))
	require.NoError(t, s.AddParentChildRelationship(ctx, "P3", "CHILD", "R3", EdgeUnspecifiedParentType))

	flipped, err := s.DetermineResolution(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, flipped)

	for _, id := range []string{"R1", "R2", "R3"} {
		require.NoError(t, s.UpdateRelationship(ctx, id, EdgeBiologicalParent))
	}

	flipped, err = s.DetermineResolution(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, flipped, "already-resolved edges must not be reselected even though their type still reads as biological-ish")

	remaining, err := s.ListResolveRelationshipIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestGetEdgeType(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddParentChildRelationship(ctx, "P1", "CHILD", "R1", EdgeBiologicalParent))

	edgeType, err := s.GetEdgeType(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, EdgeBiologicalParent, edgeType)

	edgeType, err = s.GetEdgeType(ctx, "MISSING")
	require.NoError(t, err)
	assert.Equal(t, EdgeType(""), edgeType)
}

func TestListResolveRelationshipIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddParentChildRelationship(ctx, "P1", "CHILD", "R1", EdgeResolve))
	require.NoError(t, s.AddParentChildRelationship(ctx, "P2", "CHILD", "R2", EdgeBiologicalParent))

	ids, err := s.ListResolveRelationshipIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"R1"}, ids)
}

func TestUpdateRelationshipRewritesType(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddParentChildRelationship(ctx, "P1", "CHILD", "R1", EdgeResolve))
	require.NoError(t, s.UpdateRelationship(ctx, "R1", EdgeBiologicalParent))

	flipped, err := s.DetermineResolution(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, flipped)
}

func TestEndIterationReturnsLeftoverToFrontier(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddToFrontier(ctx, []string{"P1", "P2"}))
	_, err := s.StartIteration(ctx, 10)
	require.NoError(t, err)

	// Only P1 gets processed into a vertex; P2 is left dangling.
	require.NoError(t, s.AddIndividual(ctx, Vertex{PID: "P1"}))

	require.NoError(t, s.EndIteration(ctx, 0, 0, IterationLogEntry{VerticesAdded: 1}))

	processing, err := s.GetIDsToProcess(ctx)
	require.NoError(t, err)
	assert.Empty(t, processing)

	remaining, err := s.PeekFrontier(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"P2"}, remaining)

	next, err := s.NextIterationToRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, next)
}

func TestEndRelationshipResolutionRecordsLog(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.EndRelationshipResolution(ctx, 0, 4))

	var count int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM RESOLUTION_LOG`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSeedFrontierIfEmptyOnlySeedsFreshRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SeedFrontierIfEmpty(ctx, []string{"SEED1", "SEED2"}))
	ids, err := s.PeekFrontier(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"SEED1", "SEED2"}, ids)

	// A second call after the frontier has already been touched is a no-op.
	require.NoError(t, s.SeedFrontierIfEmpty(ctx, []string{"OTHER"}))
	ids, err = s.PeekFrontier(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"SEED1", "SEED2"}, ids)
}

func TestRunMetadataRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetRunMetadata(ctx, `["P1"]`, 5, `{"requests_per_second":2}`))

	maxHops, err := s.GetMaxHops(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, 5, maxHops)
}

func TestSetAndGetRunStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetRunStatus(ctx, RunRunning))
	status, err := s.GetRunStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, RunRunning, status)
}
