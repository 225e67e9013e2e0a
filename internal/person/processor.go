// Package person parses a `persons` API payload into Store vertices and
// parent→child edges, and drives the partial-write checkpoint policy that
// bounds how much work a crash mid-hop can lose.
package person

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/familysearch/crawlengine/internal/crawlerr"
	"github.com/familysearch/crawlengine/internal/logger"
	"github.com/familysearch/crawlengine/internal/store"
)

// Processor applies parsed payloads to the Store.
type Processor struct {
	store            *store.Store
	logger           *logger.Logger
	checkpointEveryN int
	sinceCheckpoint  int
}

// New builds a Processor. checkpointEveryN is the number of processed
// payloads between forced Store checkpoints; values <= 0 disable periodic
// checkpointing (every AddIndividual/AddParentChildRelationship call still
// commits its own transaction).
func New(s *store.Store, checkpointEveryN int, log *logger.Logger) *Processor {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Processor{store: s, logger: log, checkpointEveryN: checkpointEveryN}
}

// ParsePayload decodes one `persons` JSON response body.
func ParsePayload(body []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, crawlerr.New(crawlerr.KindCorruptPayload, "person.parse_payload", err)
	}
	return &p, nil
}

// Process applies one parsed payload: upserts every returned person vertex
// at the given iteration, then emits one or two parent→child edges per
// relationship record. A PID that was requested but never appears in
// payload.Persons is not touched here and stays in ProcessingSet.
func (p *Processor) Process(ctx context.Context, iteration int, payload *Payload) error {
	for _, rec := range payload.Persons {
		v := store.Vertex{
			PID:       rec.PID,
			Color:     normalizeColor(rec.Color),
			Surname:   rec.Surname,
			GivenName: rec.GivenName,
			Iteration: iteration,
			Lifespan:  rec.Lifespan,
		}
		if err := p.store.AddIndividual(ctx, v); err != nil {
			return err
		}
	}

	for _, rel := range payload.Relationships {
		if err := p.applyRelationship(ctx, rel); err != nil {
			return err
		}
	}

	p.sinceCheckpoint++
	if p.checkpointEveryN > 0 && p.sinceCheckpoint >= p.checkpointEveryN {
		if err := p.store.Checkpoint(ctx); err != nil {
			return err
		}
		p.sinceCheckpoint = 0
	}

	return nil
}

func (p *Processor) applyRelationship(ctx context.Context, rel RelationshipRecord) error {
	if rel.ChildPID == "" {
		return crawlerr.New(crawlerr.KindCorruptPayload, "person.apply_relationship",
			fmt.Errorf("relationship %q has no child pid", rel.RelationshipID))
	}
	if rel.ParentPID1 == "" && rel.ParentPID2 == "" {
		return crawlerr.New(crawlerr.KindCorruptPayload, "person.apply_relationship",
			fmt.Errorf("relationship %q has no parent pid", rel.RelationshipID))
	}

	edgeType := parseEdgeType(rel.Type)

	if rel.ParentPID1 != "" {
		if err := p.store.AddParentChildRelationship(ctx, rel.ParentPID1, rel.ChildPID, rel.RelationshipID, edgeType); err != nil {
			return err
		}
	}
	if rel.ParentPID2 != "" {
		if err := p.store.AddParentChildRelationship(ctx, rel.ParentPID2, rel.ChildPID, rel.RelationshipID, edgeType); err != nil {
			return err
		}
	}
	return nil
}

func normalizeColor(s string) store.Color {
	switch store.Color(s) {
	case store.ColorMale, store.ColorFemale:
		return store.Color(s)
	default:
		return store.ColorUnknown
	}
}

func parseEdgeType(s string) store.EdgeType {
	switch store.EdgeType(s) {
	case store.EdgeAssumedBiological, store.EdgeBiologicalParent, store.EdgeNonBiological, store.EdgeResolve:
		return store.EdgeType(s)
	default:
		return store.EdgeUnspecifiedParentType
	}
}

// PendingSinceCheckpoint reports how many payloads have been processed
// since the last forced checkpoint, for metrics reporting.
func (p *Processor) PendingSinceCheckpoint() int {
	return p.sinceCheckpoint
}
