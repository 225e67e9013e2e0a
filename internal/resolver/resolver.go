// Package resolver is the post-pass that runs once all hop iterations
// complete: it reconciles every edge flagged ambiguous against the
// authoritative relationship record, the way the teacher's verifier
// reconciles a copied table against its source.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/familysearch/crawlengine/internal/crawlerr"
	"github.com/familysearch/crawlengine/internal/httpsession"
	"github.com/familysearch/crawlengine/internal/logger"
	"github.com/familysearch/crawlengine/internal/ratecontrol"
	"github.com/familysearch/crawlengine/internal/store"
)

// typeRank orders edge types by authority: a higher rank overrides a lower
// one when two sources disagree on the same relationship.
var typeRank = map[store.EdgeType]int{
	store.EdgeUnspecifiedParentType: 0,
	store.EdgeAssumedBiological:     1,
	store.EdgeBiologicalParent:      2,
	store.EdgeNonBiological:         0, // only overrides when returned explicitly
	store.EdgeResolve:               -1,
}

// relationshipResponse is the authoritative-type payload returned by the
// relationship-record endpoint.
type relationshipResponse struct {
	Type string `json:"type"`
}

// Resolver drives the ambiguous-edge reconciliation loop.
type Resolver struct {
	store       *store.Store
	session     *httpsession.Session
	controller  *ratecontrol.Controller
	urlTemplate string // one %s for the relationship_id
	logger      *logger.Logger
}

// New builds a Resolver. urlTemplate is passed through fmt.Sprintf with a
// single relationship_id.
func New(s *store.Store, session *httpsession.Session, controller *ratecontrol.Controller, urlTemplate string, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Resolver{store: s, session: session, controller: controller, urlTemplate: urlTemplate, logger: log}
}

// Run reconciles every ambiguous edge, looping determine_resolution →
// dispatch → update until no Resolve-typed edges remain. It returns the
// total number of relationships resolved across every pass.
func (r *Resolver) Run(ctx context.Context) (int, error) {
	total := 0

	for {
		if err := ctx.Err(); err != nil {
			return total, crawlerr.New(crawlerr.KindCancelled, "resolver.run", err)
		}

		if _, err := r.store.DetermineResolution(ctx); err != nil {
			return total, err
		}

		ids, err := r.store.ListResolveRelationshipIDs(ctx)
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}

		start := time.Now()
		resolved := r.dispatchAndApply(ctx, ids)
		total += resolved

		if err := r.store.EndRelationshipResolution(ctx, time.Since(start), resolved); err != nil {
			return total, err
		}

		// No forward progress this pass (every candidate failed) — stop to
		// avoid spinning forever on a permanently unresolvable edge.
		if resolved == 0 {
			return total, nil
		}
	}
}

func (r *Resolver) dispatchAndApply(ctx context.Context, ids []string) int {
	var mu sync.Mutex
	resolved := 0

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(relationshipID string) {
			defer wg.Done()
			if r.resolveOne(ctx, relationshipID) {
				mu.Lock()
				resolved++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()
	return resolved
}

func (r *Resolver) resolveOne(ctx context.Context, relationshipID string) bool {
	release, err := r.controller.Acquire(ctx, ratecontrol.PhaseRelationship)
	if err != nil {
		return false
	}
	defer release()

	url := fmt.Sprintf(r.urlTemplate, relationshipID)
	resp, err := r.session.Get(ctx, url)
	if err != nil {
		if crawlerr.Is(err, crawlerr.KindThrottled) {
			r.controller.ReportFailure()
		}
		r.logger.WithPhase("relationship").Warnf("failed to resolve relationship %q: %v", relationshipID, err)
		return false
	}
	r.controller.ReportSuccess()

	var payload relationshipResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		r.logger.WithPhase("relationship").Warnf("corrupt relationship payload for %q: %v", relationshipID, err)
		return false
	}

	authoritative := AuthoritativeType(payload.Type)

	winner := authoritative
	priorType, err := r.store.GetEdgePriorType(ctx, relationshipID)
	if err != nil {
		r.logger.WithPhase("relationship").Errorf("failed to read prior type for relationship %q: %v", relationshipID, err)
		return false
	}
	if priorType != "" && !HigherPrecedence(authoritative, priorType) {
		winner = priorType
	}

	if err := r.store.UpdateRelationship(ctx, relationshipID, winner); err != nil {
		r.logger.WithPhase("relationship").Errorf("failed to update relationship %q: %v", relationshipID, err)
		return false
	}
	return true
}

// AuthoritativeType maps a resolver response's raw type string to the
// highest-precedence EdgeType it can justify. Unknown/empty strings fall
// back to UnspecifiedParentType rather than leaving the edge stuck at
// Resolve.
func AuthoritativeType(raw string) store.EdgeType {
	switch store.EdgeType(raw) {
	case store.EdgeBiologicalParent:
		return store.EdgeBiologicalParent
	case store.EdgeAssumedBiological:
		return store.EdgeAssumedBiological
	case store.EdgeNonBiological:
		return store.EdgeNonBiological
	default:
		return store.EdgeUnspecifiedParentType
	}
}

// HigherPrecedence reports whether candidate outranks current under the
// type precedence BiologicalParent > AssumedBiological > UnspecifiedParentType,
// with NonBiological overriding only when returned explicitly by the
// resolver (never inferred).
func HigherPrecedence(candidate, current store.EdgeType) bool {
	if candidate == store.EdgeNonBiological {
		return true
	}
	return typeRank[candidate] > typeRank[current]
}
