// Package batch chunks a frontier-promoted PID set into bounded-size
// requests, dispatches them concurrently under the rate controller's
// per-phase bound, and reports any permanently-failed chunk's PIDs back to
// the caller so they can be returned to the frontier.
package batch

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/familysearch/crawlengine/internal/crawlerr"
	"github.com/familysearch/crawlengine/internal/httpsession"
	"github.com/familysearch/crawlengine/internal/logger"
	"github.com/familysearch/crawlengine/internal/ratecontrol"
)

// Result is the outcome of one dispatched chunk.
type Result struct {
	PIDs []string
	Body []byte
	Err  error // classified *crawlerr.Error, nil on success
}

// Partitioner splits PIDs into chunks of at most chunkSize and fetches each
// chunk's URL concurrently under the rate controller's person-phase bound.
type Partitioner struct {
	session     *httpsession.Session
	controller  *ratecontrol.Controller
	urlTemplate string // must contain exactly one %s for the comma-joined PID chunk
	chunkSize   int
	logger      *logger.Logger
}

// New builds a Partitioner. urlTemplate is passed through fmt.Sprintf with
// the comma-joined chunk of PIDs as its single argument.
func New(session *httpsession.Session, controller *ratecontrol.Controller, urlTemplate string, chunkSize int, log *logger.Logger) *Partitioner {
	if log == nil {
		log = logger.NewDefault()
	}
	if chunkSize <= 0 {
		chunkSize = 200
	}
	return &Partitioner{
		session:     session,
		controller:  controller,
		urlTemplate: urlTemplate,
		chunkSize:   chunkSize,
		logger:      log,
	}
}

// Chunk splits pids into groups of at most the partitioner's chunk size,
// preserving order.
func (p *Partitioner) Chunk(pids []string) [][]string {
	if len(pids) == 0 {
		return nil
	}
	var chunks [][]string
	for i := 0; i < len(pids); i += p.chunkSize {
		end := i + p.chunkSize
		if end > len(pids) {
			end = len(pids)
		}
		chunks = append(chunks, pids[i:end])
	}
	return chunks
}

// Dispatch chunks pids and fetches every chunk concurrently under the
// person-phase rate bound, awaiting all of them before returning. It never
// itself classifies Throttled/Transient retries — that's the caller's
// (engine's) responsibility, using MaxRetries from the controller — but it
// does surface each chunk's final outcome, including which PIDs belong to a
// PermanentFailure chunk so the caller can return them to the frontier.
func (p *Partitioner) Dispatch(ctx context.Context, pids []string) []Result {
	chunks := p.Chunk(pids)
	if len(chunks) == 0 {
		return nil
	}

	results := make([]Result, len(chunks))
	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk []string) {
			defer wg.Done()
			results[i] = p.DispatchChunk(ctx, chunk)
		}(i, chunk)
	}
	wg.Wait()
	return results
}

// DispatchChunk fetches a single chunk under the person-phase rate bound.
// Exported so callers that need per-chunk retry control (the iteration
// engine) can drive individual attempts themselves rather than going
// through Dispatch's fire-all-chunks-once behavior.
func (p *Partitioner) DispatchChunk(ctx context.Context, chunk []string) Result {
	release, err := p.controller.Acquire(ctx, ratecontrol.PhasePerson)
	if err != nil {
		return Result{PIDs: chunk, Err: err}
	}
	defer release()

	url := fmt.Sprintf(p.urlTemplate, strings.Join(chunk, ","))
	resp, err := p.session.Get(ctx, url)
	if err != nil {
		if crawlerr.Is(err, crawlerr.KindThrottled) {
			p.controller.ReportFailure()
		} else {
			p.controller.ReportSuccess()
		}
		if crawlerr.Is(err, crawlerr.KindPermanentFailure) {
			p.logger.WithPhase("person").Warnf("chunk of %d pids permanently failed: %v", len(chunk), err)
		}
		return Result{PIDs: chunk, Err: err}
	}
	p.controller.ReportSuccess()
	return Result{PIDs: chunk, Body: resp.Body}
}
