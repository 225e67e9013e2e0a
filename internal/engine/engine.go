// Package engine is the per-hop BFS driver (C7): it promotes frontier PIDs
// into the processing set, dispatches batched HTTP fetches through the
// batch partitioner, hands successful payloads to the person processor,
// and closes out each iteration before advancing to the next hop or, once
// the configured hop ceiling is reached, into relationship resolution.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/familysearch/crawlengine/internal/batch"
	"github.com/familysearch/crawlengine/internal/crawlerr"
	"github.com/familysearch/crawlengine/internal/logger"
	"github.com/familysearch/crawlengine/internal/person"
	"github.com/familysearch/crawlengine/internal/ratecontrol"
	"github.com/familysearch/crawlengine/internal/resolver"
	"github.com/familysearch/crawlengine/internal/store"
)

// State is one state in the per-run state machine described by the
// iteration engine's lifecycle diagram.
type State string

const (
	StateIdle      State = "idle"
	StateIterating State = "iterating"
	StateResolving State = "resolving"
	StatePaused    State = "paused"
	StateAborted   State = "aborted"
	StateDone      State = "done"
)

// EventFunc receives a structured lifecycle event; the control plane wires
// this to its metrics sink. A nil EventFunc is treated as a no-op.
type EventFunc func(name string, fields map[string]any)

// Config carries the per-hop tunables the engine needs out of the
// processing section of the run configuration.
type Config struct {
	MaxHops         int
	DrainLimit      int
	InterBatchDelay time.Duration
}

// Engine drives one run's hop-by-hop crawl followed by relationship
// resolution.
type Engine struct {
	store       *store.Store
	partitioner *batch.Partitioner
	processor   *person.Processor
	resolver    *resolver.Resolver
	controller  *ratecontrol.Controller
	cfg         Config
	signal      *Signal
	logger      *logger.Logger
	onEvent     EventFunc

	state State
}

// New builds an Engine. signal may be nil, in which case the engine runs
// without an external pause/stop source (useful in tests).
func New(
	s *store.Store,
	partitioner *batch.Partitioner,
	processor *person.Processor,
	res *resolver.Resolver,
	controller *ratecontrol.Controller,
	cfg Config,
	signal *Signal,
	log *logger.Logger,
	onEvent EventFunc,
) *Engine {
	if log == nil {
		log = logger.NewDefault()
	}
	if signal == nil {
		signal = NewSignal()
	}
	return &Engine{
		store:       s,
		partitioner: partitioner,
		processor:   processor,
		resolver:    res,
		controller:  controller,
		cfg:         cfg,
		signal:      signal,
		logger:      log,
		onEvent:     onEvent,
		state:       StateIdle,
	}
}

// State reports the engine's current lifecycle state.
func (e *Engine) State() State { return e.state }

func (e *Engine) emit(name string, fields map[string]any) {
	if e.onEvent != nil {
		e.onEvent(name, fields)
	}
}

// Run drives hops until the hop ceiling is reached or the frontier is
// exhausted, then runs relationship resolution, then returns. It returns
// nil on a clean DONE or a cooperative ABORTED; any other error is fatal
// (auth expiry, store integrity violation, or context cancellation without
// an in-progress stop request).
func (e *Engine) Run(ctx context.Context) error {
	e.state = StateIterating
	e.emit("run_start", map[string]any{"max_hops": e.cfg.MaxHops})

	for {
		if stop, err := e.quiesceIfRequested(ctx); stop {
			return err
		}

		n, err := e.store.NextIterationToRun(ctx)
		if err != nil {
			return err
		}
		if n >= e.cfg.MaxHops {
			break
		}

		done, err := e.runHop(ctx, n)
		if err != nil {
			return err
		}
		if done {
			break
		}
	}

	e.state = StateResolving
	start := time.Now()
	resolved, err := e.resolver.Run(ctx)
	if err != nil {
		return err
	}
	e.emit("relationships_complete", map[string]any{
		"resolved": resolved,
		"duration": time.Since(start).Seconds(),
	})

	e.state = StateDone
	e.emit("run_complete", map[string]any{"state": string(e.state)})
	return nil
}

// quiesceIfRequested blocks while paused and reports whether the caller
// should stop (either a stop request landed, or ctx was cancelled while
// not already mid-stop).
func (e *Engine) quiesceIfRequested(ctx context.Context) (bool, error) {
	if e.signal.StopRequested() {
		e.state = StateAborted
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return true, crawlerr.New(crawlerr.KindCancelled, "engine.run", err)
	}
	if e.signal.IsPaused() {
		e.state = StatePaused
		if err := e.waitForResume(ctx); err != nil {
			return true, err
		}
		if e.signal.StopRequested() {
			e.state = StateAborted
			return true, nil
		}
		e.state = StateIterating
	}
	return false, nil
}

func (e *Engine) waitForResume(ctx context.Context) error {
	select {
	case <-e.signal.gate():
		return nil
	case <-ctx.Done():
		return crawlerr.New(crawlerr.KindCancelled, "engine.wait_for_resume", ctx.Err())
	}
}

// abortChunkRetry is quiesceIfRequested's concurrency-safe twin: it answers
// the same "should this retry loop stop" question, but never assigns
// e.state, so it's safe to call from the many per-chunk goroutines
// dispatchBatches fans out — only the single-threaded driver loops
// (Run, dispatchBatches' launch loop) own state transitions.
func (e *Engine) abortChunkRetry(ctx context.Context) (bool, error) {
	if e.signal.StopRequested() {
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return true, crawlerr.New(crawlerr.KindCancelled, "engine.run", err)
	}
	if e.signal.IsPaused() {
		select {
		case <-e.signal.gate():
		case <-ctx.Done():
			return true, crawlerr.New(crawlerr.KindCancelled, "engine.wait_for_resume", ctx.Err())
		}
		if e.signal.StopRequested() {
			return true, nil
		}
	}
	return false, nil
}

// runHop executes one full hop: promote frontier to processing, dispatch
// batches, apply payloads, and close the iteration. It reports done=true
// when the processing set was empty (nothing left to do this hop, proceed
// straight to resolution).
func (e *Engine) runHop(ctx context.Context, n int) (bool, error) {
	hopLog := e.logger.WithIteration(n)

	processing, err := e.store.StartIteration(ctx, e.cfg.DrainLimit)
	if err != nil {
		return false, err
	}
	if len(processing) == 0 {
		return true, nil
	}

	before, err := e.store.GetStatus(ctx)
	if err != nil {
		return false, err
	}

	start := time.Now()
	if err := e.dispatchBatches(ctx, n, processing, hopLog); err != nil {
		return false, err
	}

	after, err := e.store.GetStatus(ctx)
	if err != nil {
		return false, err
	}

	entry := store.IterationLogEntry{
		Iteration:         n,
		DurationSeconds:   time.Since(start).Seconds(),
		VerticesAdded:     after.VertexCount - before.VertexCount,
		EdgesAdded:        after.EdgeCount - before.EdgeCount,
		FrontierSizeAfter: after.FrontierDepth,
	}
	if err := e.store.EndIteration(ctx, n, time.Since(start), entry); err != nil {
		return false, err
	}

	e.emit("iteration_complete", map[string]any{
		"iteration":      n,
		"vertices_added": entry.VerticesAdded,
		"edges_added":    entry.EdgesAdded,
		"frontier_depth": entry.FrontierSizeAfter,
		"duration":       entry.DurationSeconds,
	})
	return false, nil
}

// chunkOutcome is one chunk's fetch result, collected by dispatchBatches'
// fan-out before payloads are applied.
type chunkOutcome struct {
	chunk []string
	res   batch.Result
	fatal bool
}

// dispatchBatches chunks pids via the partitioner and fans the chunks' HTTP
// fetches out across goroutines — naturally bounded by the rate
// controller's person-phase concurrency semaphore inside
// Partitioner.DispatchChunk, so this never issues more than
// max_concurrent_person_requests requests at once — then applies each
// chunk's payload to the store through the person processor sequentially,
// since the Store is a single logical writer. A chunk that exhausts its
// retries or permanently fails is logged and left in ProcessingSet;
// end_iteration returns it to the frontier for the next hop. An auth or
// store-integrity failure cancels the remaining in-flight fetches and
// aborts the whole run.
func (e *Engine) dispatchBatches(ctx context.Context, iteration int, pids []string, log *logger.Logger) error {
	chunks := e.partitioner.Chunk(pids)
	maxRetries := e.controller.MaxRetries()

	dispatchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make([]chunkOutcome, len(chunks))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		fatalErr error
	)

	for i, chunk := range chunks {
		if stop, err := e.quiesceIfRequested(ctx); stop {
			cancel()
			wg.Wait()
			return err
		}
		if i > 0 && e.cfg.InterBatchDelay > 0 {
			select {
			case <-time.After(e.cfg.InterBatchDelay):
			case <-ctx.Done():
				cancel()
				wg.Wait()
				return crawlerr.New(crawlerr.KindCancelled, "engine.dispatch_batches", ctx.Err())
			}
		}

		wg.Add(1)
		go func(i int, chunk []string) {
			defer wg.Done()
			res, fatal, err := e.fetchChunkWithRetry(dispatchCtx, chunk, maxRetries, log)
			if err != nil {
				mu.Lock()
				if fatalErr == nil {
					fatalErr = err
				}
				mu.Unlock()
				cancel()
				return
			}
			outcomes[i] = chunkOutcome{chunk: chunk, res: res, fatal: fatal}
		}(i, chunk)
	}
	wg.Wait()

	if fatalErr != nil {
		return fatalErr
	}

	for _, outcome := range outcomes {
		if outcome.fatal {
			continue
		}

		payload, perr := person.ParsePayload(outcome.res.Body)
		if perr != nil {
			log.Warnf("batch of %d pids returned an unparseable payload: %v", len(outcome.chunk), perr)
			continue
		}
		if err := e.processor.Process(ctx, iteration, payload); err != nil {
			if crawlerr.Is(err, crawlerr.KindCorruptPayload) {
				log.Warnf("batch of %d pids had a corrupt relationship record: %v", len(outcome.chunk), err)
				continue
			}
			return err
		}
		e.emit("person_batch", map[string]any{
			"iteration": iteration,
			"pids":      len(outcome.chunk),
		})
	}
	return nil
}

// fetchChunkWithRetry retries a single chunk on Throttled/Transient failure
// up to maxRetries, reporting the outcome to the rate controller each time.
// fatal reports a chunk that was given up on (not retried further, nothing
// to apply) without it being a whole-run-ending error.
func (e *Engine) fetchChunkWithRetry(ctx context.Context, chunk []string, maxRetries int, log *logger.Logger) (batch.Result, bool, error) {
	var res batch.Result
	for attempt := 0; ; attempt++ {
		if stop, err := e.abortChunkRetry(ctx); stop {
			return batch.Result{}, true, err
		}

		res = e.partitioner.DispatchChunk(ctx, chunk)
		if res.Err == nil {
			return res, false, nil
		}

		kind, _ := crawlerr.KindOf(res.Err)
		switch kind {
		case crawlerr.KindAuthExpired, crawlerr.KindStoreIntegrity:
			return batch.Result{}, false, res.Err
		case crawlerr.KindCancelled:
			return batch.Result{}, true, res.Err
		case crawlerr.KindThrottled, crawlerr.KindTransient:
			if attempt >= maxRetries {
				log.Warnf("chunk of %d pids exhausted %d retries: %v", len(chunk), maxRetries, res.Err)
				return batch.Result{}, true, nil
			}
			// Acquire's own backoff/token wait on the next loop iteration
			// supplies the retry delay; nothing further to sleep here.
			continue
		default:
			log.Warnf("chunk of %d pids permanently failed: %v", len(chunk), res.Err)
			return batch.Result{}, true, nil
		}
	}
}
