// Package control is the run's control plane (C8): it registers OS signal
// handlers, polls an optional pause-file for the pause/resume/stop
// protocol, drives scheduled checkpoints, serializes concurrent runs
// against the same database with a job lock, and forwards the iteration
// engine's lifecycle events to a metrics sink. Grounded on the teacher's
// SIGINT/SIGTERM context-cancellation handler, generalized to also honor a
// cooperative pause in addition to stop.
package control

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/familysearch/crawlengine/internal/config"
	"github.com/familysearch/crawlengine/internal/engine"
	"github.com/familysearch/crawlengine/internal/logger"
	"github.com/familysearch/crawlengine/internal/store"
)

// Plane wires an Engine's lifecycle to the outside world for one run.
type Plane struct {
	eng     *engine.Engine
	signal  *engine.Signal
	store   *store.Store
	cfg     config.ControlConfig
	logger  *logger.Logger
	metrics *MetricsSink
}

// New builds a Plane. metrics may be nil, in which case a sink is built from
// cfg.MetricsFile (log-only when that path is empty).
func New(eng *engine.Engine, sig *engine.Signal, s *store.Store, cfg config.ControlConfig, log *logger.Logger, metrics *MetricsSink) *Plane {
	if log == nil {
		log = logger.NewDefault()
	}
	if metrics == nil {
		metrics = NewMetricsSink(cfg.MetricsFile, log)
	}
	return &Plane{eng: eng, signal: sig, store: s, cfg: cfg, logger: log, metrics: metrics}
}

// Run acquires the named job lock, starts the signal/pause-file/checkpoint
// goroutines, drives the engine to completion, and tears everything down.
// lockName identifies the run for the purposes of the single-writer job
// lock (typically the store's basename); holder is an identity string such
// as "host:pid" recorded on the lock row.
func (p *Plane) Run(ctx context.Context, lockName, holder string, lockTimeout time.Duration) error {
	lock := p.store.NewLock(lockName, holder)
	return lock.WithLock(ctx, lockTimeout, func() error {
		return p.runLocked(ctx)
	})
}

func (p *Plane) runLocked(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	osSig := make(chan os.Signal, 1)
	pauseSig := make(chan os.Signal, 1)
	signal.Notify(osSig, syscall.SIGINT, syscall.SIGTERM)
	signal.Notify(pauseSig, syscall.SIGUSR1)
	defer signal.Stop(osSig)
	defer signal.Stop(pauseSig)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.watchSignals(runCtx, cancel, osSig, pauseSig)
	}()

	if p.cfg.PauseFile != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.pollPauseFile(runCtx)
		}()
	}

	if p.cfg.CheckpointIntervalSeconds > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.scheduleCheckpoints(runCtx)
		}()
	}

	err := p.eng.Run(runCtx)
	cancel()
	wg.Wait()
	return err
}

// watchSignals requests a cooperative stop on INT/TERM, arming a hard
// cancellation after shutdown_grace_seconds if the engine has not quiesced
// by then, and toggles pause/resume on the dedicated user signal.
func (p *Plane) watchSignals(ctx context.Context, hardCancel context.CancelFunc, osSig, pauseSig <-chan os.Signal) {
	grace := p.cfg.ShutdownGrace()
	if grace <= 0 {
		grace = 30 * time.Second
	}

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-osSig:
			if !ok {
				return
			}
			p.logger.Warnf("received %s, requesting graceful stop (grace period %s)", sig, grace)
			p.signal.RequestStop()
			go func() {
				select {
				case <-time.After(grace):
					p.logger.Warnf("shutdown grace period elapsed, forcing cancellation")
					hardCancel()
				case <-ctx.Done():
				}
			}()
		case <-pauseSig:
			if p.signal.IsPaused() {
				p.logger.Infof("pause signal received again, resuming")
				p.signal.Resume()
			} else {
				p.logger.Infof("pause signal received, pausing at next checkpoint")
				p.signal.Pause()
			}
		}
	}
}

// pollPauseFile checks cfg.PauseFile every PauseFilePollInterval (default
// 1s) and applies pause/resume/stop commands found in its contents.
// Malformed content is ignored with a warning rather than treated as an
// error.
func (p *Plane) pollPauseFile(ctx context.Context) {
	interval := p.cfg.PauseFilePollInterval()
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.applyPauseFile()
		}
	}
}

func (p *Plane) applyPauseFile() {
	data, err := os.ReadFile(p.cfg.PauseFile)
	if err != nil {
		if !os.IsNotExist(err) {
			p.logger.Warnf("failed to read pause file %q: %v", p.cfg.PauseFile, err)
		}
		return
	}

	switch strings.ToLower(strings.TrimSpace(string(data))) {
	case "":
		// No command written yet; nothing to do.
	case "pause":
		if !p.signal.IsPaused() {
			p.logger.Infof("pause file requested pause")
			p.signal.Pause()
		}
	case "resume":
		if p.signal.IsPaused() {
			p.logger.Infof("pause file requested resume")
			p.signal.Resume()
		}
	case "stop":
		p.logger.Infof("pause file requested stop")
		p.signal.RequestStop()
	default:
		p.logger.Warnf("ignoring malformed pause file content in %q", p.cfg.PauseFile)
	}
}

// scheduleCheckpoints forces a Store WAL checkpoint every
// checkpoint_interval_seconds, in addition to the one every iteration close
// already commits, and emits a "checkpoint" metrics event each time.
func (p *Plane) scheduleCheckpoints(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.CheckpointInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.store.Checkpoint(ctx); err != nil {
				p.logger.Warnf("scheduled checkpoint failed: %v", err)
				continue
			}
			status, err := p.store.GetStatus(ctx)
			if err != nil {
				continue
			}
			p.metrics.Emit("checkpoint", map[string]any{
				"frontier_depth":   status.FrontierDepth,
				"processing_depth": status.ProcessingDepth,
				"vertex_count":     status.VertexCount,
				"edge_count":       status.EdgeCount,
				"last_iteration":   status.LastIteration,
			})
		}
	}
}

// Metrics returns the underlying sink, so callers (e.g. the CLI) can wire
// it as the Engine's event callback before constructing the Plane.
func (p *Plane) Metrics() *MetricsSink { return p.metrics }
