package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/familysearch/crawlengine/internal/batch"
	"github.com/familysearch/crawlengine/internal/config"
	"github.com/familysearch/crawlengine/internal/control"
	"github.com/familysearch/crawlengine/internal/engine"
	"github.com/familysearch/crawlengine/internal/httpsession"
	"github.com/familysearch/crawlengine/internal/logger"
	"github.com/familysearch/crawlengine/internal/person"
	"github.com/familysearch/crawlengine/internal/ratecontrol"
	"github.com/familysearch/crawlengine/internal/resolver"
	"github.com/familysearch/crawlengine/internal/store"
)

// lockTimeout bounds how long a run waits for another holder to release the
// job lock before giving up.
const lockTimeout = 10 * time.Second

// runCrawl wires config, store, logger, rate controller, HTTP session,
// batch partitioner, person processor, relationship resolver, iteration
// engine, and control plane together, then drives one run to completion.
// seeds is only honored when fresh is true; resume always ignores it.
func runCrawl(ctx context.Context, seeds []string, fresh bool) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat, overrides.MaxHops, overrides.RPS, overrides.PauseFile)
	if overrides.MetricsFile != "" {
		cfg.Control.MetricsFile = overrides.MetricsFile
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync()

	st, err := store.Open(ctx, cfg.Store.OutDir, cfg.Store.Basename, fresh, log)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	if fresh {
		if err := st.SeedFrontierIfEmpty(ctx, seeds); err != nil {
			return fmt.Errorf("seeding frontier: %w", err)
		}
	}

	controller := ratecontrol.New(cfg.Throttle, log)
	session := httpsession.New(cfg.API.SessionToken, cfg.Throttle.RequestTimeout())

	partitioner := batch.New(session, controller, cfg.API.PersonsURLTemplate, cfg.Processing.PersonsPerRequest, log)
	processor := person.New(st, cfg.Processing.CheckpointEveryN, log)
	res := resolver.New(st, session, controller, cfg.API.RelationshipURLTemplate, log)

	sig := engine.NewSignal()
	metrics := control.NewMetricsSink(cfg.Control.MetricsFile, log)
	defer metrics.Close()

	engCfg := engine.Config{
		MaxHops:         cfg.MaxHops,
		DrainLimit:      cfg.Processing.MaxBatchDrain,
		InterBatchDelay: time.Duration(cfg.Processing.InterBatchDelay * float64(time.Second)),
	}
	eng := engine.New(st, partitioner, processor, res, controller, engCfg, sig, log, metrics.Emit)

	plane := control.New(eng, sig, st, cfg.Control, log, metrics)

	holder, err := runHolder()
	if err != nil {
		return fmt.Errorf("determining run holder identity: %w", err)
	}

	metrics.Emit("run_start", map[string]any{
		"basename": cfg.Store.Basename,
		"max_hops": cfg.MaxHops,
		"fresh":    fresh,
	})
	err = plane.Run(ctx, cfg.Store.Basename, holder, lockTimeout)
	metrics.Emit("run_complete", map[string]any{"error": errString(err)})
	return err
}

func runHolder() (string, error) {
	host, err := os.Hostname()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", host, os.Getpid()), nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
