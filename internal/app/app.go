// Package app wires config, logging, storage, transport, router and the
// fan-out scheduler into one process.
package app

import (
	"context"
	"time"

	"coinbot/internal/config"
	"coinbot/internal/market"
	"coinbot/internal/notify"
	"coinbot/internal/router"
	rtsup "coinbot/internal/runtime/supervisor"
	"coinbot/internal/settings"
	kit "coinbot/internal/transport"
	telegram "coinbot/internal/transport/telegram"
	logx "coinbot/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service

	store   *settings.SQLStore
	adapter *telegram.Adapter
	rtr     *router.Router
	sched   *notify.Scheduler

	// cur is the last applied config, kept for diffing reload events.
	cur *config.Config

	updates chan kit.Update
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logs, log := logx.New(logCfg(cfg))
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(logs.Logger().With(logx.String("comp", "config")))

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, logs.Logger().With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	busyTimeout, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return nil, err
	}
	store, err := settings.Open(settings.Options{
		Path:               cfg.Storage.Path,
		BusyTimeout:        busyTimeout,
		DefaultResultCount: cfg.Scheduler.DefaultResultCount,
		DefaultHours:       cfg.Scheduler.DefaultHours,
	}, logs.Logger().With(logx.String("comp", "settings")))
	if err != nil {
		return nil, err
	}

	marketTimeout, err := config.ParseDurationOrDefault("market.timeout", cfg.Market.Timeout, 15*time.Second)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	client := market.NewClient(market.Config{
		BaseURL: cfg.Market.BaseURL,
		APIKey:  cfg.Market.APIKey,
		Timeout: marketTimeout,
	})

	rtr := router.New(store, client, adapter, logs.Logger().With(logx.String("comp", "router")))
	sched := notify.New(notifyCfg(cfg), store, client, adapter, logs.Logger().With(logx.String("comp", "notify")))

	return &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logs,
		store:   store,
		adapter: adapter,
		rtr:     rtr,
		sched:   sched,
		cur:     cfg,
		updates: make(chan kit.Update, 128),
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log))
	runCtx := a.sup.Context()

	if err := a.adapter.Start(runCtx, a.updates); err != nil {
		return err
	}
	a.rtr.RegisterMenu(runCtx)

	a.sup.Go0("router.run", func(c context.Context) {
		a.rtr.Run(c, a.updates)
	})

	if err := a.sched.Start(runCtx); err != nil {
		return err
	}

	a.sup.Go0("config.watch", func(c context.Context) {
		_ = a.cfgm.Watch(c)
	})
	sub := a.cfgm.Subscribe(1)
	a.sup.Go0("config.apply", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyConfig(cfg)
			}
		}
	})

	a.log.Info("started")
	return nil
}

// applyConfig hot-applies what can change at runtime: logging sinks/level and
// the scheduler delivery rate. Everything else needs a restart; those diffs
// are logged and ignored.
func (a *App) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	prev := a.cur
	a.cur = cfg

	a.logs.Apply(logCfg(cfg))
	a.sched.Apply(notifyCfg(cfg))
	a.log.Info("config applied", logx.String("level", cfg.Logging.Level), logx.Int("rate_per_sec", cfg.Scheduler.RatePerSec))

	for _, field := range restartOnlyDiffs(prev, cfg) {
		a.log.Warn("config change needs a restart", logx.String("field", field))
	}
}

// restartOnlyDiffs names the changed fields that applyConfig cannot pick up
// while the process is running.
func restartOnlyDiffs(prev, next *config.Config) []string {
	if prev == nil || next == nil {
		return nil
	}
	var fields []string
	if prev.Telegram != next.Telegram {
		fields = append(fields, "telegram")
	}
	if prev.Market != next.Market {
		fields = append(fields, "market")
	}
	if prev.Storage != next.Storage {
		fields = append(fields, "storage")
	}
	if prev.Scheduler.Enabled != next.Scheduler.Enabled || prev.Scheduler.Timezone != next.Scheduler.Timezone {
		fields = append(fields, "scheduler")
	}
	if prev.Scheduler.DefaultResultCount != next.Scheduler.DefaultResultCount ||
		!equalHours(prev.Scheduler.DefaultHours, next.Scheduler.DefaultHours) {
		fields = append(fields, "scheduler defaults")
	}
	return fields
}

func equalHours(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (a *App) Stop(ctx context.Context) error {
	a.log.Info("stopping")

	a.sched.Stop(ctx)
	_ = a.adapter.Stop(ctx)

	if a.sup != nil {
		a.sup.Cancel()
		wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_ = a.sup.Wait(wctx)
		cancel()
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn("store close failed", logx.Err(err))
	}
	a.log.Info("stopped")
	return a.logs.Close()
}

func notifyCfg(cfg *config.Config) notify.Config {
	return notify.Config{
		Enabled:    cfg.Scheduler.Enabled,
		Timezone:   cfg.Scheduler.Timezone,
		RatePerSec: cfg.Scheduler.RatePerSec,
	}
}

func logCfg(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}
