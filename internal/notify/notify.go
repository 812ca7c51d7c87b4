// Package notify implements the hourly fan-out: one shared ranking fetch per
// hour boundary, delivered per-recipient according to stored schedules.
package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"coinbot/internal/market"
	"coinbot/internal/settings"
	kit "coinbot/internal/transport"
	logx "coinbot/pkg/logx"
)

type Config struct {
	Enabled    bool
	Timezone   string // "", "Local", or an IANA zone name
	RatePerSec int    // delivery rate limit; <=0 means 20
}

type Scheduler struct {
	cfg     Config
	store   settings.Store
	fetch   market.Fetcher
	adapter kit.Adapter
	log     logx.Logger

	limiter *rate.Limiter

	mu sync.Mutex
	c  *cron.Cron
}

func New(cfg Config, store settings.Store, fetch market.Fetcher, adapter kit.Adapter, log logx.Logger) *Scheduler {
	if log.IsZero() {
		log = logx.Nop()
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 20
	}
	return &Scheduler{
		cfg:     cfg,
		store:   store,
		fetch:   fetch,
		adapter: adapter,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// Apply hot-applies the parts of cfg that can change while running. The
// delivery rate takes effect immediately; enabled and timezone changes need
// a restart and are logged when ignored.
func (s *Scheduler) Apply(cfg Config) {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 20
	}
	s.limiter.SetLimit(rate.Limit(rps))
	s.limiter.SetBurst(rps)

	s.mu.Lock()
	restartNeeded := cfg.Enabled != s.cfg.Enabled || cfg.Timezone != s.cfg.Timezone
	s.cfg.RatePerSec = cfg.RatePerSec
	s.mu.Unlock()

	if restartNeeded {
		s.log.Warn("scheduler enabled/timezone change needs a restart",
			logx.Bool("enabled", cfg.Enabled), logx.String("tz", cfg.Timezone))
	}
}

// Start registers the top-of-hour trigger and begins waiting for the next
// boundary. Missed boundaries are not backfilled; cron fires at most once per
// wakeup.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.log.Info("scheduler disabled")
		return nil
	}

	loc, err := s.location()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc("0 * * * *", func() {
		s.fire(ctx, time.Now().In(loc))
	}); err != nil {
		return err
	}
	c.Start()
	s.c = c
	s.log.Info("scheduler started", logx.String("tz", loc.String()))
	return nil
}

// Stop stops the trigger and waits for an in-flight firing cycle to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		// best-effort
	}
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) location() (*time.Location, error) {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}

// fire runs one batch cycle: a single fetch shared by every due recipient,
// with per-recipient delivery failures isolated from the rest of the batch.
func (s *Scheduler) fire(ctx context.Context, now time.Time) {
	hour := now.Hour()
	log := s.log.With(logx.Int("hour", hour))
	start := time.Now()

	due, err := s.store.ListDue(ctx, hour)
	if err != nil {
		log.Error("listing due recipients failed", logx.Err(err))
		return
	}
	if len(due) == 0 {
		log.Debug("no recipients due")
		return
	}

	// One fetch sized to the largest preference in the batch, so nobody
	// silently receives fewer results than they asked for.
	limit := 1
	for _, d := range due {
		if d.ResultCount > limit {
			limit = d.ResultCount
		}
	}

	coins, err := s.fetch.FetchTop(ctx, limit)
	if err != nil {
		var fe *market.FetchError
		if errors.As(err, &fe) {
			log.Error("ranking fetch failed", logx.Int("status", fe.Status), logx.String("reason", fe.Reason), logx.String("snippet", fe.Snippet))
		} else {
			log.Error("ranking fetch failed", logx.Err(err))
		}
		s.deliverAll(ctx, due, func(settings.DueRecipient) string { return market.ErrorNotice() })
		return
	}

	sent := s.deliverAll(ctx, due, func(d settings.DueRecipient) string {
		n := d.ResultCount
		if n > len(coins) {
			n = len(coins)
		}
		return market.FormatListing(coins[:n], market.ListingHeader())
	})
	log.Info("batch delivered", logx.Int("due", len(due)), logx.Int("sent", sent), logx.Duration("took", time.Since(start)))
}

// deliverAll sends render(d) to each due recipient. A failure for one
// recipient is logged and never blocks the rest.
func (s *Scheduler) deliverAll(ctx context.Context, due []settings.DueRecipient, render func(settings.DueRecipient) string) int {
	sent := 0
	for _, d := range due {
		if ctx.Err() != nil {
			s.log.Warn("batch aborted", logx.Err(ctx.Err()), logx.Int("sent", sent), logx.Int("due", len(due)))
			return sent
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return sent
		}
		text := render(d)
		if _, err := s.adapter.SendText(ctx, kit.ChatTarget{ChatID: d.ID}, text, &kit.SendOptions{ParseMode: "HTML", DisablePreview: true}); err != nil {
			s.log.Warn("delivery failed", logx.Int64("recipient", d.ID), logx.Err(err))
			continue
		}
		sent++
	}
	return sent
}
