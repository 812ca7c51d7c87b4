// Package router maps inbound commands and callbacks to settings mutations
// and on-demand deliveries. It holds no state of its own; every fault is
// converted to a user-visible message or a log line at this boundary.
package router

import (
	"context"
	"errors"

	"coinbot/internal/market"
	"coinbot/internal/settings"
	kit "coinbot/internal/transport"
	logx "coinbot/pkg/logx"
	"coinbot/pkg/tgui"
)

type Router struct {
	store   settings.Store
	fetch   market.Fetcher
	adapter kit.Adapter
	log     logx.Logger
}

func New(store settings.Store, fetch market.Fetcher, adapter kit.Adapter, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{store: store, fetch: fetch, adapter: adapter, log: log}
}

// RegisterMenu publishes the bot command menu if the adapter supports it.
func (r *Router) RegisterMenu(ctx context.Context) {
	mu, ok := r.adapter.(kit.CommandMenuUpdater)
	if !ok {
		return
	}
	cmds := []kit.BotCommand{
		{Command: "start", Description: "Start the bot"},
		{Command: "top", Description: "Show top coins by market cap"},
		{Command: "settings", Description: "Notification and coin settings"},
	}
	if err := mu.UpdateMenuCommands(ctx, cmds); err != nil {
		r.log.Warn("command menu update failed", logx.Err(err))
	}
}

// Run consumes updates until ctx is done or the channel closes.
func (r *Router) Run(ctx context.Context, updates <-chan kit.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case up, ok := <-updates:
			if !ok {
				return
			}
			switch up.Kind {
			case kit.UpdateMessage:
				if up.Message != nil {
					r.handleMessage(ctx, up.Message)
				}
			case kit.UpdateCallback:
				if up.Callback != nil {
					r.handleCallback(ctx, up.Callback)
				}
			}
		}
	}
}

func (r *Router) handleMessage(ctx context.Context, m *kit.Message) {
	cmd := Parse(m.Text)
	log := r.log.With(logx.Int64("recipient", m.FromID))

	if cmd.Kind == KindUnknown {
		log.Debug("no command handler", logx.String("text", m.Text))
		return
	}

	// Every interaction may be the first one; creation is idempotent.
	if err := r.store.EnsureRecipient(ctx, m.FromID); err != nil {
		log.Error("ensure recipient failed", logx.Err(err))
		r.reply(ctx, m.ChatID, failureNotice)
		return
	}

	switch cmd.Kind {
	case KindStart:
		r.reply(ctx, m.ChatID, greeting(m.FirstName))

	case KindTop:
		r.handleTop(ctx, m, cmd, log)

	case KindSettings:
		menu := tgui.NewInline().
			Row(tgui.Btn("Notifications", cbNotify), tgui.Btn("Coins", cbCoins)).
			Markup()
		r.send(ctx, m.ChatID, settingsTitle(), menu)

	case KindEditSchedule:
		if cmd.Invalid {
			r.reply(ctx, m.ChatID, scheduleUsageError())
			return
		}
		if err := r.store.ReplaceSchedule(ctx, m.FromID, cmd.Hours); err != nil {
			var ve *settings.ValidationError
			if errors.As(err, &ve) {
				r.reply(ctx, m.ChatID, scheduleUsageError())
				return
			}
			log.Error("replace schedule failed", logx.Err(err))
			r.reply(ctx, m.ChatID, scheduleUsageError())
			return
		}
		r.reply(ctx, m.ChatID, successNotice)

	case KindSetCount:
		if cmd.Invalid {
			r.reply(ctx, m.ChatID, failureNotice)
			return
		}
		if err := r.store.SetResultCount(ctx, m.FromID, cmd.N); err != nil {
			if !isValidation(err) {
				log.Error("set result count failed", logx.Err(err))
			}
			r.reply(ctx, m.ChatID, failureNotice)
			return
		}
		r.reply(ctx, m.ChatID, successNotice)
	}
}

func (r *Router) handleTop(ctx context.Context, m *kit.Message, cmd Command, log logx.Logger) {
	if cmd.Invalid {
		r.reply(ctx, m.ChatID, topUsageWarning())
		return
	}

	n := cmd.N
	if !cmd.HasN {
		stored, err := r.store.ResultCount(ctx, m.FromID)
		if err != nil {
			log.Error("result count lookup failed", logx.Err(err))
			r.reply(ctx, m.ChatID, failureNotice)
			return
		}
		n = stored
	}

	coins, err := r.fetch.FetchTop(ctx, n)
	if err != nil {
		var fe *market.FetchError
		if errors.As(err, &fe) {
			log.Error("ranking fetch failed", logx.Int("status", fe.Status), logx.String("reason", fe.Reason), logx.String("snippet", fe.Snippet))
		} else {
			log.Error("ranking fetch failed", logx.Err(err))
		}
		r.reply(ctx, m.ChatID, market.ErrorNotice())
		return
	}
	r.reply(ctx, m.ChatID, market.FormatListing(coins, market.ListingHeader()))
}

func (r *Router) handleCallback(ctx context.Context, cb *kit.Callback) {
	log := r.log.With(logx.Int64("recipient", cb.FromID), logx.String("callback", cb.Data))

	switch cb.Data {
	case cbNotify:
		hours, err := r.store.Schedule(ctx, cb.FromID)
		if err != nil {
			r.callbackError(ctx, cb, log, err)
			return
		}
		markup := tgui.NewInline().Row(tgui.Btn("Edit Schedule", cbEditSchedule)).Markup()
		r.edit(ctx, cb, scheduleView(market.FormatSchedule(hours)), markup)

	case cbCoins:
		count, err := r.store.ResultCount(ctx, cb.FromID)
		if err != nil {
			r.callbackError(ctx, cb, log, err)
			return
		}
		r.edit(ctx, cb, coinsView(count), nil)

	case cbEditSchedule:
		r.edit(ctx, cb, scheduleEditHelp(), nil)

	default:
		// Intentionally silent: unknown callback types are logged only.
		log.Debug("no callback handler")
	}
}

// ---- send helpers ----

func (r *Router) reply(ctx context.Context, chatID int64, text string) {
	r.send(ctx, chatID, text, nil)
}

func (r *Router) send(ctx context.Context, chatID int64, text string, markup any) {
	opt := &kit.SendOptions{ParseMode: "HTML", DisablePreview: true, ReplyMarkup: markup}
	if _, err := r.adapter.SendText(ctx, kit.ChatTarget{ChatID: chatID}, text, opt); err != nil {
		r.log.Warn("send failed", logx.Int64("chat", chatID), logx.Err(err))
	}
}

func (r *Router) edit(ctx context.Context, cb *kit.Callback, text string, markup any) {
	ref := kit.MessageRef{ChatID: cb.ChatID, MessageID: cb.MessageID}
	opt := &kit.SendOptions{ParseMode: "HTML", DisablePreview: true, ReplyMarkup: markup}
	if err := r.adapter.EditText(ctx, ref, text, opt); err != nil {
		r.log.Warn("edit failed", logx.Int64("chat", cb.ChatID), logx.Err(err))
	}
	// Best-effort: clear the loading state on the client.
	_ = r.adapter.AnswerCallback(ctx, cb.ID, "")
}

func (r *Router) callbackError(ctx context.Context, cb *kit.Callback, log logx.Logger, err error) {
	log.Error("callback failed", logx.Err(err))
	if aerr := r.adapter.AnswerCallback(ctx, cb.ID, "⚠️error⚠️\nPlease, contact developer"); aerr != nil {
		log.Warn("callback answer failed", logx.Err(aerr))
	}
}

func isValidation(err error) bool {
	var ve *settings.ValidationError
	return errors.As(err, &ve)
}
