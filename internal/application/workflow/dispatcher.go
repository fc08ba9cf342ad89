package workflow

import (
	"context"
	"errors"

	"github.com/hucksarn/movieflixdash/internal/domain/mediarequest"
	"github.com/hucksarn/movieflixdash/internal/domain/settings"
	"github.com/hucksarn/movieflixdash/internal/domain/subscription"
	"github.com/hucksarn/movieflixdash/internal/domain/workflow"
	"github.com/hucksarn/movieflixdash/internal/infrastructure/downloadmanager"
	"github.com/hucksarn/movieflixdash/internal/infrastructure/store"
)

// Sweep runs one notification pass: pending payments, pending media
// requests, newly expired subscriptions, and a download-progress poll. Each
// section fails independently.
func (e *Engine) Sweep(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := e.docs.Settings()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.log.Debug("no settings document yet, skipping sweep")
			return nil
		}
		return err
	}
	if len(cfg.AdminChatIDs) == 0 {
		e.log.Debug("no admin chats configured, skipping sweep")
		return nil
	}

	state, err := e.docs.BotState()
	if err != nil {
		return err
	}

	e.sweepPayments(ctx, cfg, state)
	e.sweepMediaRequests(ctx, cfg, state)
	e.sweepExpired(ctx, cfg, state)
	e.pollAvailability(ctx)

	e.saveState(state)
	return nil
}

func (e *Engine) sweepPayments(_ context.Context, cfg *settings.Settings, state *workflow.State) {
	subs, err := e.docs.Subscriptions()
	if err != nil {
		e.log.Errorw("failed to load subscriptions", "error", err)
		return
	}

	for _, sub := range subscription.LatestPendingPerUser(subs) {
		if state.NotifiedPayments[sub.ID] {
			continue
		}
		text := paymentPendingMessage(sub, cfg.PublicBaseURL)
		keyboard := approveRejectKeyboard(ApprovePayment{ID: sub.ID}, RejectPayment{ID: sub.ID})

		var refs []workflow.MessageRef
		for _, chatID := range cfg.AdminChatIDs {
			if sub.SlipPath != "" {
				msg, err := e.chat.SendDocumentFile(chatID, sub.SlipPath, text, keyboard)
				if err == nil {
					refs = append(refs, workflow.MessageRef{ChatID: chatID, MessageID: int(msg.MessageID), Caption: true})
					continue
				}
				e.log.Warnw("slip upload failed, falling back to text", "subscription_id", sub.ID, "error", err)
			}
			msg, err := e.chat.SendMessageWithInlineKeyboard(chatID, text, keyboard)
			if err != nil {
				e.log.Warnw("payment notification failed", "subscription_id", sub.ID, "chat_id", chatID, "error", err)
				continue
			}
			refs = append(refs, workflow.MessageRef{ChatID: chatID, MessageID: int(msg.MessageID)})
		}

		// only dedup after at least one delivery; otherwise retry next sweep
		if len(refs) > 0 {
			state.NotifiedPayments[sub.ID] = true
			state.PaymentMessages[sub.ID] = refs
			e.log.Infow("payment notification sent", "subscription_id", sub.ID, "deliveries", len(refs))
		}
	}
}

func (e *Engine) sweepMediaRequests(_ context.Context, cfg *settings.Settings, state *workflow.State) {
	reqs, err := e.docs.MediaRequests()
	if err != nil {
		e.log.Errorw("failed to load media requests", "error", err)
		return
	}

	for _, req := range mediarequest.LatestPendingPerUser(reqs) {
		if state.NotifiedMedia[req.ID] {
			continue
		}
		text := mediaPendingMessage(req, cfg.PublicBaseURL)
		keyboard := approveRejectKeyboard(ApproveMedia{ID: req.ID}, RejectMedia{ID: req.ID})

		var refs []workflow.MessageRef
		for _, chatID := range cfg.AdminChatIDs {
			if req.PosterURL != "" {
				msg, err := e.chat.SendPhoto(chatID, req.PosterURL, text, keyboard)
				if err == nil {
					refs = append(refs, workflow.MessageRef{ChatID: chatID, MessageID: int(msg.MessageID), Caption: true})
					continue
				}
				e.log.Warnw("poster send failed, falling back to text", "request_id", req.ID, "error", err)
			}
			msg, err := e.chat.SendMessageWithInlineKeyboard(chatID, text, keyboard)
			if err != nil {
				e.log.Warnw("media notification failed", "request_id", req.ID, "chat_id", chatID, "error", err)
				continue
			}
			refs = append(refs, workflow.MessageRef{ChatID: chatID, MessageID: int(msg.MessageID)})
		}

		if len(refs) > 0 {
			state.NotifiedMedia[req.ID] = true
			state.MediaMessages[req.ID] = refs
			e.log.Infow("media notification sent", "request_id", req.ID, "deliveries", len(refs))
		}
	}
}

func (e *Engine) sweepExpired(_ context.Context, cfg *settings.Settings, state *workflow.State) {
	subs, err := e.docs.Subscriptions()
	if err != nil {
		e.log.Errorw("failed to load subscriptions", "error", err)
		return
	}

	// only the authoritative record per user counts: a renewed user still
	// has the old approved record on file, but is not expired
	now := e.now()
	for _, sub := range subscription.AuthoritativePerUser(subs) {
		if !sub.IsExpired(now) || state.NotifiedExpired[sub.ID] {
			continue
		}
		text := expiredMessage(sub)

		var delivered bool
		for _, chatID := range cfg.AdminChatIDs {
			if _, err := e.chat.SendMessage(chatID, text); err != nil {
				e.log.Warnw("expiry notification failed", "subscription_id", sub.ID, "chat_id", chatID, "error", err)
				continue
			}
			delivered = true
		}
		if delivered {
			state.NotifiedExpired[sub.ID] = true
			e.log.Infow("expiry notification sent", "subscription_id", sub.ID, "username", sub.Username)
		}
	}
}

// pollAvailability checks approved requests against the download managers
// and flips them to available when the content has landed, updating the
// progress figure the dashboard shows along the way.
func (e *Engine) pollAvailability(ctx context.Context) {
	reqs, err := e.docs.MediaRequests()
	if err != nil {
		e.log.Errorw("failed to load media requests", "error", err)
		return
	}

	now := e.now()
	var dirty bool
	for i := range reqs {
		req := &reqs[i]
		if req.Status != mediarequest.StatusApproved {
			continue
		}
		mgr := e.managerFor(req.MediaType)
		if mgr == nil || !mgr.Configured() {
			continue
		}

		var item *downloadmanager.Item
		if req.MediaType == mediarequest.TypeTV {
			item, err = mgr.LookupSeriesByIMDB(ctx, req.IMDBID)
			if err != nil {
				e.log.Warnw("series lookup failed", "request_id", req.ID, "error", err)
				continue
			}
		} else {
			item, err = mgr.LookupMovieByTMDB(ctx, req.TMDBID)
			if err != nil {
				e.log.Warnw("movie lookup failed", "request_id", req.ID, "error", err)
				continue
			}
		}
		if item == nil {
			continue
		}

		if item.Complete {
			req.Status = mediarequest.StatusAvailable
			req.AvailableAt = &now
			req.UpdatedAt = now
			full := 100.0
			req.DownloadProgress = &full
			dirty = true
			e.log.Infow("media request available", "request_id", req.ID, "title", req.Title)
			continue
		}

		if req.MediaType == mediarequest.TypeMovie {
			progress, active, err := mgr.QueueProgress(ctx, item.ID)
			if err != nil {
				e.log.Warnw("queue progress failed", "request_id", req.ID, "error", err)
				continue
			}
			if active && (req.DownloadProgress == nil || *req.DownloadProgress != progress) {
				p := progress
				req.DownloadProgress = &p
				req.UpdatedAt = now
				dirty = true
			}
		}
	}

	if dirty {
		if err := e.docs.SaveMediaRequests(reqs); err != nil {
			e.log.Errorw("failed to persist availability updates", "error", err)
		}
	}
}
