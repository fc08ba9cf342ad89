package telegram

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hucksarn/movieflixdash/internal/shared/logger"
)

// OffsetStore persists the long-poll cursor so a restart resumes after the
// last processed update instead of replaying history.
type OffsetStore interface {
	LastUpdateID() (int64, error)
	SetLastUpdateID(id int64) error
}

// UpdateHandler processes one update. Errors are logged; they never stop the
// poll loop.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update Update) error
}

// PollingService long-polls getUpdates and hands updates to the handler one
// at a time. Updates are strictly ordered: the next one is not fetched until
// the current batch is fully processed.
type PollingService struct {
	bot         *BotService
	handler     UpdateHandler
	offsets     OffsetStore
	pollTimeout int
	log         logger.Interface
}

// NewPollingService creates a polling service. pollTimeout is the
// server-side long-poll timeout in seconds.
func NewPollingService(bot *BotService, handler UpdateHandler, offsets OffsetStore, pollTimeout int, log logger.Interface) *PollingService {
	if pollTimeout <= 0 {
		pollTimeout = 5
	}
	return &PollingService{
		bot:         bot,
		handler:     handler,
		offsets:     offsets,
		pollTimeout: pollTimeout,
		log:         log.Named("polling"),
	}
}

// Run polls until the context is cancelled.
func (p *PollingService) Run(ctx context.Context) {
	offset, err := p.offsets.LastUpdateID()
	if err != nil {
		p.log.Warnw("failed to load poll offset, starting fresh", "error", err)
	}

	p.log.Infow("polling started", "offset", offset, "timeout_s", p.pollTimeout)

	for {
		if ctx.Err() != nil {
			p.log.Info("polling stopped")
			return
		}

		updates, err := p.bot.GetUpdates(ctx, offset+1, p.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				p.log.Info("polling stopped")
				return
			}
			p.log.Errorw("getUpdates failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, upd := range updates {
			p.handleOne(ctx, upd)
			if upd.UpdateID > offset {
				offset = upd.UpdateID
			}
		}

		if len(updates) > 0 {
			if err := p.offsets.SetLastUpdateID(offset); err != nil {
				p.log.Warnw("failed to persist poll offset", "error", err, "offset", offset)
			}
		}
	}
}

// handleOne isolates handler panics so one bad update cannot kill the loop.
func (p *PollingService) handleOne(ctx context.Context, upd Update) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorw("panic while handling update",
				"update_id", upd.UpdateID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()

	if err := p.handler.HandleUpdate(ctx, upd); err != nil {
		p.log.Errorw("update handling failed", "update_id", upd.UpdateID, "error", err)
	}
}
