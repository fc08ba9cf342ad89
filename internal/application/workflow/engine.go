// Package workflow implements the approval engine: it announces pending
// work to admins over Telegram and executes their approve/reject decisions.
package workflow

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hucksarn/movieflixdash/internal/domain/mediarequest"
	"github.com/hucksarn/movieflixdash/internal/domain/settings"
	"github.com/hucksarn/movieflixdash/internal/domain/user"
	"github.com/hucksarn/movieflixdash/internal/domain/workflow"
	"github.com/hucksarn/movieflixdash/internal/infrastructure/downloadmanager"
	"github.com/hucksarn/movieflixdash/internal/infrastructure/mediaserver"
	"github.com/hucksarn/movieflixdash/internal/infrastructure/store"
	"github.com/hucksarn/movieflixdash/internal/infrastructure/telegram"
	"github.com/hucksarn/movieflixdash/internal/shared/logger"
)

// ChatAPI is the slice of the Telegram bot service the engine uses.
type ChatAPI interface {
	SendMessage(chatID int64, text string) (*telegram.Message, error)
	SendMessageWithInlineKeyboard(chatID int64, text string, keyboard any) (*telegram.Message, error)
	SendPhoto(chatID int64, photoURL, caption string, keyboard any) (*telegram.Message, error)
	SendDocumentFile(chatID int64, path, caption string, keyboard any) (*telegram.Message, error)
	EditMessageText(chatID int64, messageID int64, text string) error
	EditMessageCaption(chatID int64, messageID int64, caption string) error
	AnswerCallbackQuery(callbackQueryID string, text string, showAlert bool) error
}

// MediaServerAPI is the slice of the media server client the engine uses
// when an approval re-enables access.
type MediaServerAPI interface {
	ListUsers(ctx context.Context) ([]user.MediaUser, error)
	ListLibraries(ctx context.Context) ([]mediaserver.Library, error)
	GetPolicy(ctx context.Context, userID string) (map[string]any, error)
	UpdatePolicy(ctx context.Context, userID string, current, target map[string]any) error
}

// RequestManagerAPI forwards approved media requests downstream.
type RequestManagerAPI interface {
	Configured() bool
	CreateRequest(ctx context.Context, req mediarequest.MediaRequest, rootFolder string, profileID int) (int, error)
	DeleteRequest(ctx context.Context, externalID int) error
	ImportUsers(ctx context.Context, mediaUserIDs []string) error
}

// DownloadManagerAPI serves root folders, profiles, and download progress.
type DownloadManagerAPI interface {
	Configured() bool
	RootFolders(ctx context.Context) ([]downloadmanager.RootFolder, error)
	QualityProfiles(ctx context.Context) ([]downloadmanager.QualityProfile, error)
	LookupMovieByTMDB(ctx context.Context, tmdbID int) (*downloadmanager.Item, error)
	LookupSeriesByIMDB(ctx context.Context, imdbID string) (*downloadmanager.Item, error)
	QueueProgress(ctx context.Context, movieID int) (float64, bool, error)
}

// Engine ties the documents, the chat service, and the external service
// clients together. The mutex serializes the sweep goroutine against the
// poll handler; both mutate the same documents.
type Engine struct {
	docs   *store.Documents
	chat   ChatAPI
	media  MediaServerAPI
	reqmgr RequestManagerAPI
	movies DownloadManagerAPI
	series DownloadManagerAPI
	log    logger.Interface
	now    func() time.Time

	mu sync.Mutex
}

func NewEngine(
	docs *store.Documents,
	chat ChatAPI,
	media MediaServerAPI,
	reqmgr RequestManagerAPI,
	movies DownloadManagerAPI,
	series DownloadManagerAPI,
	log logger.Interface,
) *Engine {
	return &Engine{
		docs:   docs,
		chat:   chat,
		media:  media,
		reqmgr: reqmgr,
		movies: movies,
		series: series,
		log:    log.Named("workflow"),
		now:    time.Now,
	}
}

// managerFor picks the download manager matching a request's media type.
func (e *Engine) managerFor(mediaType mediarequest.MediaType) DownloadManagerAPI {
	if mediaType == mediarequest.TypeTV {
		return e.series
	}
	return e.movies
}

// isAdmin checks the caller against the configured admin chat ids and
// usernames.
func isAdmin(s *settings.Settings, from *telegram.User) bool {
	if from == nil {
		return false
	}
	for _, id := range s.AdminChatIDs {
		if id == from.ID {
			return true
		}
	}
	for _, name := range s.AdminUsernames {
		if strings.EqualFold(name, from.Username) {
			return true
		}
	}
	return false
}

// saveState persists the workflow state best-effort. The state is advisory
// and re-derivable, so a failed write is logged and swallowed.
func (e *Engine) saveState(state *workflow.State) {
	if err := e.docs.SaveBotState(state); err != nil {
		e.log.Warnw("failed to persist workflow state", "error", err)
	}
}

// LastUpdateID implements telegram.OffsetStore on top of the persisted
// workflow state.
func (e *Engine) LastUpdateID() (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, err := e.docs.BotState()
	if err != nil {
		return 0, err
	}
	return state.LastUpdateID, nil
}

// SetLastUpdateID implements telegram.OffsetStore.
func (e *Engine) SetLastUpdateID(id int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, err := e.docs.BotState()
	if err != nil {
		return err
	}
	state.LastUpdateID = id
	return e.docs.SaveBotState(state)
}
