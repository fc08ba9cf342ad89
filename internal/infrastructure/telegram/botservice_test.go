package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hucksarn/movieflixdash/internal/shared/logger"
)

func TestSendMessageReturnsMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sendMessage", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "HTML", body["parse_mode"])
		w.Write([]byte(`{"ok":true,"result":{"message_id":99,"chat":{"id":7}}}`))
	}))
	defer srv.Close()

	bot := NewBotServiceWithBaseURL(srv.URL)
	msg, err := bot.SendMessage(7, "hello")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, int64(99), msg.MessageID)
}

func TestEditCallsTolerateBooleanResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	defer srv.Close()

	bot := NewBotServiceWithBaseURL(srv.URL)
	assert.NoError(t, bot.EditMessageText(7, 99, "done"))
	assert.NoError(t, bot.EditMessageCaption(7, 99, "done"))
	assert.NoError(t, bot.AnswerCallbackQuery("cb1", "ok", false))
}

func TestAPIErrorCarriesCodeAndRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":3}}`))
	}))
	defer srv.Close()

	bot := NewBotServiceWithBaseURL(srv.URL)
	_, err := bot.SendMessage(7, "hello")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 429, apiErr.ErrorCode)
	assert.True(t, IsRetryAfter(err))
	assert.False(t, IsBotBlocked(err))
}

func TestSendDocumentFileUploadsMultipart(t *testing.T) {
	dir := t.TempDir()
	slip := filepath.Join(dir, "slip.jpg")
	require.NoError(t, os.WriteFile(slip, []byte("fake-image"), 0o644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sendDocument", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "7", r.FormValue("chat_id"))
		assert.NotEmpty(t, r.FormValue("reply_markup"))

		f, hdr, err := r.FormFile("document")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "slip.jpg", hdr.Filename)

		w.Write([]byte(`{"ok":true,"result":{"message_id":5,"chat":{"id":7}}}`))
	}))
	defer srv.Close()

	bot := NewBotServiceWithBaseURL(srv.URL)
	kb := NewInlineKeyboard(NewInlineKeyboardRow(NewInlineKeyboardButton("Approve", "ap:1")))
	msg, err := bot.SendDocumentFile(7, slip, "slip", kb)
	require.NoError(t, err)
	assert.Equal(t, int64(5), msg.MessageID)
}

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "a &amp; b &lt;i&gt;", EscapeHTML("a & b <i>"))
}

type recordingHandler struct {
	mu      sync.Mutex
	updates []int64
	panicOn int64
}

func (h *recordingHandler) HandleUpdate(_ context.Context, upd Update) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if upd.UpdateID == h.panicOn {
		panic("boom")
	}
	h.updates = append(h.updates, upd.UpdateID)
	return nil
}

type memOffsets struct {
	mu sync.Mutex
	id int64
}

func (m *memOffsets) LastUpdateID() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id, nil
}

func (m *memOffsets) SetLastUpdateID(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = id
	return nil
}

func TestPollingProcessesInOrderAndAdvancesOffset(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Write([]byte(`{"ok":true,"result":[{"update_id":10},{"update_id":11},{"update_id":12}]}`))
			return
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, float64(13), body["offset"], "next poll starts after the processed batch")
		w.Write([]byte(`{"ok":true,"result":[]}`))
	}))
	defer srv.Close()

	bot := NewBotServiceWithBaseURL(srv.URL)
	handler := &recordingHandler{panicOn: 11}
	offsets := &memOffsets{}
	p := NewPollingService(bot, handler, offsets, 1, logger.NewLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		id, _ := offsets.LastUpdateID()
		return id == 12
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Equal(t, []int64{10, 12}, handler.updates, "panicking update is skipped, the rest proceed in order")
}
