// Package telegram implements the Bot API surface the workflow engine needs:
// long-polled updates, rich notifications with inline keyboards, and
// edit-in-place resolution of earlier messages.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// BotService provides Telegram Bot API operations.
type BotService struct {
	httpClient  *http.Client
	baseURL     string
	botUsername string // cached from getMe
}

// NewBotService creates a bot service for the given token.
func NewBotService(botToken string) *BotService {
	s := &BotService{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: fmt.Sprintf("https://api.telegram.org/bot%s", botToken),
	}
	if botToken != "" {
		_ = s.fetchBotUsername()
	}
	return s
}

// NewBotServiceWithBaseURL creates a bot service against a custom API
// endpoint. Used by tests and local bot-api deployments.
func NewBotServiceWithBaseURL(baseURL string) *BotService {
	return &BotService{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
	}
}

// GetUpdates retrieves updates using long polling with context support.
// The context cancels the long poll for graceful shutdown.
func (s *BotService) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	apiURL := fmt.Sprintf("%s/getUpdates", s.baseURL)

	body := map[string]any{
		"timeout": timeout,
	}
	if offset > 0 {
		body["offset"] = offset
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	// Extended timeout so the client outlives the server-side long poll
	client := &http.Client{
		Timeout: time.Duration(timeout+10) * time.Second,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var result getUpdatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !result.OK {
		return nil, &APIError{ErrorCode: result.ErrorCode, Description: result.Description}
	}

	return result.Result, nil
}

// SendMessage sends an HTML-formatted message and returns the sent message.
func (s *BotService) SendMessage(chatID int64, text string) (*Message, error) {
	return s.sendJSON("sendMessage", map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	})
}

// SendMessageWithInlineKeyboard sends an HTML-formatted message with an
// inline keyboard and returns the sent message.
func (s *BotService) SendMessageWithInlineKeyboard(chatID int64, text string, keyboard any) (*Message, error) {
	return s.sendJSON("sendMessage", map[string]any{
		"chat_id":      chatID,
		"text":         text,
		"parse_mode":   "HTML",
		"reply_markup": keyboard,
	})
}

// SendPhoto sends a photo by URL with an HTML caption and optional inline
// keyboard.
func (s *BotService) SendPhoto(chatID int64, photoURL, caption string, keyboard any) (*Message, error) {
	body := map[string]any{
		"chat_id":    chatID,
		"photo":      photoURL,
		"caption":    caption,
		"parse_mode": "HTML",
	}
	if keyboard != nil {
		body["reply_markup"] = keyboard
	}
	return s.sendJSON("sendPhoto", body)
}

// SendDocumentFile uploads a local file as a document with an HTML caption
// and optional inline keyboard. Used for payment slips stored on disk.
func (s *BotService) SendDocumentFile(chatID int64, path, caption string, keyboard any) (*Message, error) {
	fields := map[string]string{
		"chat_id":    strconv.FormatInt(chatID, 10),
		"caption":    caption,
		"parse_mode": "HTML",
	}
	if keyboard != nil {
		raw, err := json.Marshal(keyboard)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal keyboard: %w", err)
		}
		fields["reply_markup"] = string(raw)
	}
	return s.uploadFile("sendDocument", "document", path, fields)
}

// EditMessageText replaces the text of a previously sent message.
func (s *BotService) EditMessageText(chatID int64, messageID int64, text string) error {
	_, err := s.sendJSON("editMessageText", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
		"parse_mode": "HTML",
	})
	return err
}

// EditMessageCaption replaces the caption of a previously sent photo or
// document message.
func (s *BotService) EditMessageCaption(chatID int64, messageID int64, caption string) error {
	_, err := s.sendJSON("editMessageCaption", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"caption":    caption,
		"parse_mode": "HTML",
	})
	return err
}

// AnswerCallbackQuery answers a callback query from an inline keyboard.
func (s *BotService) AnswerCallbackQuery(callbackQueryID string, text string, showAlert bool) error {
	body := map[string]any{
		"callback_query_id": callbackQueryID,
	}
	if text != "" {
		body["text"] = text
	}
	if showAlert {
		body["show_alert"] = true
	}
	_, err := s.sendJSON("answerCallbackQuery", body)
	return err
}

// GetBotUsername returns the cached bot username.
func (s *BotService) GetBotUsername() string {
	return s.botUsername
}

// fetchBotUsername fetches and caches the bot username from getMe.
func (s *BotService) fetchBotUsername() error {
	url := fmt.Sprintf("%s/getMe", s.baseURL)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var result getMeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if !result.OK {
		return fmt.Errorf("telegram API error: %s", result.Description)
	}

	s.botUsername = result.Result.Username
	return nil
}

func (s *BotService) sendJSON(method string, body map[string]any) (*Message, error) {
	url := fmt.Sprintf("%s/%s", s.baseURL, method)

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return s.do(req)
}

func (s *BotService) uploadFile(method, field, path string, fields map[string]string) (*Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	part, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("failed to copy file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	url := fmt.Sprintf("%s/%s", s.baseURL, method)
	req, err := http.NewRequest(http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return s.do(req)
}

func (s *BotService) do(req *http.Request) (*Message, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !result.OK {
		return nil, &APIError{
			ErrorCode:   result.ErrorCode,
			Description: result.Description,
			RetryAfter:  result.Parameters.RetryAfter,
		}
	}

	// edit/answer calls may return "result": true instead of a message
	var msg Message
	if len(result.Result) > 0 && result.Result[0] == '{' {
		if err := json.Unmarshal(result.Result, &msg); err != nil {
			return nil, fmt.Errorf("failed to decode result message: %w", err)
		}
		return &msg, nil
	}
	return nil, nil
}
