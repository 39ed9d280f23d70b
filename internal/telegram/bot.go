package telegram

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/devmike09/Converter-Bot/internal/action"
	"github.com/devmike09/Converter-Bot/internal/archive"
	"github.com/devmike09/Converter-Bot/internal/config"
	"github.com/devmike09/Converter-Bot/internal/consts"
	"github.com/devmike09/Converter-Bot/internal/convert"
	"github.com/devmike09/Converter-Bot/internal/fetch"
	"github.com/devmike09/Converter-Bot/internal/gate"
	"github.com/devmike09/Converter-Bot/internal/limits"
	"github.com/devmike09/Converter-Bot/internal/logger"
	"github.com/devmike09/Converter-Bot/internal/metrics"
	"github.com/devmike09/Converter-Bot/internal/session"
	"github.com/devmike09/Converter-Bot/internal/storage"
)

type Bot struct {
	api       *tgbotapi.BotAPI
	config    *config.Config
	area      *storage.Area
	store     *session.Store
	gate      *gate.Gate
	codec     *action.Codec
	converter *convert.Converter
	archiver  *archive.Builder
	fetcher   *fetch.Fetcher
	metrics   *metrics.Collector

	// Outbound throttling
	globalLimiter  *rate.Limiter           // Bot API allows ~30 msg/sec overall
	userLimiters   map[int64]*rate.Limiter // Per-chat limiters
	userLimitersMu sync.RWMutex
	cleanupStarted bool

	// Callback replay guard
	processedCallbacks map[string]time.Time // callback_id -> first seen
	callbacksMu        sync.RWMutex

	// Concurrent update processing
	workerPool *WorkerPool
}

// NewBot wires every collaborator once; handlers receive them through the
// Bot receiver rather than package globals.
func NewBot(cfg *config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	area, err := storage.NewArea(cfg.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare storage area: %w", err)
	}

	if cfg.HasRequiredChannel() {
		logger.Info("Channel membership gate enabled", map[string]interface{}{
			"channel": cfg.RequiredChannel,
		})
	} else {
		logger.InfoMsg("No required channel configured, bot is open to everyone")
	}

	guard := limits.NewGuard(consts.MaxUploadBytes)
	store := session.NewStore()

	bot := &Bot{
		api:       api,
		config:    cfg,
		area:      area,
		store:     store,
		gate:      gate.New(api, cfg.RequiredChannel),
		codec:     action.NewCodec(area),
		converter: convert.New(cfg.TranscoderBin, consts.TranscodeTimeout, guard),
		archiver:  archive.NewBuilder(store, area, guard),
		fetcher:   fetch.New(consts.DownloadTimeout, guard),
		metrics:   metrics.NewCollector(),

		globalLimiter:  rate.NewLimiter(rate.Limit(30), 30), // documented Bot API ceiling
		userLimiters:   make(map[int64]*rate.Limiter),
		cleanupStarted: false,

		processedCallbacks: make(map[string]time.Time),
	}
	bot.workerPool = NewWorkerPool(bot, DefaultWorkerPoolConfig())
	return bot, nil
}

// Area exposes the storage area so the janitor can be run against it.
func (b *Bot) Area() *storage.Area {
	return b.area
}

// Start opens the long-poll loop and feeds every update into the worker
// pool. It blocks until the updates channel closes.
func (b *Bot) Start() error {
	logger.Info("Bot authorized, starting long poll", map[string]interface{}{
		"username":    b.api.Self.UserName,
		"storage_dir": b.area.Root(),
		"gated":       b.gate.Enabled(),
	})

	if err := b.workerPool.Start(); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		logger.Debug("Update received", map[string]interface{}{
			"update_id":    update.UpdateID,
			"has_message":  update.Message != nil,
			"has_callback": update.CallbackQuery != nil,
		})

		if update.CallbackQuery != nil {
			b.metrics.RecordUpdate("callback")
			if err := b.workerPool.SubmitCallback(update.CallbackQuery); err != nil {
				logger.Error("Callback dropped, queue refused it", map[string]interface{}{
					"error":       err.Error(),
					"callback_id": update.CallbackQuery.ID,
				})
			}
			continue
		}

		if update.Message == nil {
			logger.Debug("Ignoring update without message payload", nil)
			continue
		}

		if update.Message.IsCommand() {
			b.metrics.RecordUpdate("command")
		} else {
			b.metrics.RecordUpdate("message")
		}

		if err := b.workerPool.SubmitMessage(update.Message); err != nil {
			logger.Error("Message dropped, queue refused it", map[string]interface{}{
				"error":   err.Error(),
				"chat_id": update.Message.Chat.ID,
			})
		}
	}

	return nil
}

// Stop ends long polling and drains the worker pool.
func (b *Bot) Stop() error {
	logger.InfoMsg("Shutting down bot")

	b.api.StopReceivingUpdates()

	if b.workerPool != nil {
		if err := b.workerPool.Stop(); err != nil {
			logger.Error("Worker pool did not stop cleanly", map[string]interface{}{
				"error": err.Error(),
			})
			return err
		}
	}

	logger.InfoMsg("Bot shutdown complete")
	return nil
}

func (b *Bot) sendResponse(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = consts.ParseModeHTML
	if _, err := b.rateLimitedSend(chatID, msg); err != nil {
		logger.Error("Failed to send message", map[string]interface{}{
			"error":   err.Error(),
			"chat_id": chatID,
		})
	}
}

func (b *Bot) sendResponseAndGetMessageID(chatID int64, text string) int {
	msg := tgbotapi.NewMessage(chatID, text)
	response, err := b.rateLimitedSend(chatID, msg)
	if err != nil {
		logger.Error("Failed to send message", map[string]interface{}{
			"error":   err.Error(),
			"chat_id": chatID,
		})
		return 0
	}
	return response.MessageID
}

func (b *Bot) editMessage(chatID int64, messageID int, text string) {
	if messageID == 0 {
		b.sendResponse(chatID, text)
		return
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := b.rateLimitedSend(chatID, edit); err != nil {
		logger.Error("Failed to edit message", map[string]interface{}{
			"error":      err.Error(),
			"chat_id":    chatID,
			"message_id": messageID,
		})
	}
}

func (b *Bot) editMessageWithKeyboard(chatID int64, messageID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, keyboard)
	if _, err := b.rateLimitedSend(chatID, edit); err != nil {
		logger.Error("Failed to edit message with keyboard", map[string]interface{}{
			"error":      err.Error(),
			"chat_id":    chatID,
			"message_id": messageID,
		})
	}
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	del := tgbotapi.NewDeleteMessage(chatID, messageID)
	if _, err := b.rateLimitedSend(chatID, del); err != nil {
		logger.Error("Failed to delete message", map[string]interface{}{
			"error":      err.Error(),
			"chat_id":    chatID,
			"message_id": messageID,
		})
	}
}

// sendDocument uploads a file from the storage area as a document message.
func (b *Bot) sendDocument(chatID int64, path string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	if _, err := b.rateLimitedSend(chatID, doc); err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	return nil
}

// sendDocumentAs uploads the file at path under a display name that differs
// from its on-disk name.
func (b *Bot) sendDocumentAs(chatID int64, path, name string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open document: %w", err)
	}
	defer file.Close()

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileReader{Name: name, Reader: file})
	if _, err := b.rateLimitedSend(chatID, doc); err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	return nil
}

// sendErrorResponse tells the user something went wrong without leaking the
// internals; the detail lives in the log.
func (b *Bot) sendErrorResponse(chatID int64, err error) {
	logger.Error("Handler failed", map[string]interface{}{
		"error":   err.Error(),
		"chat_id": chatID,
	})
	b.sendResponse(chatID, consts.ErrorGenericFailure)
}

// getUserRateLimiter returns the limiter for a chat, creating it on first
// use. Creation of the first limiter also kicks off the cleanup loop.
func (b *Bot) getUserRateLimiter(chatID int64) *rate.Limiter {
	b.userLimitersMu.RLock()
	limiter, exists := b.userLimiters[chatID]
	b.userLimitersMu.RUnlock()

	if !exists {
		b.userLimitersMu.Lock()
		// Re-check under the write lock; another goroutine may have won.
		if limiter, exists = b.userLimiters[chatID]; !exists {
			limiter = rate.NewLimiter(rate.Limit(1), 3) // per chat: 1 msg/sec, burst 3
			b.userLimiters[chatID] = limiter

			if !b.cleanupStarted {
				b.cleanupStarted = true
				go b.cleanupUserLimiters()
			}
		}
		b.userLimitersMu.Unlock()
	}

	return limiter
}

// cleanupUserLimiters drops the limiter map when it grows past any plausible
// number of concurrently active chats.
func (b *Bot) cleanupUserLimiters() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		b.userLimitersMu.Lock()
		if len(b.userLimiters) > 1000 {
			logger.Debug("Resetting per-chat limiter map", map[string]interface{}{
				"size": len(b.userLimiters),
			})
			b.userLimiters = make(map[int64]*rate.Limiter)
		}
		b.userLimitersMu.Unlock()
	}
}

// rateLimitedSend pushes a Chattable through both limiters before handing
// it to the API. Every outbound send, edit, delete and upload goes here.
func (b *Bot) rateLimitedSend(chatID int64, msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := b.globalLimiter.Wait(context.Background()); err != nil {
		return tgbotapi.Message{}, fmt.Errorf("global limiter wait: %w", err)
	}

	userLimiter := b.getUserRateLimiter(chatID)
	if err := userLimiter.Wait(context.Background()); err != nil {
		return tgbotapi.Message{}, fmt.Errorf("chat limiter wait: %w", err)
	}

	return b.api.Send(msg)
}

// rateLimitedRequest is the Request-path twin of rateLimitedSend, used for
// callback answers which do not produce a Message.
func (b *Bot) rateLimitedRequest(chatID int64, req tgbotapi.CallbackConfig) (*tgbotapi.APIResponse, error) {
	if err := b.globalLimiter.Wait(context.Background()); err != nil {
		return nil, fmt.Errorf("global limiter wait: %w", err)
	}

	userLimiter := b.getUserRateLimiter(chatID)
	if err := userLimiter.Wait(context.Background()); err != nil {
		return nil, fmt.Errorf("chat limiter wait: %w", err)
	}

	return b.api.Request(req)
}

// isDuplicateCallback reports whether this callback ID was seen within the
// forget window. Telegram redelivers callbacks on slow acks.
func (b *Bot) isDuplicateCallback(callbackID string) bool {
	b.callbacksMu.RLock()
	_, exists := b.processedCallbacks[callbackID]
	b.callbacksMu.RUnlock()
	return exists
}

// markCallbackProcessed records the callback ID and schedules it to be
// forgotten so the map stays bounded.
func (b *Bot) markCallbackProcessed(callbackID string) {
	b.callbacksMu.Lock()
	b.processedCallbacks[callbackID] = time.Now()
	b.callbacksMu.Unlock()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic while expiring callback entry", map[string]interface{}{
					"error": r,
				})
			}
		}()

		time.Sleep(30 * time.Second)
		b.callbacksMu.Lock()
		delete(b.processedCallbacks, callbackID)
		b.callbacksMu.Unlock()
	}()
}
