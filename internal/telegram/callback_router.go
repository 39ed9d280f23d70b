package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/devmike09/Converter-Bot/internal/action"
	"github.com/devmike09/Converter-Bot/internal/consts"
	"github.com/devmike09/Converter-Bot/internal/logger"
)

func (b *Bot) handleCallbackQuery(callback *tgbotapi.CallbackQuery) error {
	if callback.Message == nil {
		logger.Warn("Callback without originating message", map[string]interface{}{
			"callback_id": callback.ID,
		})
		return nil
	}

	logger.Debug("Callback received", map[string]interface{}{
		"callback_data": callback.Data,
		"chat_id":       callback.Message.Chat.ID,
		"callback_id":   callback.ID,
	})

	if b.isDuplicateCallback(callback.ID) {
		logger.Debug("Replayed callback, skipping", map[string]interface{}{
			"callback_id":   callback.ID,
			"callback_data": callback.Data,
		})
		// Answer anyway or the client keeps the spinner up.
		ack := tgbotapi.NewCallback(callback.ID, "")
		b.rateLimitedRequest(callback.Message.Chat.ID, ack)
		return nil
	}

	b.markCallbackProcessed(callback.ID)

	// Ack before doing any work; conversions can outlive the client timeout.
	ack := tgbotapi.NewCallback(callback.ID, "")
	if _, err := b.rateLimitedRequest(callback.Message.Chat.ID, ack); err != nil {
		logger.Error("Failed to answer callback query", map[string]interface{}{
			"error": err.Error(),
		})
	}

	op, srcPath, err := b.codec.Decode(callback.Data)
	if err != nil {
		logger.Error("Rejected malformed callback token", map[string]interface{}{
			"callback_data": callback.Data,
			"user_id":       callback.From.ID,
			"error":         err.Error(),
		})
		b.sendResponse(callback.Message.Chat.ID, consts.ErrorGenericFailure)
		return nil
	}

	if op == action.Recheck {
		return b.handleRecheckCallback(callback)
	}

	// Membership can lapse between the prompt and the tap.
	if !b.gate.Allow(callback.From.ID) {
		b.sendJoinPrompt(callback.Message.Chat.ID)
		return nil
	}

	return b.handleConversionCallback(callback, op, srcPath)
}
