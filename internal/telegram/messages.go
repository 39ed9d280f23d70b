package telegram

import (
	"context"
	"errors"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/devmike09/Converter-Bot/internal/action"
	"github.com/devmike09/Converter-Bot/internal/archive"
	"github.com/devmike09/Converter-Bot/internal/consts"
	"github.com/devmike09/Converter-Bot/internal/convert"
	"github.com/devmike09/Converter-Bot/internal/limits"
	"github.com/devmike09/Converter-Bot/internal/logger"
	"github.com/devmike09/Converter-Bot/internal/storage"
)

var directLinkPattern = regexp.MustCompile(`^https?://`)

func (b *Bot) handleMessage(message *tgbotapi.Message) error {
	if message.From == nil {
		logger.Debug("Message without a sender, skipping", nil)
		return nil
	}

	if !b.gate.Allow(message.From.ID) {
		b.sendJoinPrompt(message.Chat.ID)
		return nil
	}

	if len(message.Photo) > 0 || message.Video != nil || message.Document != nil {
		return b.handleMediaMessage(message)
	}

	if message.Text == "" {
		logger.Debug("Ignoring unsupported message type", map[string]interface{}{
			"chat_id": message.Chat.ID,
		})
		return nil
	}

	if strings.HasPrefix(message.Text, "/") {
		return b.handleCommand(message)
	}

	return b.handleTextMessage(message)
}

// handleTextMessage relays direct download links; any other text is ignored.
func (b *Bot) handleTextMessage(message *tgbotapi.Message) error {
	text := strings.TrimSpace(message.Text)
	if !directLinkPattern.MatchString(text) {
		logger.Debug("Ignoring non-link text", map[string]interface{}{
			"chat_id": message.Chat.ID,
		})
		return nil
	}
	return b.handleLinkMessage(message, text)
}

// handleLinkMessage downloads the linked file and sends it straight back.
// Relayed files never join the session; the copy on disk is gone as soon as
// the send attempt finishes.
func (b *Bot) handleLinkMessage(message *tgbotapi.Message, url string) error {
	chatID := message.Chat.ID
	statusID := b.sendResponseAndGetMessageID(chatID, consts.StatusDownloadingLink)

	handle, err := b.fetcher.Download(context.Background(), url, b.area)
	if err != nil {
		logger.Error("Direct download failed", map[string]interface{}{
			"url":     url,
			"chat_id": chatID,
			"error":   err.Error(),
		})
		b.metrics.RecordDownload(downloadStatus(err))
		if errors.Is(err, limits.ErrTooLarge) {
			b.editMessage(chatID, statusID, consts.ErrorFileTooLarge)
		} else {
			b.editMessage(chatID, statusID, downloadFailureText(err))
		}
		return nil
	}
	defer b.discardArtifact(handle.Path)
	b.metrics.RecordDownload("success")

	b.editMessage(chatID, statusID, consts.StatusUploading)
	if err := b.sendDocumentAs(chatID, handle.Path, handle.Name); err != nil {
		logger.Error("Failed to send downloaded file", map[string]interface{}{
			"url":     url,
			"chat_id": chatID,
			"error":   err.Error(),
		})
		b.editMessage(chatID, statusID, downloadFailureText(err))
		return nil
	}
	b.deleteMessage(chatID, statusID)
	return nil
}

// sendJoinPrompt asks the user to join the required channel before anything
// else is served.
func (b *Bot) sendJoinPrompt(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, consts.PromptJoinChannel)
	msg.ParseMode = consts.ParseModeHTML
	msg.ReplyMarkup = b.joinKeyboard()
	if _, err := b.rateLimitedSend(chatID, msg); err != nil {
		logger.Error("Failed to send join prompt", map[string]interface{}{
			"error":   err.Error(),
			"chat_id": chatID,
		})
	}
}

func (b *Bot) joinKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if url := b.gate.ChannelURL(); url != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(consts.ButtonJoinChannel, url),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(consts.ButtonRecheck, action.RecheckToken()),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// discardArtifact removes a file that has served its purpose.
func (b *Bot) discardArtifact(path string) {
	if err := storage.Remove(path); err != nil {
		logger.Warn("Failed to remove artifact", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
}

// translateError maps component failures to the message shown to the user.
// Anything unrecognized stays generic; the log carries the detail.
func translateError(err error) string {
	switch {
	case errors.Is(err, convert.ErrSourceExpired):
		return consts.ErrorFileExpired
	case errors.Is(err, limits.ErrTooLarge):
		return consts.ErrorFileTooLarge
	case errors.Is(err, convert.ErrTranscodeFailed):
		return consts.ErrorConversionFailed
	case errors.Is(err, archive.ErrNoFiles):
		return consts.ErrorEmptySession
	default:
		return consts.ErrorGenericFailure
	}
}

// downloadFailureText appends a truncated diagnostic to the retrieval
// failure message, mirroring what the user needs to fix the link.
func downloadFailureText(err error) string {
	return consts.ErrorDownloadFailed + "\nError: " + truncateDiagnostic(err, 50)
}

func truncateDiagnostic(err error, max int) string {
	msg := err.Error()
	if len(msg) > max {
		return msg[:max]
	}
	return msg
}

func downloadStatus(err error) string {
	switch {
	case errors.Is(err, limits.ErrTooLarge):
		return "too_large"
	default:
		return "failed"
	}
}
