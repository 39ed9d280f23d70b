package telegram

import (
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/devmike09/Converter-Bot/internal/archive"
	"github.com/devmike09/Converter-Bot/internal/consts"
	"github.com/devmike09/Converter-Bot/internal/limits"
	"github.com/devmike09/Converter-Bot/internal/logger"
)

// Command router and the session commands

func (b *Bot) handleCommand(message *tgbotapi.Message) error {
	command := strings.TrimSpace(message.Text)
	// In groups commands arrive as /zip@BotName.
	if at := strings.Index(command, "@"); at != -1 {
		command = command[:at]
	}

	switch command {
	case "/start":
		return b.handleStartCommand(message)
	case "/help":
		return b.handleHelpCommand(message)
	case "/zip":
		return b.handleZipCommand(message)
	case "/clear":
		return b.handleClearCommand(message)

	default:
		logger.Debug("Unknown command ignored", map[string]interface{}{
			"command": command,
			"chat_id": message.Chat.ID,
		})
		return nil
	}
}

func (b *Bot) handleStartCommand(message *tgbotapi.Message) error {
	welcomeMsg := `👋 <b>Welcome to the Ultimate Converter & Downloader Bot!</b>

Send me files and I keep them in your personal session until you pack or clear them.

<b>📥 What I accept:</b>
• A direct download link → I fetch the file and send it back
• A photo → convert it to PNG, WEBP, JPG or PDF
• A video → extract the audio as MP3
• Any document → collected for zipping

<b>📦 Session commands:</b>
/zip - Pack every saved file into one ZIP archive
/clear - Wipe your session and delete the saved files
/help - Show this message again

<i>Files are temporary and swept after a while, so pack them while they are fresh!</i>`

	b.sendResponse(message.Chat.ID, welcomeMsg)
	return nil
}

func (b *Bot) handleHelpCommand(message *tgbotapi.Message) error {
	helpMsg := `📚 <b>Converter Bot Help</b>

<b>📥 Sending content:</b>
• Direct link (http/https) → downloaded and relayed back to you
• Photo → saved, then pick PNG / WEBP / JPG / PDF buttons to convert
• Video → saved, then extract the audio track as MP3
• Document → saved into your session

<b>📦 Commands:</b>
/zip - Bundle your session files into a single ZIP
/clear - Delete everything saved in your session
/start - Show the welcome message

<b>⚠️ Limits:</b>
• Telegram restricts bot uploads, so files over 50MB are rejected
• Saved files expire after a day; /zip them before they do`

	b.sendResponse(message.Chat.ID, helpMsg)
	return nil
}

// handleZipCommand bundles the user's session into one archive and uploads
// it. Build consumes the staged files as it goes, so after a successful (or
// oversized) run the session is empty either way.
func (b *Bot) handleZipCommand(message *tgbotapi.Message) error {
	userID := message.From.ID
	chatID := message.Chat.ID

	if b.store.Len(userID) == 0 {
		b.metrics.RecordArchive("empty")
		b.sendResponse(chatID, consts.ErrorEmptySession)
		return nil
	}

	statusID := b.sendResponseAndGetMessageID(chatID, consts.StatusZipping)

	archivePath, err := b.archiver.Build(userID)
	b.metrics.SetSessionFiles(b.store.TotalFiles())
	if err != nil {
		switch {
		case errors.Is(err, archive.ErrNoFiles):
			b.metrics.RecordArchive("empty")
			b.editMessage(chatID, statusID, consts.ErrorEmptySession)
		case errors.Is(err, limits.ErrTooLarge):
			b.metrics.RecordArchive("too_large")
			b.editMessage(chatID, statusID, consts.ErrorZipTooLarge)
		default:
			logger.Error("Failed to build archive", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
			b.metrics.RecordArchive("failed")
			b.editMessage(chatID, statusID, consts.ErrorZipFailed)
		}
		return nil
	}
	defer b.discardArtifact(archivePath)

	b.editMessage(chatID, statusID, consts.StatusUploadingZip)
	if err := b.sendDocument(chatID, archivePath); err != nil {
		logger.Error("Failed to upload archive", map[string]interface{}{
			"user_id": userID,
			"archive": archivePath,
			"error":   err.Error(),
		})
		b.metrics.RecordArchive("failed")
		b.editMessage(chatID, statusID, consts.ErrorZipFailed)
		return nil
	}

	b.metrics.RecordArchive("success")
	b.deleteMessage(chatID, statusID)
	return nil
}

func (b *Bot) handleClearCommand(message *tgbotapi.Message) error {
	userID := message.From.ID

	removed := b.store.Clear(userID)
	b.metrics.SetSessionFiles(b.store.TotalFiles())
	if removed == 0 {
		b.sendResponse(message.Chat.ID, consts.ErrorSessionEmpty)
		return nil
	}

	logger.Info("Session cleared", map[string]interface{}{
		"user_id": userID,
		"files":   removed,
	})
	b.sendResponse(message.Chat.ID, fmt.Sprintf("%s (%d files)", consts.SuccessSessionCleared, removed))
	return nil
}
