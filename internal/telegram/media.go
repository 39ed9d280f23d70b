package telegram

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/devmike09/Converter-Bot/internal/action"
	"github.com/devmike09/Converter-Bot/internal/consts"
	"github.com/devmike09/Converter-Bot/internal/limits"
	"github.com/devmike09/Converter-Bot/internal/logger"
	"github.com/devmike09/Converter-Bot/internal/storage"
)

// handleMediaMessage saves the inbound file into the user's session and
// offers whatever actions fit its kind: conversion targets for images, audio
// extraction for videos, a running count for everything else.
func (b *Bot) handleMediaMessage(message *tgbotapi.Message) error {
	userID := message.From.ID
	chatID := message.Chat.ID

	fileID, originalName, kind := describeMedia(message)
	if fileID == "" {
		logger.Debug("Media message carries no retrievable file", map[string]interface{}{
			"chat_id": chatID,
		})
		return nil
	}

	statusID := b.sendResponseAndGetMessageID(chatID, consts.StatusProcessingFile)

	handle, err := b.storeInboundFile(fileID, originalName, kind)
	if err != nil {
		logger.Error("Failed to store inbound media", map[string]interface{}{
			"chat_id": chatID,
			"file_id": fileID,
			"error":   err.Error(),
		})
		if errors.Is(err, limits.ErrTooLarge) {
			b.editMessage(chatID, statusID, consts.ErrorFileTooLarge)
		} else {
			b.editMessage(chatID, statusID, consts.ErrorProcessingFailed)
		}
		return nil
	}

	count := b.store.Append(userID, handle)
	b.metrics.SetSessionFiles(b.store.TotalFiles())

	logger.Info("File added to session", map[string]interface{}{
		"user_id": userID,
		"file":    handle.Name,
		"kind":    string(handle.Kind),
		"count":   count,
	})

	switch handle.Kind {
	case storage.KindImage:
		keyboard, err := b.conversionKeyboard(handle)
		if err != nil {
			logger.Error("Failed to build conversion keyboard", map[string]interface{}{
				"file":  handle.Name,
				"error": err.Error(),
			})
			b.editMessage(chatID, statusID, fmt.Sprintf(consts.PromptDocumentSaved, count))
			return nil
		}
		b.editMessageWithKeyboard(chatID, statusID, consts.PromptImageSaved, keyboard)
	case storage.KindVideo:
		keyboard, err := b.audioKeyboard(handle)
		if err != nil {
			logger.Error("Failed to build audio keyboard", map[string]interface{}{
				"file":  handle.Name,
				"error": err.Error(),
			})
			b.editMessage(chatID, statusID, fmt.Sprintf(consts.PromptDocumentSaved, count))
			return nil
		}
		b.editMessageWithKeyboard(chatID, statusID, consts.PromptVideoSaved, keyboard)
	default:
		b.editMessage(chatID, statusID, fmt.Sprintf(consts.PromptDocumentSaved, count))
	}
	return nil
}

// describeMedia picks the retrievable payload out of a media message.
// Photos come as size variants; the last entry is the highest resolution.
// Documents are classified by their declared file name, so an image sent as
// a plain file still gets conversion buttons.
func describeMedia(message *tgbotapi.Message) (fileID, name string, kind storage.Kind) {
	switch {
	case len(message.Photo) > 0:
		photo := message.Photo[len(message.Photo)-1]
		return photo.FileID, "", storage.KindImage
	case message.Video != nil:
		return message.Video.FileID, message.Video.FileName, storage.KindVideo
	case message.Document != nil:
		return message.Document.FileID, message.Document.FileName, storage.DetectKind(message.Document.FileName)
	}
	return "", "", storage.KindDocument
}

// storeInboundFile resolves the Telegram file URL and streams it into a
// fresh handle in the storage area.
func (b *Bot) storeInboundFile(fileID, originalName string, kind storage.Kind) (storage.FileHandle, error) {
	var none storage.FileHandle

	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return none, fmt.Errorf("get file info: %w", err)
	}

	if originalName == "" {
		if base := path.Base(file.FilePath); base != "/" && base != "." {
			originalName = base
		}
	}

	handle := b.area.NewHandle(kind, originalName)
	if err := b.fetcher.DownloadTo(context.Background(), file.Link(b.api.Token), handle.Path); err != nil {
		return none, err
	}
	return handle, nil
}

// conversionKeyboard offers every image target except the format the file is
// already in, two buttons per row.
func (b *Bot) conversionKeyboard(handle storage.FileHandle) (tgbotapi.InlineKeyboardMarkup, error) {
	current := strings.TrimPrefix(strings.ToLower(filepath.Ext(handle.Name)), ".")
	if current == "jpeg" {
		current = "jpg"
	}

	var buttons []tgbotapi.InlineKeyboardButton
	for _, op := range []action.Operation{action.ToPNG, action.ToWEBP, action.ToJPG, action.ToPDF} {
		if string(op) == current {
			continue
		}
		token, err := b.codec.Encode(op, handle.Path)
		if err != nil {
			return tgbotapi.InlineKeyboardMarkup{}, err
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(labelFor(op), token))
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(buttons); i += 2 {
		end := i + 2
		if end > len(buttons) {
			end = len(buttons)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons[i:end]...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), nil
}

// audioKeyboard offers audio extraction for a stored video.
func (b *Bot) audioKeyboard(handle storage.FileHandle) (tgbotapi.InlineKeyboardMarkup, error) {
	token, err := b.codec.Encode(action.ToMP3, handle.Path)
	if err != nil {
		return tgbotapi.InlineKeyboardMarkup{}, err
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(consts.ButtonToMP3, token),
		),
	), nil
}

func labelFor(op action.Operation) string {
	switch op {
	case action.ToPNG:
		return consts.ButtonToPNG
	case action.ToWEBP:
		return consts.ButtonToWEBP
	case action.ToJPG:
		return consts.ButtonToJPG
	case action.ToPDF:
		return consts.ButtonToPDF
	case action.ToMP3:
		return consts.ButtonToMP3
	default:
		return strings.ToUpper(string(op))
	}
}
