package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/devmike09/Converter-Bot/internal/action"
	"github.com/devmike09/Converter-Bot/internal/consts"
	"github.com/devmike09/Converter-Bot/internal/convert"
	"github.com/devmike09/Converter-Bot/internal/limits"
	"github.com/devmike09/Converter-Bot/internal/logger"
)

// handleConversionCallback runs the transcoder against the staged source and
// delivers the artifact. Once the pipeline reaches a terminal outcome the
// source is spent: both files are removed no matter how the upload fares.
// The session keeps its handle; the archive builder skips vanished paths.
func (b *Bot) handleConversionCallback(callback *tgbotapi.CallbackQuery, op action.Operation, srcPath string) error {
	chatID := callback.Message.Chat.ID
	promptID := callback.Message.MessageID

	b.editMessage(chatID, promptID, fmt.Sprintf(consts.StatusConverting, strings.ToUpper(string(op))))

	started := time.Now()
	outPath, err := b.converter.Convert(context.Background(), srcPath, op)
	elapsed := time.Since(started)
	if err != nil {
		b.metrics.RecordConversion(string(op), conversionStatus(err), elapsed)
		logger.Error("Conversion failed", map[string]interface{}{
			"operation": string(op),
			"user_id":   callback.From.ID,
			"error":     err.Error(),
		})
		b.editMessage(chatID, promptID, translateError(err))
		return nil
	}
	defer b.discardArtifact(srcPath)
	defer b.discardArtifact(outPath)

	b.metrics.RecordConversion(string(op), "success", elapsed)

	b.editMessage(chatID, promptID, consts.StatusUploadingOutput)
	if err := b.sendDocument(chatID, outPath); err != nil {
		logger.Error("Failed to upload converted file", map[string]interface{}{
			"operation": string(op),
			"output":    outPath,
			"error":     err.Error(),
		})
		b.editMessage(chatID, promptID, consts.ErrorGenericFailure)
		return nil
	}

	b.deleteMessage(chatID, promptID)
	return nil
}

// handleRecheckCallback re-runs the membership check from the join prompt.
func (b *Bot) handleRecheckCallback(callback *tgbotapi.CallbackQuery) error {
	chatID := callback.Message.Chat.ID

	if b.gate.Allow(callback.From.ID) {
		logger.Info("Membership recheck passed", map[string]interface{}{
			"user_id": callback.From.ID,
		})
		b.editMessage(chatID, callback.Message.MessageID, consts.SuccessMemberVerified)
		return nil
	}

	// Editing the prompt to the same text bounces with "message is not
	// modified", so the refusal goes out as a fresh message.
	b.sendResponse(chatID, consts.ErrorNotMemberYet)
	return nil
}

func conversionStatus(err error) string {
	switch {
	case errors.Is(err, convert.ErrSourceExpired):
		return "expired"
	case errors.Is(err, limits.ErrTooLarge):
		return "too_large"
	case errors.Is(err, convert.ErrTranscodeFailed):
		return "failed"
	default:
		return "error"
	}
}
