package bot

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sticker file IDs.
const (
	stickerLessonCompleted   = "CAACAgIAAxkBAAEOd65oIsiE9oHP2Cxsg9wkj1LXFi0L1AACR18AAuphSUoma5l9yrkFmjYE"
	stickerInsufficientScore = "CAACAgIAAxkBAAEOd7BoIsok2pkQSuPXBxRVf26hil-35gACEywAArBkcEno5QGUqynBvzYE"
)

func completionSticker(passed bool) string {
	if passed {
		return stickerLessonCompleted
	}
	return stickerInsufficientScore
}

// sticker sends a sticker. Failures are logged and ignored.
func (b *Bot) sticker(ctx context.Context, chatID int64, fileID string) {
	if _, err := b.API.Send(tgbotapi.NewSticker(chatID, tgbotapi.FileID(fileID))); err != nil {
		b.Logger.DebugContext(ctx, "send sticker", slog.Any("error", err))
	}
}
