package mailer

import (
	"context"
	"log/slog"

	"saas_backend/internal/models"
)

// * LogSender для локального запуска: ссылка пишется в лог вместо отправки.
type LogSender struct {
	Log *slog.Logger
}

func (s LogSender) SendMessage(_ context.Context, msg models.Message) error {
	s.Log.Info("confirmation email",
		slog.String("to", msg.Email),
		slog.String("company", msg.CompanyName),
		slog.String("link", msg.Link),
	)

	return nil
}
