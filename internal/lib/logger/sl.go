package sl

import (
	"log/slog"
)

func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// * NewDiscard возвращает логгер, который ничего не пишет. Используется в тестах.
func NewDiscard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
