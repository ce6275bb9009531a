package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"saas_backend/internal/config"
	sl "saas_backend/internal/lib/logger"
	"saas_backend/internal/mailer"
	"saas_backend/internal/models"
	"saas_backend/internal/rabbitmq"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

type sender interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoadMailSender()
	log := setupLogger(cfg.Env)

	log.Info("Starting mail_sender",
		slog.String("env", cfg.Env),
		slog.String("delivery", cfg.Mail.Delivery),
	)

	startConsumer(ctx, cfg, log)
}

func startConsumer(ctx context.Context, cfg *config.Config, log *slog.Logger) {
	m := setupSender(cfg, log)

	consumer := rabbitmq.NewConsumer(log, cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)

	done := make(chan struct{})

	go func() {
		defer close(done)

		err := consumer.Run(ctx, func(ctx context.Context, msg models.Message) error {
			if err := m.SendMessage(ctx, msg); err != nil {
				return err
			}

			log.Info("message sent successfully", slog.String("purpose", msg.Purpose))

			return nil
		})
		if err != nil && ctx.Err() == nil {
			log.Error("consumer stopped", sl.Err(err))
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down consumer...")
		<-done
	case <-done:
		log.Info("consumer finished the work")
	}

	log.Info("service gracefully stopped")
}

func setupSender(cfg *config.Config, log *slog.Logger) sender {
	switch cfg.Mail.Delivery {
	case "brevo":
		return mailer.NewBrevo(cfg.Brevo.URL, cfg.Brevo.APIKey, cfg.Brevo.SenderEmail, cfg.Brevo.SenderName, cfg.Brevo.Timeout)
	case "smtp":
		return &mailer.SMTP{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}
	default:
		return mailer.LogSender{Log: log}
	}
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
