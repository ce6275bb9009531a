package verification

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"saas_backend/internal/auth/token"
	sl "saas_backend/internal/lib/logger"
	"saas_backend/internal/models"
)

type Publisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

type Issuer interface {
	Issue(ctx context.Context, store token.SessionStore, id token.Identity, expiresIn time.Duration, typ token.Type, companyID *int64) (string, error)
}

// * Confirmer выпускает токен подтверждения почты и отправляет ссылку через Publisher.
type Confirmer struct {
	log         *slog.Logger
	tokens      Issuer
	pub         Publisher
	ttl         time.Duration
	frontendURL string
	templateID  int64
}

func NewConfirmer(log *slog.Logger, tokens Issuer, pub Publisher, ttl time.Duration, frontendURL string, templateID int64) *Confirmer {
	return &Confirmer{
		log:         log,
		tokens:      tokens,
		pub:         pub,
		ttl:         ttl,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		templateID:  templateID,
	}
}

// * SendConfirmation возвращает false при любой ошибке: регистрация от результата не зависит.
func (c *Confirmer) SendConfirmation(
	ctx context.Context,
	email string,
	userID int64,
	role models.Role,
	name, companyName string,
) bool {
	const op = "verification.SendConfirmation"

	log := c.log.With(
		slog.String("op", op),
		slog.Int64("uid", userID),
	)

	raw, err := c.tokens.Issue(ctx, nil, token.Identity{
		Email:  email,
		UserID: userID,
		Role:   role,
	}, c.ttl, token.EmailConfirm, nil)
	if err != nil {
		log.Error("failed to issue confirmation token", sl.Err(err))
		return false
	}

	msg := models.Message{
		Email:       email,
		Name:        name,
		CompanyName: companyName,
		Link:        c.Link(raw),
		Purpose:     models.PurposeEmailConfirm,
		TemplateID:  c.templateID,
	}

	if err := c.pub.SendMessage(ctx, msg); err != nil {
		log.Error("failed to send confirmation link", sl.Err(err))
		return false
	}

	log.Info("confirmation link sent")

	return true
}

func (c *Confirmer) Link(raw string) string {
	return c.frontendURL + "/confirm-email?token=" + url.QueryEscape(raw)
}
