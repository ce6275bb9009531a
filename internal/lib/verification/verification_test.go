package verification_test

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"saas_backend/internal/auth/token"
	"saas_backend/internal/lib/jwt"
	sl "saas_backend/internal/lib/logger"
	"saas_backend/internal/lib/verification"
	"saas_backend/internal/models"

	"github.com/stretchr/testify/require"
)

type publisher struct {
	msgs []models.Message
	err  error
}

func (p *publisher) SendMessage(_ context.Context, msg models.Message) error {
	if p.err != nil {
		return p.err
	}

	p.msgs = append(p.msgs, msg)

	return nil
}

func newTokens(t *testing.T) *token.Service {
	t.Helper()

	codec, err := jwt.NewCodec("secret", "HS256")
	require.NoError(t, err)

	return token.New(sl.NewDiscard(), codec)
}

func TestSendConfirmation(t *testing.T) {
	tokens := newTokens(t)
	pub := &publisher{}
	c := verification.NewConfirmer(sl.NewDiscard(), tokens, pub, time.Hour, "https://app.example.com/", 42)

	ok := c.SendConfirmation(context.Background(), "a@b.c", 7, models.RoleAdmin, "Ann Lee", "Acme")
	require.True(t, ok)
	require.Len(t, pub.msgs, 1)

	msg := pub.msgs[0]
	require.Equal(t, "a@b.c", msg.Email)
	require.Equal(t, "Ann Lee", msg.Name)
	require.Equal(t, "Acme", msg.CompanyName)
	require.Equal(t, models.PurposeEmailConfirm, msg.Purpose)
	require.Equal(t, int64(42), msg.TemplateID)

	link, err := url.Parse(msg.Link)
	require.NoError(t, err)
	require.Equal(t, "/confirm-email", link.Path)
	require.Equal(t, "app.example.com", link.Host)

	claims, err := tokens.Verify(context.Background(), nil, link.Query().Get("token"), token.EmailConfirm)
	require.NoError(t, err)
	require.Equal(t, int64(7), claims.UserID)
	require.Nil(t, claims.CompanyID)
}

func TestSendConfirmationPublisherFailure(t *testing.T) {
	pub := &publisher{err: errors.New("queue down")}
	c := verification.NewConfirmer(sl.NewDiscard(), newTokens(t), pub, time.Hour, "http://localhost", 0)

	require.False(t, c.SendConfirmation(context.Background(), "a@b.c", 1, models.RoleUser, "", ""))
}
