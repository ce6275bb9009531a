package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"saas_backend/internal/models"
)

const DefaultBrevoURL = "https://api.brevo.com/v3/smtp/email"

var ErrBrevo = errors.New("brevo send failed")

// * Brevo отправляет шаблонное письмо через транзакционный API Brevo.
type Brevo struct {
	url         string
	apiKey      string
	senderEmail string
	senderName  string
	http        *http.Client
}

func NewBrevo(url, apiKey, senderEmail, senderName string, timeout time.Duration) *Brevo {
	if url == "" {
		url = DefaultBrevoURL
	}

	return &Brevo{
		url:         url,
		apiKey:      apiKey,
		senderEmail: senderEmail,
		senderName:  senderName,
		http:        &http.Client{Timeout: timeout},
	}
}

type brevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoPayload struct {
	Sender     brevoContact      `json:"sender"`
	To         []brevoContact    `json:"to"`
	TemplateID int64             `json:"templateId"`
	Params     map[string]string `json:"params"`
}

func (b *Brevo) SendMessage(ctx context.Context, msg models.Message) error {
	const op = "mailer.Brevo.SendMessage"

	body, err := json.Marshal(brevoPayload{
		Sender:     brevoContact{Email: b.senderEmail, Name: b.senderName},
		To:         []brevoContact{{Email: msg.Email, Name: strings.TrimSpace(msg.Name)}},
		TemplateID: msg.TemplateID,
		Params: map[string]string{
			"EMAIL":       msg.Email,
			"COMPANY":     msg.CompanyName,
			"CONFIRM_URL": msg.Link,
		},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	req.Header.Set("api-key", b.apiKey)
	req.Header.Set("accept", "application/json")
	req.Header.Set("content-type", "application/json")

	res, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrBrevo, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return fmt.Errorf("%s: %w (%d): %s", op, ErrBrevo, res.StatusCode, strings.TrimSpace(string(detail)))
	}

	return nil
}
