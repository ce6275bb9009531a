package mailer

import (
	"context"
	"fmt"

	"saas_backend/internal/models"

	"gopkg.in/gomail.v2"
)

const confirmSubject = "Подтверждение почты"

// * SMTP отправляет письмо со ссылкой подтверждения через обычный SMTP сервер.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (m *SMTP) SendMessage(_ context.Context, msg models.Message) error {
	const op = "mailer.SMTP.SendMessage"

	from := m.From
	if from == "" {
		from = m.Username
	}

	dialer := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	if err := dialer.DialAndSend(m.compose(from, msg)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (m *SMTP) compose(from string, msg models.Message) *gomail.Message {
	out := gomail.NewMessage()
	out.SetHeader("From", from)
	out.SetAddressHeader("To", msg.Email, msg.Name)
	out.SetHeader("Subject", confirmSubject)
	out.SetBody("text/plain", body(msg))

	return out
}

func body(msg models.Message) string {
	greeting := "Здравствуйте!"
	if msg.Name != "" {
		greeting = fmt.Sprintf("Здравствуйте, %s!", msg.Name)
	}

	text := greeting + "\n\n"
	if msg.CompanyName != "" {
		text += fmt.Sprintf("Вы зарегистрированы в компании %s.\n", msg.CompanyName)
	}

	return text + "Чтобы подтвердить почту, перейдите по ссылке:\n" + msg.Link + "\n"
}
