package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSendClient) SendVisaReminder(toEmail, toName, visaNumber string, expirationDate time.Time, daysRemaining int) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	expires := expirationDate.Format("January 2, 2006")
	subject := fmt.Sprintf("Your visa %s expires on %s", visaNumber, expires)
	html := fmt.Sprintf(`
		<h2>Visa Expiration Reminder</h2>
		<p>Dear %s,</p>
		<p>Your visa <strong>%s</strong> expires on <strong>%s</strong> (%d days remaining).</p>
		<p>Please arrange a renewal or your departure before the expiration date to avoid overstay penalties.</p>
		<p>If you have already left the country or renewed your visa, please contact your registration office.</p>
	`, toName, visaNumber, expires, daysRemaining)

	text := fmt.Sprintf("Dear %s,\n\nYour visa %s expires on %s (%d days remaining).\nPlease arrange a renewal or your departure before the expiration date.",
		toName, visaNumber, expires, daysRemaining)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)
	msg.SetText(text)
	msg.SetHTML(html)

	_, err := m.client.Email.Send(ctx, msg)
	return err
}
