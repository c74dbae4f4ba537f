package mailer

import (
	"fmt"
	"time"

	"github.com/borderdesk/visatrack/pkg/logger"
)

type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendVisaReminder(toEmail, toName, visaNumber string, expirationDate time.Time, daysRemaining int) error {
	logger.Info("📧 [DEV MAIL] Visa Reminder",
		"to", toEmail,
		"name", toName,
		"visa_number", visaNumber,
		"expires", expirationDate.Format("2006-01-02"),
		"days_remaining", daysRemaining,
	)

	fmt.Printf("\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"📧 VISA REMINDER (DEV MODE)\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"To: %s (%s)\n"+
		"Subject: Your visa %s expires soon\n"+
		"\n"+
		"Visa expires on %s (%d days remaining).\n"+
		"Please arrange renewal or departure before the expiration date.\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n",
		toEmail, toName, visaNumber, expirationDate.Format("2006-01-02"), daysRemaining)

	return nil
}
