package mailer

import "time"

// Service dispatches visa expiration reminders. Sends are fire-and-forget
// from the sweep's point of view: a failed send is logged by the caller and
// never rolls back the reminder bookkeeping.
type Service interface {
	SendVisaReminder(toEmail, toName, visaNumber string, expirationDate time.Time, daysRemaining int) error
}
