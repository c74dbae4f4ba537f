package audit

import (
	"encoding/json"

	"github.com/borderdesk/visatrack/pkg/events"
	"github.com/borderdesk/visatrack/pkg/logger"
)

// Listener mirrors lifecycle events into the log stream so operators can
// trace reminder and expiration activity without querying the database.
type Listener struct {
	bus events.Subscriber
}

func New(bus events.Subscriber) *Listener {
	return &Listener{bus: bus}
}

// Start registers the subscriptions. Handlers run on the bus's delivery
// goroutines and must not block.
func (l *Listener) Start() error {
	subs := map[string]func(*events.Message){
		events.TouristCreated: l.onTouristCreated,
		events.TouristExited:  l.onTouristExited,
		events.VisaRenewed:    l.onVisaRenewed,
		events.ReminderSent:   l.onReminderSent,
		events.VisaExpired:    l.onVisaExpired,
		events.SweepDone:      l.onSweepDone,
	}

	for subject, handler := range subs {
		if err := l.bus.Subscribe(subject, handler); err != nil {
			return err
		}
	}
	return nil
}

func (l *Listener) onTouristCreated(msg *events.Message) {
	var e events.TouristCreatedEvent
	if !decode(msg, &e) {
		return
	}
	logger.Info("Audit: tourist registered",
		"tourist_id", e.TouristID,
		"nationality", e.Nationality,
		"status", e.Status,
		"expires", e.ExpirationDate.Format("2006-01-02"),
	)
}

func (l *Listener) onTouristExited(msg *events.Message) {
	var e events.TouristExitedEvent
	if !decode(msg, &e) {
		return
	}
	logger.Info("Audit: tourist exited",
		"tourist_id", e.TouristID,
		"exit_date", e.ExitDate.Format("2006-01-02"),
	)
}

func (l *Listener) onVisaRenewed(msg *events.Message) {
	var e events.VisaRenewedEvent
	if !decode(msg, &e) {
		return
	}
	logger.Info("Audit: visa renewed",
		"tourist_id", e.TouristID,
		"new_expiration", e.NewExpirationDate.Format("2006-01-02"),
	)
}

func (l *Listener) onReminderSent(msg *events.Message) {
	var e events.ReminderSentEvent
	if !decode(msg, &e) {
		return
	}
	logger.Info("Audit: reminder dispatched",
		"tourist_id", e.TouristID,
		"days_remaining", e.DaysRemaining,
		"manual", e.Manual,
	)
}

func (l *Listener) onVisaExpired(msg *events.Message) {
	var e events.VisaExpiredEvent
	if !decode(msg, &e) {
		return
	}
	logger.Info("Audit: visa expired",
		"tourist_id", e.TouristID,
		"expired_on", e.ExpirationDate.Format("2006-01-02"),
	)
}

func (l *Listener) onSweepDone(msg *events.Message) {
	var e events.SweepDoneEvent
	if !decode(msg, &e) {
		return
	}
	logger.Info("Audit: sweep completed",
		"scanned", e.Scanned,
		"reminders_sent", e.RemindersSent,
		"expired", e.Expired,
	)
}

func decode(msg *events.Message, out any) bool {
	if err := json.Unmarshal(msg.Data, out); err != nil {
		logger.Error("Audit: malformed event payload", "subject", msg.Subject, "error", err)
		return false
	}
	return true
}
