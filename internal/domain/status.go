package domain

import "time"

type VisaStatus string

const (
	StatusActive    VisaStatus = "Active"
	StatusExpired   VisaStatus = "Expired"
	StatusAlertSent VisaStatus = "Alert Sent"
	StatusLeft      VisaStatus = "Left"
	StatusRenewed   VisaStatus = "Renewed"
)

func ParseVisaStatus(s string) (VisaStatus, bool) {
	switch VisaStatus(s) {
	case StatusActive, StatusExpired, StatusAlertSent, StatusLeft, StatusRenewed:
		return VisaStatus(s), true
	default:
		return "", false
	}
}

// ReminderWindowDays is how close to expiration a visa must be before a
// reminder fires.
const ReminderWindowDays = 3

// DaysUntil returns the number of whole calendar days from today until target.
// Both instants are anchored to midnight, so time-of-day never shifts the
// result. Negative means target is in the past.
func DaysUntil(today, target time.Time) int {
	return int(midnight(target).Sub(midnight(today)).Hours() / 24)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Classify derives the visa status from a record's temporal fields.
// Precedence: an exit is terminal and wins over everything, then renewal,
// then expiration, then the reminder window. Pure; today is an explicit
// parameter so callers stay deterministic under test.
func Classify(today, expirationDate time.Time, reminderSent bool, exitDate, renewalDate *time.Time) VisaStatus {
	if exitDate != nil {
		return StatusLeft
	}
	if renewalDate != nil {
		return StatusRenewed
	}

	daysRemaining := DaysUntil(today, expirationDate)
	if daysRemaining < 0 {
		return StatusExpired
	}
	if daysRemaining <= ReminderWindowDays && reminderSent {
		return StatusAlertSent
	}
	return StatusActive
}

// DashboardStats is the per-status breakdown shown on the dashboard.
type DashboardStats struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Expired   int `json:"expired"`
	AlertSent int `json:"alert_sent"`
	Left      int `json:"left"`
	Renewed   int `json:"renewed"`
}

// CountStatuses folds a fresh classification over every record. The stored
// status column is never consulted.
func CountStatuses(tourists []Tourist, today time.Time) DashboardStats {
	stats := DashboardStats{Total: len(tourists)}
	for i := range tourists {
		switch tourists[i].DerivedStatus(today) {
		case StatusActive:
			stats.Active++
		case StatusExpired:
			stats.Expired++
		case StatusAlertSent:
			stats.AlertSent++
		case StatusLeft:
			stats.Left++
		case StatusRenewed:
			stats.Renewed++
		}
	}
	return stats
}
