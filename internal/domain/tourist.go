package domain

import "time"

type Tourist struct {
	ID                 int64      `json:"id"`
	FullName           string     `json:"full_name"`
	Nationality        string     `json:"nationality"`
	PassportNumber     string     `json:"passport_number"`
	VisaNumber         string     `json:"visa_number"`
	VisaType           string     `json:"visa_type"`
	VisaExpirationDate time.Time  `json:"visa_expiration_date"`
	DateOfEntry        time.Time  `json:"date_of_entry"`
	DurationOfStay     int        `json:"duration_of_stay"`
	IntendedLocation   string     `json:"intended_location"`
	Email              string     `json:"email"`
	PhoneNumber        string     `json:"phone_number"`
	Status             VisaStatus `json:"status"`
	ReminderSent       bool       `json:"reminder_sent"`
	LastReminderDate   *time.Time `json:"last_reminder_date,omitempty"`
	ExitDate           *time.Time `json:"exit_date,omitempty"`
	RenewalDate        *time.Time `json:"renewal_date,omitempty"`
	Notes              *string    `json:"notes,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// DerivedStatus recomputes the status from the temporal fields. The stored
// Status can lag behind between sweep runs; anything shown to a human goes
// through this instead.
func (t *Tourist) DerivedStatus(today time.Time) VisaStatus {
	return Classify(today, t.VisaExpirationDate, t.ReminderSent, t.ExitDate, t.RenewalDate)
}

// IsTerminal reports whether the record left the reminder lifecycle. The
// sweep never touches terminal records.
func (t *Tourist) IsTerminal() bool {
	return t.ExitDate != nil || t.RenewalDate != nil
}

type CreateTouristRequest struct {
	FullName           string    `json:"full_name"`
	Nationality        string    `json:"nationality"`
	PassportNumber     string    `json:"passport_number"`
	VisaNumber         string    `json:"visa_number"`
	VisaType           string    `json:"visa_type"`
	VisaExpirationDate time.Time `json:"-"`
	DateOfEntry        time.Time `json:"-"`
	DurationOfStay     int       `json:"duration_of_stay"`
	IntendedLocation   string    `json:"intended_location"`
	Email              string    `json:"email"`
	PhoneNumber        string    `json:"phone_number"`
	Notes              *string   `json:"notes,omitempty"`
}

// VisaTypes is advisory; the field is stored unconstrained.
var VisaTypes = []string{"Tourist", "Business", "Transit", "Student", "Work"}

type Officer struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
