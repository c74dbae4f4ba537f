package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/borderdesk/visatrack/internal/domain"
)

type TouristRepository interface {
	Create(ctx context.Context, req *domain.CreateTouristRequest, status domain.VisaStatus) (*domain.Tourist, error)
	GetByID(ctx context.Context, id int64) (*domain.Tourist, error)
	List(ctx context.Context, limit, offset int) ([]domain.Tourist, error)
	ListAll(ctx context.Context) ([]domain.Tourist, error)
	ListByStatus(ctx context.Context, status domain.VisaStatus, limit, offset int) ([]domain.Tourist, error)
	ListByNationality(ctx context.Context, nationality string, limit, offset int) ([]domain.Tourist, error)
	FindByPassport(ctx context.Context, passportNumber string) (*domain.Tourist, error)
	MarkReminderSent(ctx context.Context, id int64, today time.Time) (bool, error)
	RecordManualReminder(ctx context.Context, id int64, today time.Time) (bool, error)
	MarkExpired(ctx context.Context, id int64) (bool, error)
	RecordExit(ctx context.Context, id int64, exitDate time.Time, notes *string) (*domain.Tourist, error)
	RecordRenewal(ctx context.Context, id int64, renewalDate, newExpirationDate time.Time, notes *string) (*domain.Tourist, error)
}

type touristRepository struct {
	pool *pgxpool.Pool
}

func NewTouristRepository(pool *pgxpool.Pool) TouristRepository {
	return &touristRepository{pool: pool}
}

const touristCols = `id, full_name, nationality, passport_number,
visa_number, visa_type, visa_expiration_date,
date_of_entry, duration_of_stay, intended_location,
email, phone_number, status, reminder_sent,
last_reminder_date, exit_date, renewal_date, notes,
created_at, updated_at`

func scanTourist(row pgx.Row) (*domain.Tourist, error) {
	var t domain.Tourist
	err := row.Scan(
		&t.ID, &t.FullName, &t.Nationality, &t.PassportNumber,
		&t.VisaNumber, &t.VisaType, &t.VisaExpirationDate,
		&t.DateOfEntry, &t.DurationOfStay, &t.IntendedLocation,
		&t.Email, &t.PhoneNumber, &t.Status, &t.ReminderSent,
		&t.LastReminderDate, &t.ExitDate, &t.RenewalDate, &t.Notes,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *touristRepository) Create(ctx context.Context, req *domain.CreateTouristRequest, status domain.VisaStatus) (*domain.Tourist, error) {
	const q = `INSERT INTO tourists (
		full_name, nationality, passport_number,
		visa_number, visa_type, visa_expiration_date,
		date_of_entry, duration_of_stay, intended_location,
		email, phone_number, status, reminder_sent, notes
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,false,$13)
	RETURNING ` + touristCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanTourist(r.pool.QueryRow(ctx, q,
		req.FullName, req.Nationality, req.PassportNumber,
		req.VisaNumber, req.VisaType, req.VisaExpirationDate,
		req.DateOfEntry, req.DurationOfStay, req.IntendedLocation,
		req.Email, req.PhoneNumber, status, req.Notes,
	))
}

func (r *touristRepository) GetByID(ctx context.Context, id int64) (*domain.Tourist, error) {
	const q = `SELECT ` + touristCols + ` FROM tourists WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	t, err := scanTourist(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (r *touristRepository) List(ctx context.Context, limit, offset int) ([]domain.Tourist, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `SELECT ` + touristCols + ` FROM tourists ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTourists(rows)
}

// ListAll is the full-table scan used by the sweep and the dashboard
// aggregator.
func (r *touristRepository) ListAll(ctx context.Context) ([]domain.Tourist, error) {
	const q = `SELECT ` + touristCols + ` FROM tourists ORDER BY id`
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTourists(rows)
}

func (r *touristRepository) ListByStatus(ctx context.Context, status domain.VisaStatus, limit, offset int) ([]domain.Tourist, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `SELECT ` + touristCols + ` FROM tourists WHERE status=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTourists(rows)
}

func (r *touristRepository) ListByNationality(ctx context.Context, nationality string, limit, offset int) ([]domain.Tourist, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `SELECT ` + touristCols + ` FROM tourists WHERE lower(nationality)=lower($1) ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, nationality, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTourists(rows)
}

func (r *touristRepository) FindByPassport(ctx context.Context, passportNumber string) (*domain.Tourist, error) {
	const q = `SELECT ` + touristCols + ` FROM tourists WHERE passport_number=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	t, err := scanTourist(r.pool.QueryRow(ctx, q, passportNumber))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// MarkReminderSent flips the reminder flag and caches the Alert Sent status.
// The WHERE guards make the patch idempotent and keep the sweep from touching
// terminal records even if it races a manual exit or renewal.
func (r *touristRepository) MarkReminderSent(ctx context.Context, id int64, today time.Time) (bool, error) {
	const q = `
		UPDATE tourists
		SET reminder_sent = true,
		    last_reminder_date = $2,
		    status = 'Alert Sent',
		    updated_at = now()
		WHERE id = $1
		  AND reminder_sent = false
		  AND exit_date IS NULL
		  AND renewal_date IS NULL`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, today)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// RecordManualReminder is the officer-triggered variant. Unlike the sweep's
// MarkReminderSent it patches unconditionally, so a repeat send always
// refreshes last_reminder_date; only exit/renewal block it.
func (r *touristRepository) RecordManualReminder(ctx context.Context, id int64, today time.Time) (bool, error) {
	const q = `
		UPDATE tourists
		SET reminder_sent = true,
		    last_reminder_date = $2,
		    status = 'Alert Sent',
		    updated_at = now()
		WHERE id = $1
		  AND exit_date IS NULL
		  AND renewal_date IS NULL`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, today)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// MarkExpired caches the Expired status. Only the status column changes;
// reminder_sent and last_reminder_date are left alone.
func (r *touristRepository) MarkExpired(ctx context.Context, id int64) (bool, error) {
	const q = `
		UPDATE tourists
		SET status = 'Expired', updated_at = now()
		WHERE id = $1
		  AND status != 'Expired'
		  AND exit_date IS NULL
		  AND renewal_date IS NULL`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (r *touristRepository) RecordExit(ctx context.Context, id int64, exitDate time.Time, notes *string) (*domain.Tourist, error) {
	const q = `
		UPDATE tourists
		SET exit_date = $2,
		    status = 'Left',
		    notes = COALESCE($3, notes),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + touristCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	t, err := scanTourist(r.pool.QueryRow(ctx, q, id, exitDate, notes))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// RecordRenewal swaps in the new expiration and resets the reminder flag so
// the record carries a clean cycle forward.
func (r *touristRepository) RecordRenewal(ctx context.Context, id int64, renewalDate, newExpirationDate time.Time, notes *string) (*domain.Tourist, error) {
	const q = `
		UPDATE tourists
		SET renewal_date = $2,
		    visa_expiration_date = $3,
		    status = 'Renewed',
		    reminder_sent = false,
		    notes = COALESCE($4, notes),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + touristCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	t, err := scanTourist(r.pool.QueryRow(ctx, q, id, renewalDate, newExpirationDate, notes))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func collectTourists(rows pgx.Rows) ([]domain.Tourist, error) {
	var tourists []domain.Tourist
	for rows.Next() {
		t, err := scanTourist(rows)
		if err != nil {
			return nil, err
		}
		tourists = append(tourists, *t)
	}
	return tourists, rows.Err()
}
