package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/borderdesk/visatrack/internal/domain"
)

type OfficerRepository interface {
	Create(ctx context.Context, email, passwordHash, name, role string) (*domain.Officer, error)
	FindByEmail(ctx context.Context, email string) (*domain.Officer, error)
	FindByID(ctx context.Context, id int64) (*domain.Officer, error)
}

type officerRepository struct {
	pool *pgxpool.Pool
}

func NewOfficerRepository(pool *pgxpool.Pool) OfficerRepository {
	return &officerRepository{pool: pool}
}

const officerCols = `id, email, password_hash, name, role, created_at`

func (r *officerRepository) Create(ctx context.Context, email, passwordHash, name, role string) (*domain.Officer, error) {
	const q = `
		INSERT INTO officers (email, password_hash, name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + officerCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var o domain.Officer
	err := r.pool.QueryRow(ctx, q, email, passwordHash, name, role).Scan(
		&o.ID, &o.Email, &o.PasswordHash, &o.Name, &o.Role, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *officerRepository) FindByEmail(ctx context.Context, email string) (*domain.Officer, error) {
	const q = `SELECT ` + officerCols + ` FROM officers WHERE email = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var o domain.Officer
	err := r.pool.QueryRow(ctx, q, email).Scan(
		&o.ID, &o.Email, &o.PasswordHash, &o.Name, &o.Role, &o.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &o, err
}

func (r *officerRepository) FindByID(ctx context.Context, id int64) (*domain.Officer, error) {
	const q = `SELECT ` + officerCols + ` FROM officers WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var o domain.Officer
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&o.ID, &o.Email, &o.PasswordHash, &o.Name, &o.Role, &o.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &o, err
}
