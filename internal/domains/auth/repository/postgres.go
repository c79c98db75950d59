package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"loyalty-backend/internal/domains/auth/model"
)

type postgresStaffRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresStaffRepository(pool *pgxpool.Pool) StaffRepository {
	return &postgresStaffRepository{pool: pool}
}

const staffColumns = `
	id, phone, name, password_hash, role, is_active,
	last_login_at, created_at, updated_at
`

func scanStaff(row pgx.Row) (*model.StaffAccount, error) {
	var s model.StaffAccount
	err := row.Scan(
		&s.ID,           // id
		&s.Phone,        // phone
		&s.Name,         // name
		&s.PasswordHash, // password_hash
		&s.Role,         // role
		&s.IsActive,     // is_active
		&s.LastLoginAt,  // last_login_at (nullable)
		&s.CreatedAt,    // created_at
		&s.UpdatedAt,    // updated_at
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *postgresStaffRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.StaffAccount, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_accounts WHERE id = $1`

	s, err := scanStaff(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrStaffNotFound
		}
		return nil, fmt.Errorf("find staff by id: %w", err)
	}
	return s, nil
}

func (r *postgresStaffRepository) FindByPhone(ctx context.Context, phone string) (*model.StaffAccount, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_accounts WHERE phone = $1`

	s, err := scanStaff(r.pool.QueryRow(ctx, query, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrStaffNotFound
		}
		return nil, fmt.Errorf("find staff by phone: %w", err)
	}
	return s, nil
}

func (r *postgresStaffRepository) Insert(ctx context.Context, s *model.StaffAccount) error {
	query := `
		INSERT INTO staff_accounts (id, phone, name, password_hash, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		s.ID, s.Phone, s.Name, s.PasswordHash, s.Role, s.IsActive, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.ErrPhoneTaken
		}
		return fmt.Errorf("insert staff: %w", err)
	}
	return nil
}

func (r *postgresStaffRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE staff_accounts SET last_login_at = $2 WHERE id = $1`, id, time.Now())
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

func (r *postgresStaffRepository) List(ctx context.Context) ([]model.StaffAccount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+staffColumns+` FROM staff_accounts ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	defer rows.Close()

	var accounts []model.StaffAccount
	for rows.Next() {
		var s model.StaffAccount
		err := rows.Scan(&s.ID, &s.Phone, &s.Name, &s.PasswordHash, &s.Role, &s.IsActive,
			&s.LastLoginAt, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan staff: %w", err)
		}
		accounts = append(accounts, s)
	}
	return accounts, rows.Err()
}
