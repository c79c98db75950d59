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

	"loyalty-backend/internal/domains/customer/model"
	"loyalty-backend/internal/shared/utils"
	"loyalty-backend/pkg/database"
)

type postgresCustomerRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresCustomerRepository(pool *pgxpool.Pool) CustomerRepository {
	return &postgresCustomerRepository{pool: pool}
}

const customerColumns = `
	id, phone_number, name, date_of_birth, total_spending,
	created_at, updated_at, deleted_at
`

func scanCustomer(row pgx.Row) (*model.Customer, error) {
	var c model.Customer
	err := row.Scan(
		&c.ID,            // id
		&c.PhoneNumber,   // phone_number
		&c.Name,          // name
		&c.DateOfBirth,   // date_of_birth (nullable)
		&c.TotalSpending, // total_spending
		&c.CreatedAt,     // created_at
		&c.UpdatedAt,     // updated_at
		&c.DeletedAt,     // deleted_at (nullable)
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *postgresCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`

	c, err := scanCustomer(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("find customer by id: %w", err)
	}
	return c, nil
}

func (r *postgresCustomerRepository) FindByPhone(ctx context.Context, phone string) (*model.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM users WHERE phone_number = $1 AND deleted_at IS NULL`

	c, err := scanCustomer(r.pool.QueryRow(ctx, query, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("find customer by phone: %w", err)
	}
	return c, nil
}

func (r *postgresCustomerRepository) List(ctx context.Context, search string, p utils.Pagination) ([]model.Customer, int, error) {
	clauses := []string{"deleted_at IS NULL"}
	args := []interface{}{}
	argPos := 1

	if search != "" {
		clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR phone_number ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+search+"%")
		argPos++
	}

	where := utils.JoinWithAnd(clauses)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM users
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, customerColumns, where, argPos, argPos+1)
	args = append(args, p.Limit, p.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		var c model.Customer
		err := rows.Scan(&c.ID, &c.PhoneNumber, &c.Name, &c.DateOfBirth, &c.TotalSpending,
			&c.CreatedAt, &c.UpdatedAt, &c.DeletedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, total, rows.Err()
}

func (r *postgresCustomerRepository) Insert(ctx context.Context, c *model.Customer) error {
	query := `
		INSERT INTO users (id, phone_number, name, date_of_birth, total_spending, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.PhoneNumber, c.Name, c.DateOfBirth, c.TotalSpending, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrPhoneTaken
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func (r *postgresCustomerRepository) Update(ctx context.Context, c *model.Customer) error {
	query := `
		UPDATE users
		SET phone_number = $2, name = $3, date_of_birth = $4, updated_at = $5
		WHERE id = $1 AND deleted_at IS NULL
	`

	tag, err := r.pool.Exec(ctx, query, c.ID, c.PhoneNumber, c.Name, c.DateOfBirth, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrPhoneTaken
		}
		return fmt.Errorf("update customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCustomerNotFound
	}
	return nil
}

func (r *postgresCustomerRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.pool.Exec(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("soft delete customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCustomerNotFound
	}
	return nil
}

// RebindPhone re-key voucher khi số điện thoại của khách thay đổi.
//
// Ba bước trong một transaction:
//  1. null-out binded_to_phone_number trên các voucher đang gán số cũ
//  2. update customer record (mang số mới)
//  3. gán số mới lên đúng các voucher đó
//
// Bước null trung gian tránh transient violation với FK/unique constraint
// eager trên cột phone. Không có voucher nào gán số cũ thì chỉ cần update
// customer, không mở transaction.
func (r *postgresCustomerRepository) RebindPhone(ctx context.Context, c *model.Customer, oldPhone string) error {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM vouchers
		WHERE binded_to_phone_number = $1 AND deleted_at IS NULL
	`, oldPhone)
	if err != nil {
		return fmt.Errorf("collect bound vouchers: %w", err)
	}

	var voucherIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan voucher id: %w", err)
		}
		voucherIDs = append(voucherIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if len(voucherIDs) == 0 {
		return r.Update(ctx, c)
	}

	return database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE vouchers SET binded_to_phone_number = NULL
			WHERE id = ANY($1)
		`, voucherIDs)
		if err != nil {
			return fmt.Errorf("unbind vouchers: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE users
			SET phone_number = $2, name = $3, date_of_birth = $4, updated_at = $5
			WHERE id = $1 AND deleted_at IS NULL
		`, c.ID, c.PhoneNumber, c.Name, c.DateOfBirth, c.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return model.ErrPhoneTaken
			}
			return fmt.Errorf("update customer: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return model.ErrCustomerNotFound
		}

		_, err = tx.Exec(ctx, `
			UPDATE vouchers SET binded_to_phone_number = $2
			WHERE id = ANY($1)
		`, voucherIDs, c.PhoneNumber)
		if err != nil {
			return fmt.Errorf("rebind vouchers: %w", err)
		}

		return nil
	})
}
