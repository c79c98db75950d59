package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"loyalty-backend/internal/domains/template/model"
)

type postgresTemplateRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresTemplateRepository(pool *pgxpool.Pool) TemplateRepository {
	return &postgresTemplateRepository{pool: pool}
}

const templateColumns = `id, name, description, image_url, created_at, updated_at`

func scanTemplate(row pgx.Row) (*model.Template, error) {
	var t model.Template
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.ImageURL, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *postgresTemplateRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM voucher_templates WHERE id = $1`

	t, err := scanTemplate(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("find template by id: %w", err)
	}
	return t, nil
}

func (r *postgresTemplateRepository) FindByName(ctx context.Context, name string) (*model.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM voucher_templates WHERE name = $1 ORDER BY created_at ASC LIMIT 1`

	t, err := scanTemplate(r.pool.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("find template by name: %w", err)
	}
	return t, nil
}

func (r *postgresTemplateRepository) FindDefault(ctx context.Context) (*model.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM voucher_templates ORDER BY created_at ASC LIMIT 1`

	t, err := scanTemplate(r.pool.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNoTemplates
		}
		return nil, fmt.Errorf("find default template: %w", err)
	}
	return t, nil
}

func (r *postgresTemplateRepository) List(ctx context.Context) ([]model.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM voucher_templates ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []model.Template
	for rows.Next() {
		var t model.Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.ImageURL, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (r *postgresTemplateRepository) Insert(ctx context.Context, t *model.Template) error {
	query := `
		INSERT INTO voucher_templates (id, name, description, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query, t.ID, t.Name, t.Description, t.ImageURL, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

func (r *postgresTemplateRepository) Update(ctx context.Context, t *model.Template) error {
	query := `
		UPDATE voucher_templates
		SET name = $2, description = $3, image_url = $4, updated_at = $5
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, t.ID, t.Name, t.Description, t.ImageURL, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTemplateNotFound
	}
	return nil
}

func (r *postgresTemplateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM voucher_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTemplateNotFound
	}
	return nil
}
