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

	"loyalty-backend/internal/domains/voucher/model"
	"loyalty-backend/internal/shared/utils"
	"loyalty-backend/pkg/database"
)

// =====================================================
// POSTGRES REPOSITORY IMPLEMENTATION
// =====================================================
type postgresVoucherRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresVoucherRepository(pool *pgxpool.Pool) VoucherRepository {
	return &postgresVoucherRepository{
		pool: pool,
	}
}

const voucherColumns = `
	id, code, template_id, status, binded_to_phone_number,
	expiry_date, approved_at, approved_by, used_at, claim_requested_at,
	spent_amount, created_at, deleted_at
`

func scanVoucher(row pgx.Row) (*model.Voucher, error) {
	var v model.Voucher
	err := row.Scan(
		&v.ID,               // id
		&v.Code,             // code
		&v.TemplateID,       // template_id (nullable)
		&v.Status,           // status
		&v.BindedToPhone,    // binded_to_phone_number (nullable)
		&v.ExpiryDate,       // expiry_date (nullable)
		&v.ApprovedAt,       // approved_at (nullable)
		&v.ApprovedBy,       // approved_by (nullable)
		&v.UsedAt,           // used_at (nullable)
		&v.ClaimRequestedAt, // claim_requested_at (nullable)
		&v.SpentAmount,      // spent_amount
		&v.CreatedAt,        // created_at
		&v.DeletedAt,        // deleted_at (nullable)
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// isUniqueViolation kiểm tra Postgres unique constraint error (23505)
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// -------------------------------------------------------------------
// READ OPERATIONS
// -------------------------------------------------------------------

func (r *postgresVoucherRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE id = $1 AND deleted_at IS NULL`

	v, err := scanVoucher(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrVoucherNotFound
		}
		return nil, fmt.Errorf("find voucher by id: %w", err)
	}
	return v, nil
}

// FindByCode tìm voucher theo code, bỏ qua voucher đã soft-delete.
// Code của voucher claimed có thể được tái sử dụng, nên ưu tiên bản ghi
// còn "live" (available/active) rồi mới tới bản mới nhất.
func (r *postgresVoucherRepository) FindByCode(ctx context.Context, code string) (*model.Voucher, error) {
	query := `
		SELECT ` + voucherColumns + `
		FROM vouchers
		WHERE UPPER(code) = UPPER($1) AND deleted_at IS NULL
		ORDER BY (status IN ('available', 'active')) DESC, created_at DESC
		LIMIT 1
	`

	v, err := scanVoucher(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrVoucherNotFound
		}
		return nil, fmt.Errorf("find voucher by code: %w", err)
	}
	return v, nil
}

// LiveCodes tính uniqueness set cho code generator.
// Chỉ available/active chưa xóa - code của voucher claimed/deleted được
// phép tái sử dụng (giữ nguyên semantics này, xem test của code generator).
func (r *postgresVoucherRepository) LiveCodes(ctx context.Context) (map[string]struct{}, error) {
	query := `
		SELECT code FROM vouchers
		WHERE status IN ('available', 'active') AND deleted_at IS NULL
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list live codes: %w", err)
	}
	defer rows.Close()

	codes := make(map[string]struct{})
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan live code: %w", err)
		}
		codes[code] = struct{}{}
	}
	return codes, rows.Err()
}

// -------------------------------------------------------------------
// CREATE
// -------------------------------------------------------------------

const insertVoucherQuery = `
	INSERT INTO vouchers (
		id, code, template_id, status, binded_to_phone_number,
		expiry_date, approved_at, approved_by, spent_amount, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

func (r *postgresVoucherRepository) Insert(ctx context.Context, v *model.Voucher) error {
	_, err := r.pool.Exec(ctx, insertVoucherQuery,
		v.ID, v.Code, v.TemplateID, v.Status, v.BindedToPhone,
		v.ExpiryDate, v.ApprovedAt, v.ApprovedBy, v.SpentAmount, v.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrCodeTaken
		}
		return fmt.Errorf("insert voucher: %w", err)
	}
	return nil
}

func (r *postgresVoucherRepository) InsertBatch(ctx context.Context, vouchers []*model.Voucher) error {
	return database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		for _, v := range vouchers {
			_, err := tx.Exec(ctx, insertVoucherQuery,
				v.ID, v.Code, v.TemplateID, v.Status, v.BindedToPhone,
				v.ExpiryDate, v.ApprovedAt, v.ApprovedBy, v.SpentAmount, v.CreatedAt,
			)
			if err != nil {
				if isUniqueViolation(err) {
					return model.ErrCodeTaken
				}
				return fmt.Errorf("insert voucher batch: %w", err)
			}
		}
		return nil
	})
}

// -------------------------------------------------------------------
// STATE TRANSITIONS
// -------------------------------------------------------------------

// Bind chuyển available → active. Guard status ngay trong WHERE để hai
// request bind cùng lúc không ghi đè nhau.
func (r *postgresVoucherRepository) Bind(ctx context.Context, id uuid.UUID, phone string, expiry, approvedAt time.Time) error {
	query := `
		UPDATE vouchers
		SET status = 'active',
		    binded_to_phone_number = $2,
		    expiry_date = $3,
		    approved_at = $4
		WHERE id = $1 AND status = 'available' AND deleted_at IS NULL
	`

	tag, err := r.pool.Exec(ctx, query, id, phone, expiry, approvedAt)
	if err != nil {
		return fmt.Errorf("bind voucher: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotAvailable
	}
	return nil
}

// BulkBind gán N voucher available cùng tên cho N số điện thoại theo vị trí.
// Toàn bộ chạy trong một transaction: thiếu voucher → không bind gì cả.
func (r *postgresVoucherRepository) BulkBind(ctx context.Context, params BulkBindParams) ([]model.Voucher, error) {
	need := len(params.PhoneNumbers)

	return database.WithTransactionResult(ctx, r.pool, func(tx pgx.Tx) ([]model.Voucher, error) {
		// Lock N voucher available cũ nhất mang tên này
		rows, err := tx.Query(ctx, `
			SELECT v.id
			FROM vouchers v
			JOIN voucher_templates t ON t.id = v.template_id
			WHERE t.name = $1
			  AND v.status = 'available'
			  AND v.deleted_at IS NULL
			ORDER BY v.created_at ASC
			LIMIT $2
			FOR UPDATE OF v
		`, params.VoucherName, need)
		if err != nil {
			return nil, fmt.Errorf("select available vouchers: %w", err)
		}

		var ids []uuid.UUID
		for rows.Next() {
			var id uuid.UUID
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan voucher id: %w", err)
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}

		if len(ids) < need {
			return nil, &model.InsufficientVouchersError{
				Requested: need,
				Available: len(ids),
			}
		}

		bound := make([]model.Voucher, 0, need)
		for i, id := range ids {
			v, err := scanVoucher(tx.QueryRow(ctx, `
				UPDATE vouchers
				SET status = 'active',
				    binded_to_phone_number = $2,
				    expiry_date = $3,
				    approved_at = $4
				WHERE id = $1
				RETURNING `+voucherColumns,
				id, params.PhoneNumbers[i], params.ExpiryDate, params.ApprovedAt,
			))
			if err != nil {
				return nil, fmt.Errorf("bulk bind voucher %s: %w", id, err)
			}
			bound = append(bound, *v)
		}

		return bound, nil
	})
}

// RequestClaim đánh dấu khách muốn redeem. Chỉ set được khi voucher active.
func (r *postgresVoucherRepository) RequestClaim(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE vouchers
		SET claim_requested_at = $2
		WHERE id = $1 AND status = 'active' AND deleted_at IS NULL
	`

	tag, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("request claim: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotActive
	}
	return nil
}

// Claim là atomic unit của spec: voucher update + redemption row +
// cộng total_spending, commit cùng nhau hoặc rollback cả ba.
func (r *postgresVoucherRepository) Claim(ctx context.Context, params ClaimParams) (*model.Voucher, error) {
	return database.WithTransactionResult(ctx, r.pool, func(tx pgx.Tx) (*model.Voucher, error) {
		// 1. Chuyển voucher sang claimed, clear claim_requested_at.
		// Guard status <> 'claimed' trong WHERE: claim lần hai không có
		// row nào affected → reject, không sinh thêm dòng ledger.
		v, err := scanVoucher(tx.QueryRow(ctx, `
			UPDATE vouchers
			SET status = 'claimed',
			    approved_by = $2,
			    used_at = $3,
			    claim_requested_at = NULL,
			    spent_amount = $4
			WHERE id = $1 AND status <> 'claimed' AND deleted_at IS NULL
			RETURNING `+voucherColumns,
			params.VoucherID, params.ApprovedBy, params.UsedAt, params.SpentAmount,
		))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, model.ErrAlreadyClaimed
			}
			return nil, fmt.Errorf("claim voucher: %w", err)
		}

		// 2. Voucher không gán khách: claim vẫn thành công, bỏ qua ledger
		if v.BindedToPhone == nil {
			return v, nil
		}

		// 3. Cộng aggregate spending của khách. Nếu số điện thoại không
		// resolve ra khách hàng còn sống thì bỏ qua ledger luôn.
		tag, err := tx.Exec(ctx, `
			UPDATE users
			SET total_spending = total_spending + $2, updated_at = $3
			WHERE phone_number = $1 AND deleted_at IS NULL
		`, *v.BindedToPhone, params.SpentAmount, params.UsedAt)
		if err != nil {
			return nil, fmt.Errorf("increment customer spending: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return v, nil
		}

		// 4. Append dòng ledger bất biến
		_, err = tx.Exec(ctx, `
			INSERT INTO redemptions (id, voucher_id, customer_phone_number, amount, processed_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.New(), v.ID, *v.BindedToPhone, params.SpentAmount, params.ApprovedBy, params.UsedAt)
		if err != nil {
			return nil, fmt.Errorf("insert redemption: %w", err)
		}

		return v, nil
	})
}

// -------------------------------------------------------------------
// UPDATE / DELETE
// -------------------------------------------------------------------

func (r *postgresVoucherRepository) UpdateExpiry(ctx context.Context, id uuid.UUID, expiry *time.Time) error {
	query := `UPDATE vouchers SET expiry_date = $2 WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.pool.Exec(ctx, query, id, expiry)
	if err != nil {
		return fmt.Errorf("update voucher expiry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrVoucherNotFound
	}
	return nil
}

// SoftDelete đánh tombstone. Không cascade sang redemptions - ledger là
// audit trail độc lập với mutation về sau của voucher.
func (r *postgresVoucherRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE vouchers SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("soft delete voucher: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrVoucherNotFound
	}
	return nil
}

// -------------------------------------------------------------------
// LISTING
// -------------------------------------------------------------------

// List trả về voucher kèm presentation data, xếp theo contract của listing:
// active chưa hết hạn → available → claimed → active hết hạn,
// cùng hạng thì created_at giảm dần.
func (r *postgresVoucherRepository) List(ctx context.Context, filter model.ListFilter, p utils.Pagination) ([]model.VoucherResponse, int, error) {
	clauses := []string{"v.deleted_at IS NULL"}
	args := []interface{}{}
	argPos := 1

	if len(filter.Statuses) > 0 {
		var statusClauses []string
		for _, s := range filter.Statuses {
			switch s {
			case "active":
				// active = active và chưa quá expiry
				statusClauses = append(statusClauses,
					"(v.status = 'active' AND (v.expiry_date IS NULL OR v.expiry_date >= NOW()))")
			case "expired":
				// expired = active nhưng đã quá expiry (không phải status riêng)
				statusClauses = append(statusClauses,
					"(v.status = 'active' AND v.expiry_date < NOW())")
			default:
				statusClauses = append(statusClauses, fmt.Sprintf("v.status = $%d", argPos))
				args = append(args, s)
				argPos++
			}
		}
		clauses = append(clauses, "("+utils.JoinWithOr(statusClauses)+")")
	}

	if filter.BoundPhone != "" {
		clauses = append(clauses, fmt.Sprintf("v.binded_to_phone_number = $%d", argPos))
		args = append(args, filter.BoundPhone)
		argPos++
	}

	if filter.Search != "" {
		clauses = append(clauses,
			fmt.Sprintf("(v.code ILIKE $%d OR t.name ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}

	if filter.TemplateID != nil {
		clauses = append(clauses, fmt.Sprintf("v.template_id = $%d", argPos))
		args = append(args, *filter.TemplateID)
		argPos++
	}

	where := utils.JoinWithAnd(clauses)

	countQuery := `
		SELECT COUNT(*)
		FROM vouchers v
		LEFT JOIN voucher_templates t ON t.id = v.template_id
		WHERE ` + where

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count vouchers: %w", err)
	}

	listQuery := fmt.Sprintf(`
		SELECT
			v.id, v.code, v.template_id, v.status, v.binded_to_phone_number,
			v.expiry_date, v.approved_at, v.approved_by, v.used_at, v.claim_requested_at,
			v.spent_amount, v.created_at, v.deleted_at,
			COALESCE(t.name, ''), COALESCE(t.description, ''), COALESCE(t.image_url, '')
		FROM vouchers v
		LEFT JOIN voucher_templates t ON t.id = v.template_id
		WHERE %s
		ORDER BY
			CASE
				WHEN v.status = 'active' AND (v.expiry_date IS NULL OR v.expiry_date >= NOW()) THEN 0
				WHEN v.status = 'available' THEN 1
				WHEN v.status = 'claimed' THEN 2
				ELSE 3
			END,
			v.created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, argPos, argPos+1)
	args = append(args, p.Limit, p.Offset())

	rows, err := r.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list vouchers: %w", err)
	}
	defer rows.Close()

	var result []model.VoucherResponse
	for rows.Next() {
		var vr model.VoucherResponse
		err := rows.Scan(
			&vr.ID, &vr.Code, &vr.TemplateID, &vr.Status, &vr.BindedToPhone,
			&vr.ExpiryDate, &vr.ApprovedAt, &vr.ApprovedBy, &vr.UsedAt, &vr.ClaimRequestedAt,
			&vr.SpentAmount, &vr.CreatedAt, &vr.DeletedAt,
			&vr.Name, &vr.Description, &vr.ImageURL,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan voucher row: %w", err)
		}
		result = append(result, vr)
	}

	return result, total, rows.Err()
}

// ListRedemptions đọc ledger của một khách, mới nhất trước
func (r *postgresVoucherRepository) ListRedemptions(ctx context.Context, customerPhone string, p utils.Pagination) ([]model.Redemption, int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM redemptions WHERE customer_phone_number = $1`,
		customerPhone,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count redemptions: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, voucher_id, customer_phone_number, amount, processed_by, created_at
		FROM redemptions
		WHERE customer_phone_number = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, customerPhone, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list redemptions: %w", err)
	}
	defer rows.Close()

	var result []model.Redemption
	for rows.Next() {
		var rd model.Redemption
		err := rows.Scan(&rd.ID, &rd.VoucherID, &rd.CustomerPhone, &rd.Amount, &rd.ProcessedBy, &rd.CreatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("scan redemption: %w", err)
		}
		result = append(result, rd)
	}

	return result, total, rows.Err()
}

// CountExpiredSince phục vụ báo cáo định kỳ của worker
func (r *postgresVoucherRepository) CountExpiredSince(ctx context.Context, since, now time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM vouchers
		WHERE status = 'active'
		  AND deleted_at IS NULL
		  AND expiry_date > $1 AND expiry_date <= $2
	`, since, now).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count expired vouchers: %w", err)
	}
	return count, nil
}
