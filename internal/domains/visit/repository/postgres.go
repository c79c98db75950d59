package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"loyalty-backend/internal/domains/visit/model"
	"loyalty-backend/internal/shared/utils"
	"loyalty-backend/pkg/database"
)

type postgresVisitRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresVisitRepository(pool *pgxpool.Pool) VisitRepository {
	return &postgresVisitRepository{pool: pool}
}

const visitColumns = `
	id, customer_phone, processed_by, created_at,
	revoked_at, revoked_by, revocation_reason,
	is_reward_generated, reward_voucher_id
`

func scanVisit(row pgx.Row) (*model.Visit, error) {
	var v model.Visit
	err := row.Scan(
		&v.ID,                // id
		&v.CustomerPhone,     // customer_phone
		&v.ProcessedBy,       // processed_by
		&v.CreatedAt,         // created_at
		&v.RevokedAt,         // revoked_at (nullable)
		&v.RevokedBy,         // revoked_by (nullable)
		&v.RevocationReason,  // revocation_reason (nullable)
		&v.IsRewardGenerated, // is_reward_generated
		&v.RewardVoucherID,   // reward_voucher_id (nullable)
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Active visit: chưa thu hồi, chưa tham gia reward.
const activeVisitClause = `revoked_at IS NULL AND is_reward_generated = FALSE`

func (r *postgresVisitRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	query := `SELECT ` + visitColumns + ` FROM visits WHERE id = $1`

	v, err := scanVisit(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrVisitNotFound
		}
		return nil, fmt.Errorf("find visit by id: %w", err)
	}
	return v, nil
}

func (r *postgresVisitRepository) CountActive(ctx context.Context, phone string) (int, error) {
	query := `SELECT COUNT(*) FROM visits WHERE customer_phone = $1 AND ` + activeVisitClause

	var count int
	if err := r.pool.QueryRow(ctx, query, phone).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active visits: %w", err)
	}
	return count, nil
}

func (r *postgresVisitRepository) RecordVisit(ctx context.Context, v *model.Visit, cardSize int) error {
	return database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		// Advisory lock theo khách: serialize các lần ghi visit cùng một
		// số điện thoại, vì dưới READ COMMITTED recount không thấy được
		// insert chưa commit của transaction kia. Lock tự nhả khi
		// transaction kết thúc.
		_, err := tx.Exec(ctx,
			`SELECT pg_advisory_xact_lock(hashtext($1))`, v.CustomerPhone)
		if err != nil {
			return fmt.Errorf("lock customer card: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO visits (id, customer_phone, processed_by, created_at, is_reward_generated)
			VALUES ($1, $2, $3, $4, FALSE)
		`, v.ID, v.CustomerPhone, v.ProcessedBy, v.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert visit: %w", err)
		}

		// Recount trong transaction, sau khi đã giữ lock.
		var count int
		err = tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM visits
			WHERE customer_phone = $1 AND `+activeVisitClause,
			v.CustomerPhone).Scan(&count)
		if err != nil {
			return fmt.Errorf("recount active visits: %w", err)
		}
		if count > cardSize {
			return model.ErrCardFull
		}

		return nil
	})
}

func (r *postgresVisitRepository) IssueReward(ctx context.Context, params IssueRewardParams) ([]uuid.UUID, error) {
	return database.WithTransactionResult(ctx, r.pool, func(tx pgx.Tx) ([]uuid.UUID, error) {
		// Khóa và chọn cardSize visit active cũ nhất (FIFO).
		rows, err := tx.Query(ctx, `
			SELECT id FROM visits
			WHERE customer_phone = $1 AND `+activeVisitClause+`
			ORDER BY created_at ASC
			LIMIT $2
			FOR UPDATE
		`, params.CustomerPhone, params.CardSize)
		if err != nil {
			return nil, fmt.Errorf("lock active visits: %w", err)
		}

		var visitIDs []uuid.UUID
		for rows.Next() {
			var id uuid.UUID
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan visit id: %w", err)
			}
			visitIDs = append(visitIDs, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}

		if len(visitIDs) < params.CardSize {
			return nil, model.ErrCardNotFull
		}

		// Voucher thưởng: phát hành thẳng ở trạng thái active, gán khách.
		_, err = tx.Exec(ctx, `
			INSERT INTO vouchers (
				id, code, template_id, status, binded_to_phone_number,
				expiry_date, approved_at, approved_by, spent_amount, created_at
			) VALUES ($1, $2, $3, 'active', $4, $5, $6, $7, 0, $6)
		`, params.VoucherID, params.Code, params.TemplateID, params.CustomerPhone,
			params.ExpiryDate, params.IssuedAt, params.ApprovedBy)
		if err != nil {
			return nil, fmt.Errorf("insert reward voucher: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE visits
			SET is_reward_generated = TRUE, reward_voucher_id = $2
			WHERE id = ANY($1)
		`, visitIDs, params.VoucherID)
		if err != nil {
			return nil, fmt.Errorf("stamp visits: %w", err)
		}
		if int(tag.RowsAffected()) != len(visitIDs) {
			return nil, fmt.Errorf("stamp visits: expected %d rows, got %d", len(visitIDs), tag.RowsAffected())
		}

		return visitIDs, nil
	})
}

func (r *postgresVisitRepository) Revoke(ctx context.Context, id uuid.UUID, revokedBy uuid.UUID, reason string) error {
	// Guard nằm trong WHERE: visit đã revoke hoặc đã đổi thưởng thì
	// UPDATE không chạm hàng nào, phân loại lỗi bằng một SELECT sau đó.
	tag, err := r.pool.Exec(ctx, `
		UPDATE visits
		SET revoked_at = $2, revoked_by = $3, revocation_reason = $4
		WHERE id = $1 AND `+activeVisitClause,
		id, time.Now(), revokedBy, reason)
	if err != nil {
		return fmt.Errorf("revoke visit: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	v, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if v.IsRewardGenerated {
		return model.ErrVisitImmutable
	}
	return model.ErrAlreadyRevoked
}

// visitWithRewardColumns: visit join với code voucher thưởng (nếu có).
// Voucher đã xóa vẫn hiển thị được code.
const visitWithRewardColumns = `
	v.id, v.customer_phone, v.processed_by, v.created_at,
	v.revoked_at, v.revoked_by, v.revocation_reason,
	v.is_reward_generated, v.reward_voucher_id, vo.code
`

func scanVisitWithReward(rows pgx.Rows) (model.Visit, error) {
	var v model.Visit
	err := rows.Scan(&v.ID, &v.CustomerPhone, &v.ProcessedBy, &v.CreatedAt,
		&v.RevokedAt, &v.RevokedBy, &v.RevocationReason,
		&v.IsRewardGenerated, &v.RewardVoucherID, &v.RewardVoucherCode)
	return v, err
}

func (r *postgresVisitRepository) ListByPhone(ctx context.Context, phone string, p utils.Pagination) ([]model.Visit, int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM visits WHERE customer_phone = $1`, phone).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count visits: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+visitWithRewardColumns+`
		FROM visits v
		LEFT JOIN vouchers vo ON vo.id = v.reward_voucher_id
		WHERE v.customer_phone = $1
		ORDER BY v.created_at DESC
		LIMIT $2 OFFSET $3
	`, phone, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list visits: %w", err)
	}
	defer rows.Close()

	var visits []model.Visit
	for rows.Next() {
		v, err := scanVisitWithReward(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan visit: %w", err)
		}
		visits = append(visits, v)
	}
	return visits, total, rows.Err()
}

// GetProgress đọc toàn bộ lịch sử visit của khách (kể cả đã thu hồi và
// đã đổi thưởng, kèm code voucher thưởng) rồi suy ra trạng thái thẻ từ đó.
func (r *postgresVisitRepository) GetProgress(ctx context.Context, phone string, cardSize int) (*model.Progress, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+visitWithRewardColumns+`
		FROM visits v
		LEFT JOIN vouchers vo ON vo.id = v.reward_voucher_id
		WHERE v.customer_phone = $1
		ORDER BY v.created_at DESC
	`, phone)
	if err != nil {
		return nil, fmt.Errorf("load visit history: %w", err)
	}
	defer rows.Close()

	progress := &model.Progress{
		CustomerPhone: phone,
		CardSize:      cardSize,
	}
	for rows.Next() {
		v, err := scanVisitWithReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		if v.IsActive() {
			progress.ActiveVisits++
		}
		// History sort DESC nên reward đầu tiên gặp là reward gần nhất.
		if v.IsRewardGenerated && progress.LastRewardVoucherID == nil {
			progress.LastRewardVoucherID = v.RewardVoucherID
			progress.LastRewardVoucherCode = v.RewardVoucherCode
		}
		progress.History = append(progress.History, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load visit history: %w", err)
	}
	progress.RewardReady = progress.ActiveVisits >= cardSize

	return progress, nil
}
