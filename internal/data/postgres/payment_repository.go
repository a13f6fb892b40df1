package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/savings-fund-ledger/internal/domain/ledger"
	"github.com/savings-fund-ledger/internal/domain/payment"
	"github.com/savings-fund-ledger/internal/platform/persistence"
)

const paymentColumns = `id, external_id, user_id, personal_code, amount::text, status, previous_status, description, created_at, status_changed_at`

// PaymentRepository implements payment.Repository for PostgreSQL
type PaymentRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewPaymentRepository(logger *slog.Logger, querier persistence.Querier) *PaymentRepository {
	return &PaymentRepository{querier: querier, logger: logger}
}

// WithTx returns a repository bound to tx
func (r *PaymentRepository) WithTx(tx pgx.Tx) *PaymentRepository {
	return &PaymentRepository{querier: tx, logger: r.logger}
}

func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	query := `
		INSERT INTO saving_fund_payment (id, external_id, user_id, personal_code, amount, status, description, created_at, status_changed_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		p.ID,
		p.ExternalID,
		p.UserID,
		p.PersonalCode,
		p.Amount.StringFixed(ledger.AssetTypeEUR.MaxDecimals()),
		p.Status,
		p.Description,
		p.CreatedAt,
		p.StatusChangedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create payment", "external_id", p.ExternalID.String(), "error", err)
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM saving_fund_payment WHERE id = $1`

	p, err := scanPayment(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrPaymentNotFound{PaymentID: id}
		}
		r.logger.Error("Failed to get payment", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// FindByStatus returns the payments in status, oldest first
func (r *PaymentRepository) FindByStatus(ctx context.Context, status payment.Status) ([]*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM saving_fund_payment WHERE status = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.querier.Query(ctx, query, status)
	if err != nil {
		r.logger.Error("Failed to find payments by status", "status", string(status), "error", err)
		return nil, fmt.Errorf("failed to find payments by status: %w", err)
	}
	defer rows.Close()

	var payments []*payment.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over payments: %w", err)
	}
	return payments, nil
}

// UpdateStatus is a compare-and-set on the status column. Inside a transaction the row stays
// locked until commit, so a concurrent claim waits and then sees the new status.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to payment.Status) error {
	query := `
		UPDATE saving_fund_payment
		SET status = $1, previous_status = $4, status_changed_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.querier.Exec(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		r.logger.Error("Failed to update payment status", "id", id.String(), "status", string(to), "error", err)
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return payment.ErrStatusChanged
	}
	return nil
}

func scanPayment(row pgx.Row) (*payment.Payment, error) {
	var p payment.Payment
	var amount string
	var personalCode, previousStatus, description *string
	err := row.Scan(
		&p.ID,
		&p.ExternalID,
		&p.UserID,
		&personalCode,
		&amount,
		&p.Status,
		&previousStatus,
		&description,
		&p.CreatedAt,
		&p.StatusChangedAt,
	)
	if err != nil {
		return nil, err
	}
	if personalCode != nil {
		p.PersonalCode = *personalCode
	}
	if previousStatus != nil {
		p.PreviousStatus = payment.Status(*previousStatus)
	}
	if description != nil {
		p.Description = *description
	}
	if p.Amount, err = parseAmount(amount, ledger.AssetTypeEUR); err != nil {
		return nil, err
	}
	return &p, nil
}
