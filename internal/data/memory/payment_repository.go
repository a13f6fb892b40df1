package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/savings-fund-ledger/internal/domain/payment"
)

// paymentRepository implements payment.Repository over the store state, so status changes
// made inside InTx roll back with the postings
type paymentRepository struct {
	store accessor
}

var _ payment.Repository = (*paymentRepository)(nil)

func (r *paymentRepository) Create(_ context.Context, p *payment.Payment) error {
	return r.store.write(func(st *state) error {
		for _, existing := range st.payments {
			if existing.ExternalID == p.ExternalID {
				return fmt.Errorf("payment with external id %s already exists", p.ExternalID)
			}
		}
		copied := *p
		st.payments[p.ID] = &copied
		return nil
	})
}

func (r *paymentRepository) GetByID(_ context.Context, id uuid.UUID) (*payment.Payment, error) {
	var found *payment.Payment
	err := r.store.read(func(st *state) error {
		p, ok := st.payments[id]
		if !ok {
			return payment.ErrPaymentNotFound{PaymentID: id}
		}
		copied := *p
		found = &copied
		return nil
	})
	return found, err
}

func (r *paymentRepository) FindByStatus(_ context.Context, status payment.Status) ([]*payment.Payment, error) {
	var result []*payment.Payment
	err := r.store.read(func(st *state) error {
		for _, p := range st.payments {
			if p.Status == status {
				copied := *p
				result = append(result, &copied)
			}
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, err
}

func (r *paymentRepository) UpdateStatus(_ context.Context, id uuid.UUID, from, to payment.Status) error {
	return r.store.write(func(st *state) error {
		p, ok := st.payments[id]
		if !ok || p.Status != from {
			return payment.ErrStatusChanged
		}
		updated := *p
		updated.PreviousStatus = from
		updated.Status = to
		updated.StatusChangedAt = time.Now().UTC()
		st.payments[id] = &updated
		return nil
	})
}
