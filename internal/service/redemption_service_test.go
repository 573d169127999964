package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beijibiao/signstudio/internal/models"
)

type mockRedemptionStore struct {
	redeemFn func(ctx context.Context, phone, code string, bonus int) (int, error)
	listFn   func(ctx context.Context) ([]models.Redemption, error)
}

func (m *mockRedemptionStore) Redeem(ctx context.Context, phone, code string, bonus int) (int, error) {
	if m.redeemFn != nil {
		return m.redeemFn(ctx, phone, code, bonus)
	}
	return 0, nil
}

func (m *mockRedemptionStore) List(ctx context.Context) ([]models.Redemption, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func TestRedemptionService_UnknownCode(t *testing.T) {
	called := false
	store := &mockRedemptionStore{
		redeemFn: func(ctx context.Context, phone, code string, bonus int) (int, error) {
			called = true
			return 0, nil
		},
	}
	svc := NewRedemptionService(store, []string{"VIP-2026"}, 20)

	_, err := svc.Redeem(context.Background(), "13800000000", "NOT-A-CODE")
	require.ErrorIs(t, err, ErrCodeInvalid)
	assert.False(t, called, "unknown codes must be rejected before touching the store")
}

func TestRedemptionService_AcceptedCode(t *testing.T) {
	var gotPhone, gotCode string
	var gotBonus int
	store := &mockRedemptionStore{
		redeemFn: func(ctx context.Context, phone, code string, bonus int) (int, error) {
			gotPhone, gotCode, gotBonus = phone, code, bonus
			return 23, nil
		},
	}
	svc := NewRedemptionService(store, []string{"VIP-2026"}, 20)

	balance, err := svc.Redeem(context.Background(), "13800000000", "VIP-2026")
	require.NoError(t, err)
	assert.Equal(t, 23, balance)
	assert.Equal(t, "13800000000", gotPhone)
	assert.Equal(t, "VIP-2026", gotCode)
	assert.Equal(t, 20, gotBonus)
}

func TestRedemptionService_CaseInsensitive(t *testing.T) {
	var gotCode string
	store := &mockRedemptionStore{
		redeemFn: func(ctx context.Context, phone, code string, bonus int) (int, error) {
			gotCode = code
			return 23, nil
		},
	}
	svc := NewRedemptionService(store, []string{"VIP-2026"}, 20)

	_, err := svc.Redeem(context.Background(), "13800000000", "  vip-2026 ")
	require.NoError(t, err)
	assert.Equal(t, "VIP-2026", gotCode, "codes are stored in one canonical form")
}

func TestRedemptionService_AlreadyUsed(t *testing.T) {
	store := &mockRedemptionStore{
		redeemFn: func(ctx context.Context, phone, code string, bonus int) (int, error) {
			return 0, ErrCodeAlreadyUsed
		},
	}
	svc := NewRedemptionService(store, []string{"VIP-2026"}, 20)

	// Second redemption by a different identity still reports already-used.
	_, err := svc.Redeem(context.Background(), "13900000000", "VIP-2026")
	require.ErrorIs(t, err, ErrCodeAlreadyUsed)
}
