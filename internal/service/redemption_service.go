package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/beijibiao/signstudio/internal/models"
)

// RedemptionStore applies the mark-and-credit state transition as one
// transaction. Implemented by repository.RedemptionRepository.
type RedemptionStore interface {
	Redeem(ctx context.Context, phone, code string, bonus int) (int, error)
	List(ctx context.Context) ([]models.Redemption, error)
}

// RedemptionService validates codes against the configured set and applies
// accepted ones. The valid set is fixed at startup; the used set lives in the
// store and is shared by all identities.
type RedemptionService struct {
	store    RedemptionStore
	validSet map[string]struct{}
	bonus    int
}

func NewRedemptionService(store RedemptionStore, validCodes []string, bonus int) *RedemptionService {
	validSet := make(map[string]struct{}, len(validCodes))
	for _, code := range validCodes {
		validSet[normalizeCode(code)] = struct{}{}
	}
	return &RedemptionService{store: store, validSet: validSet, bonus: bonus}
}

// Redeem grants the bonus for a recognized, unused code and returns the new
// balance. Unknown codes report ErrCodeInvalid before the used set is ever
// consulted; a known but consumed code reports ErrCodeAlreadyUsed with no
// state change.
func (s *RedemptionService) Redeem(ctx context.Context, phone, code string) (int, error) {
	normalized := normalizeCode(code)
	if _, ok := s.validSet[normalized]; !ok {
		return 0, ErrCodeInvalid
	}

	balance, err := s.store.Redeem(ctx, phone, normalized, s.bonus)
	if err != nil {
		if errors.Is(err, ErrCodeAlreadyUsed) {
			return 0, ErrCodeAlreadyUsed
		}
		return 0, fmt.Errorf("apply redemption: %w", err)
	}
	return balance, nil
}

// Redemptions lists consumed codes for the operator surface.
func (s *RedemptionService) Redemptions(ctx context.Context) ([]models.Redemption, error) {
	redemptions, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	return redemptions, nil
}

// Codes match case-insensitively; one canonical upper-case form is stored.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
