package service

import (
	"context"
	"fmt"

	"github.com/beijibiao/signstudio/internal/models"
)

// AccountStore is the persistence surface the ledger needs. Implemented by
// repository.AccountRepository; every mutation runs as a conditional statement
// against the live row, never against a cached balance.
type AccountStore interface {
	FindByPhone(ctx context.Context, phone string) (*models.Account, error)
	Create(ctx context.Context, phone string, credits int) (*models.Account, error)
	Balance(ctx context.Context, phone string) (int, error)
	AddCredits(ctx context.Context, phone string, delta int) (int, error)
	ConsumeCredit(ctx context.Context, phone string) (bool, error)
	List(ctx context.Context) ([]models.Account, error)
}

// LedgerService owns the authoritative per-identity credit balance.
type LedgerService struct {
	accounts     AccountStore
	initialGrant int
}

func NewLedgerService(accounts AccountStore, initialGrant int) *LedgerService {
	return &LedgerService{accounts: accounts, initialGrant: initialGrant}
}

// Initialize creates the account with the starting grant on first sight of an
// identity and returns the current balance. Idempotent: an existing account
// is returned as is.
func (s *LedgerService) Initialize(ctx context.Context, phone string) (int, error) {
	account, err := s.accounts.FindByPhone(ctx, phone)
	if err != nil {
		return 0, fmt.Errorf("find account: %w", err)
	}
	if account != nil {
		return account.Credits, nil
	}

	created, err := s.accounts.Create(ctx, phone, s.initialGrant)
	if err != nil {
		return 0, fmt.Errorf("create account: %w", err)
	}
	return created.Credits, nil
}

// Balance reads the current credit count.
func (s *LedgerService) Balance(ctx context.Context, phone string) (int, error) {
	return s.accounts.Balance(ctx, phone)
}

// Debit consumes exactly one credit and returns the new balance. It fails
// with ErrInsufficientCredits, leaving the stored value untouched, when the
// balance is already zero.
func (s *LedgerService) Debit(ctx context.Context, phone string) (int, error) {
	ok, err := s.accounts.ConsumeCredit(ctx, phone)
	if err != nil {
		return 0, fmt.Errorf("debit: %w", err)
	}
	if !ok {
		return 0, ErrInsufficientCredits
	}
	balance, err := s.accounts.Balance(ctx, phone)
	if err != nil {
		return 0, fmt.Errorf("balance after debit: %w", err)
	}
	return balance, nil
}

// Credit grants amount credits and returns the new balance.
func (s *LedgerService) Credit(ctx context.Context, phone string, amount int) (int, error) {
	balance, err := s.accounts.AddCredits(ctx, phone, amount)
	if err != nil {
		return 0, fmt.Errorf("credit: %w", err)
	}
	return balance, nil
}

// Accounts lists all ledger rows for the operator surface.
func (s *LedgerService) Accounts(ctx context.Context) ([]models.Account, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}
