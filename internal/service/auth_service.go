package service

import (
	"context"
	"fmt"

	"github.com/beijibiao/signstudio/internal/session"
	"github.com/beijibiao/signstudio/internal/signage"
)

// AuthService resolves phone identities into sessions. Identity proof is the
// phone string itself: an advisory scheme, not a security boundary.
type AuthService struct {
	ledger   *LedgerService
	sessions *session.Manager
}

type LoginResult struct {
	Token   string
	Phone   string
	Credits int
}

func NewAuthService(ledger *LedgerService, sessions *session.Manager) *AuthService {
	return &AuthService{ledger: ledger, sessions: sessions}
}

// Login validates the candidate phone, ensures its ledger entry exists (first
// login receives the starting grant) and starts a session.
func (s *AuthService) Login(ctx context.Context, phone string) (*LoginResult, error) {
	if !signage.ValidPhone(phone) {
		return nil, ErrInvalidPhone
	}

	credits, err := s.ledger.Initialize(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("initialize ledger: %w", err)
	}

	return &LoginResult{
		Token:   s.sessions.Start(phone),
		Phone:   phone,
		Credits: credits,
	}, nil
}

// Logout drops only the active-session pointer; the account and its credits
// survive for the next login.
func (s *AuthService) Logout(token string) {
	s.sessions.End(token)
}
