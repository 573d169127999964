package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/beijibiao/signstudio/internal/fal"
	"github.com/beijibiao/signstudio/internal/models"
	"github.com/beijibiao/signstudio/internal/session"
	"github.com/beijibiao/signstudio/internal/signage"
)

// ImageGenerator is the external generation collaborator. Implemented by
// fal.Client.
type ImageGenerator interface {
	Generate(ctx context.Context, opts fal.GenerateOptions) (*fal.Image, error)
}

// GenerationLog records successful generations and serves the last one back.
// Implemented by repository.GenerationRepository.
type GenerationLog interface {
	Log(ctx context.Context, phone, prompt, imageShape, imageURL string) error
	Latest(ctx context.Context, phone string) (*models.Generation, error)
}

// Archiver re-hosts a generated image under a durable URL. Optional; nil
// disables archiving.
type Archiver interface {
	ArchiveURL(ctx context.Context, sourceURL string) (string, error)
}

// GenerationService coordinates one signboard rendering: it gates on balance,
// derives the image geometry and prompt, issues a single-flight call to the
// generation backend and debits the ledger only after the backend produced an
// image. A failed call never costs a credit.
type GenerationService struct {
	log      *slog.Logger
	ledger   *LedgerService
	sessions *session.Manager
	backend  ImageGenerator
	history  GenerationLog
	archiver Archiver
	timeout  time.Duration
}

type GenerationResult struct {
	ImageURL   string
	ImageShape signage.ShapeTag
	Prompt     string
	Credits    int
}

func NewGenerationService(log *slog.Logger, ledger *LedgerService, sessions *session.Manager, backend ImageGenerator, history GenerationLog, archiver Archiver, timeout time.Duration) *GenerationService {
	return &GenerationService{
		log:      log,
		ledger:   ledger,
		sessions: sessions,
		backend:  backend,
		history:  history,
		archiver: archiver,
		timeout:  timeout,
	}
}

// Generate runs the full submit flow for an authenticated identity.
func (s *GenerationService) Generate(ctx context.Context, phone string, cfg signage.BoardConfig) (*GenerationResult, error) {
	cfg.ShopName = signage.SanitizeShopName(cfg.ShopName)
	if cfg.ShopName == "" {
		return nil, fmt.Errorf("%w: shop name is empty after filtering", ErrInvalidInput)
	}

	shape, err := signage.ResolveShape(cfg.WidthMeters, cfg.HeightMeters)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	// Balance gate before anything leaves the process. The authoritative
	// debit still happens after success; this check only stops obviously
	// unfunded submissions from reaching the backend.
	balance, err := s.ledger.Balance(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("check balance: %w", err)
	}
	if balance <= 0 {
		return nil, ErrInsufficientCredits
	}

	if !s.sessions.BeginFlight(phone) {
		return nil, ErrGenerationInFlight
	}
	defer s.sessions.EndFlight(phone)

	prompt := signage.ComposePrompt(cfg)

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	image, err := s.backend.Generate(callCtx, fal.GenerateOptions{
		Prompt:    prompt,
		ImageSize: string(shape),
	})
	if err != nil {
		s.log.Error("generation backend failed", "phone", phone, "err", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: timed out", ErrGenerationFailed)
		}
		return nil, fmt.Errorf("%w: %s", ErrGenerationFailed, err)
	}

	imageURL := image.URL
	if s.archiver != nil {
		// Archive failure is not worth losing the result over; fall back to
		// the backend's own URL.
		archived, archiveErr := s.archiver.ArchiveURL(ctx, imageURL)
		if archiveErr != nil {
			s.log.Error("failed to archive image", "phone", phone, "err", archiveErr)
		} else {
			imageURL = archived
		}
	}

	newBalance, err := s.ledger.Debit(ctx, phone)
	if err != nil {
		// The image exists either way; surface it with the balance we saw.
		s.log.Error("failed to debit after success", "phone", phone, "err", err)
		newBalance = balance
	}

	if err := s.history.Log(ctx, phone, prompt, string(shape), imageURL); err != nil {
		s.log.Error("failed to log generation", "phone", phone, "err", err)
	}

	return &GenerationResult{
		ImageURL:   imageURL,
		ImageShape: shape,
		Prompt:     prompt,
		Credits:    newBalance,
	}, nil
}

// LastResult returns the identity's most recent successful generation, or nil
// when none exists. A failed attempt never clears it; a result stays visible
// until a newer one replaces it.
func (s *GenerationService) LastResult(ctx context.Context, phone string) (*models.Generation, error) {
	result, err := s.history.Latest(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("latest generation: %w", err)
	}
	return result, nil
}
