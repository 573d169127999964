package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/beijibiao/signstudio/internal/config"
	"github.com/beijibiao/signstudio/internal/database"
	"github.com/beijibiao/signstudio/internal/fal"
	"github.com/beijibiao/signstudio/internal/httpapi"
	"github.com/beijibiao/signstudio/internal/notify"
	"github.com/beijibiao/signstudio/internal/repository"
	"github.com/beijibiao/signstudio/internal/service"
	"github.com/beijibiao/signstudio/internal/session"
	"github.com/beijibiao/signstudio/internal/storage"
	"github.com/beijibiao/signstudio/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	accountRepo := repository.NewAccountRepository(db)
	redemptionRepo := repository.NewRedemptionRepository(db)
	generationRepo := repository.NewGenerationRepository(db)

	sessions := session.NewManager()
	falClient := fal.NewClient(cfg, logr)

	var archiver service.Archiver
	if cfg.ArchiveEnabled() {
		a, err := storage.NewArchiver(storage.Config{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicBaseURL,
			UsePathStyle:  cfg.S3UsePathStyle,
			Prefix:        cfg.S3Prefix,
		})
		if err != nil {
			log.Fatalf("storage archiver: %v", err)
		}
		archiver = a
	}

	notifier, err := buildNotifier(cfg, logr)
	if err != nil {
		log.Fatalf("notifier: %v", err)
	}

	ledgerService := service.NewLedgerService(accountRepo, cfg.InitialCredits)
	authService := service.NewAuthService(ledgerService, sessions)
	redemptionService := service.NewRedemptionService(redemptionRepo, cfg.RedeemCodes, cfg.RedeemBonusCredits)
	generationService := service.NewGenerationService(logr, ledgerService, sessions, falClient, generationRepo, archiver, cfg.GenerationTimeout)
	feedbackService := service.NewFeedbackService(notifier)

	server := httpapi.NewServer(cfg.ListenAddr, cfg.AdminUsername, cfg.AdminPassword, logr, sessions,
		authService, ledgerService, redemptionService, generationService, feedbackService)

	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("server stopped", "err", err)
	}
}

func buildNotifier(cfg config.Config, logr *slog.Logger) (notify.Notifier, error) {
	switch cfg.NotifyProvider {
	case "wxpusher":
		if cfg.WxPusherAppToken == "" || cfg.WxPusherUID == "" {
			logr.Warn("wxpusher credentials missing, feedback relay disabled")
			return notify.Noop{}, nil
		}
		return notify.NewWxPusher(cfg.WxPusherBaseURL, cfg.WxPusherAppToken, cfg.WxPusherUID, logr), nil
	case "telegram":
		if cfg.TelegramBotToken == "" || cfg.TelegramChatID == 0 {
			logr.Warn("telegram credentials missing, feedback relay disabled")
			return notify.Noop{}, nil
		}
		return notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
	default:
		return notify.Noop{}, nil
	}
}
