package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the API server and supporting
// services.
type Config struct {
	ListenAddr        string
	MySQLDSN          string
	FalAPIKey         string
	FalBaseURL        string
	FalModel          string
	RequestTimeout    time.Duration
	GenerationTimeout time.Duration

	InitialCredits     int
	RedeemBonusCredits int
	RedeemCodes        []string

	AdminUsername string
	AdminPassword string

	NotifyProvider   string
	WxPusherBaseURL  string
	WxPusherAppToken string
	WxPusherUID      string
	TelegramBotToken string
	TelegramChatID   int64

	S3Endpoint      string
	S3Region        string
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3PublicBaseURL string
	S3UsePathStyle  bool
	S3Prefix        string
}

// ArchiveEnabled reports whether generated images should be re-uploaded to S3
// for durable URLs. Archiving is optional; the fal CDN URL is used directly
// when no bucket is configured.
func (c Config) ArchiveEnabled() bool {
	return c.S3Bucket != ""
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
		FalBaseURL:         strings.TrimRight(getEnv("FAL_BASE_URL", "https://queue.fal.run"), "/"),
		FalModel:           getEnv("FAL_MODEL", "fal-ai/flux/schnell"),
		RequestTimeout:     time.Second * time.Duration(getInt("HTTP_TIMEOUT_SECONDS", 60)),
		GenerationTimeout:  time.Second * time.Duration(getInt("GENERATION_TIMEOUT_SECONDS", 180)),
		InitialCredits:     getInt("INITIAL_CREDITS", 3),
		RedeemBonusCredits: getInt("REDEEM_BONUS_CREDITS", 20),
		RedeemCodes:        splitCodes(getEnv("REDEEM_CODES", "VIP-2026")),
		AdminUsername:      getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:      getEnv("ADMIN_PASSWORD", "change-me"),
		NotifyProvider:     strings.ToLower(getEnv("NOTIFY_PROVIDER", "wxpusher")),
		WxPusherBaseURL:    getEnv("WXPUSHER_BASE_URL", "https://wxpusher.zjiecode.com"),
		WxPusherAppToken:   os.Getenv("WXPUSHER_APP_TOKEN"),
		WxPusherUID:        os.Getenv("WXPUSHER_UID"),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:     getInt64("TELEGRAM_CHAT_ID", 0),
		S3Endpoint:         getEnv("S3_ENDPOINT", ""),
		S3Region:           os.Getenv("S3_REGION"),
		S3AccessKey:        os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:        os.Getenv("S3_SECRET_KEY"),
		S3Bucket:           os.Getenv("S3_BUCKET"),
		S3PublicBaseURL:    os.Getenv("S3_PUBLIC_BASE_URL"),
		S3UsePathStyle:     getBool("S3_USE_PATH_STYLE", false),
		S3Prefix:           getEnv("S3_PREFIX", "signboards"),
	}

	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")
	cfg.FalAPIKey = os.Getenv("FAL_API_KEY")

	var missing []string
	if cfg.MySQLDSN == "" {
		missing = append(missing, "MYSQL_DSN")
	}
	if cfg.FalAPIKey == "" {
		missing = append(missing, "FAL_API_KEY")
	}
	if cfg.ArchiveEnabled() {
		if cfg.S3Region == "" {
			missing = append(missing, "S3_REGION")
		}
		if cfg.S3AccessKey == "" {
			missing = append(missing, "S3_ACCESS_KEY")
		}
		if cfg.S3SecretKey == "" {
			missing = append(missing, "S3_SECRET_KEY")
		}
		if cfg.S3PublicBaseURL == "" {
			missing = append(missing, "S3_PUBLIC_BASE_URL")
		}
	}
	switch cfg.NotifyProvider {
	case "wxpusher", "telegram", "none":
	default:
		return Config{}, fmt.Errorf("unsupported NOTIFY_PROVIDER: %s", cfg.NotifyProvider)
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}
	if len(cfg.RedeemCodes) == 0 {
		return Config{}, fmt.Errorf("REDEEM_CODES must not be empty")
	}

	return cfg, nil
}

// splitCodes normalizes the configured redemption code list. Matching is
// case-insensitive, so codes are stored upper-cased once here.
func splitCodes(raw string) []string {
	var codes []string
	for _, part := range strings.Split(raw, ",") {
		code := strings.ToUpper(strings.TrimSpace(part))
		if code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	// Running purely on ambient environment variables is fine.
	return nil
}
