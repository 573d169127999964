package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("MYSQL_DSN", "user:pass@tcp(localhost:3306)/signstudio?parseTime=true")
	t.Setenv("FAL_API_KEY", "test-key")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "https://queue.fal.run", cfg.FalBaseURL)
	assert.Equal(t, "fal-ai/flux/schnell", cfg.FalModel)
	assert.Equal(t, 3, cfg.InitialCredits)
	assert.Equal(t, 20, cfg.RedeemBonusCredits)
	assert.Equal(t, []string{"VIP-2026"}, cfg.RedeemCodes)
	assert.False(t, cfg.ArchiveEnabled())
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("MYSQL_DSN", "")
	t.Setenv("FAL_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MYSQL_DSN")
	assert.Contains(t, err.Error(), "FAL_API_KEY")
}

func TestLoad_CodeListNormalized(t *testing.T) {
	setRequired(t)
	t.Setenv("REDEEM_CODES", " vip-2026, Launch-50 ,,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"VIP-2026", "LAUNCH-50"}, cfg.RedeemCodes)
}

func TestLoad_S3RequiresCompanions(t *testing.T) {
	setRequired(t)
	t.Setenv("S3_BUCKET", "renders")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_REGION")
}

func TestLoad_RejectsUnknownNotifyProvider(t *testing.T) {
	setRequired(t)
	t.Setenv("NOTIFY_PROVIDER", "carrier-pigeon")

	_, err := Load()
	require.Error(t, err)
}
