package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beijibiao/signstudio/internal/fal"
	"github.com/beijibiao/signstudio/internal/models"
	"github.com/beijibiao/signstudio/internal/notify"
	"github.com/beijibiao/signstudio/internal/service"
	"github.com/beijibiao/signstudio/internal/session"
)

type memAccountStore struct {
	balances map[string]int
}

func (m *memAccountStore) FindByPhone(ctx context.Context, phone string) (*models.Account, error) {
	credits, ok := m.balances[phone]
	if !ok {
		return nil, nil
	}
	return &models.Account{Phone: phone, Credits: credits}, nil
}

func (m *memAccountStore) Create(ctx context.Context, phone string, credits int) (*models.Account, error) {
	m.balances[phone] = credits
	return &models.Account{Phone: phone, Credits: credits}, nil
}

func (m *memAccountStore) Balance(ctx context.Context, phone string) (int, error) {
	return m.balances[phone], nil
}

func (m *memAccountStore) AddCredits(ctx context.Context, phone string, delta int) (int, error) {
	m.balances[phone] += delta
	return m.balances[phone], nil
}

func (m *memAccountStore) ConsumeCredit(ctx context.Context, phone string) (bool, error) {
	if m.balances[phone] < 1 {
		return false, nil
	}
	m.balances[phone]--
	return true, nil
}

func (m *memAccountStore) List(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	for phone, credits := range m.balances {
		accounts = append(accounts, models.Account{Phone: phone, Credits: credits})
	}
	return accounts, nil
}

type memRedemptionStore struct {
	accounts *memAccountStore
	used     map[string]string
}

func (m *memRedemptionStore) Redeem(ctx context.Context, phone, code string, bonus int) (int, error) {
	if _, taken := m.used[code]; taken {
		return 0, service.ErrCodeAlreadyUsed
	}
	m.used[code] = phone
	m.accounts.balances[phone] += bonus
	return m.accounts.balances[phone], nil
}

func (m *memRedemptionStore) List(ctx context.Context) ([]models.Redemption, error) {
	var redemptions []models.Redemption
	for code, phone := range m.used {
		redemptions = append(redemptions, models.Redemption{Code: code, Phone: phone})
	}
	return redemptions, nil
}

type stubBackend struct {
	err error
}

func (b *stubBackend) Generate(ctx context.Context, opts fal.GenerateOptions) (*fal.Image, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &fal.Image{URL: "https://cdn.example.com/out.png"}, nil
}

type nopHistory struct{}

func (nopHistory) Log(ctx context.Context, phone, prompt, imageShape, imageURL string) error {
	return nil
}

func (nopHistory) Latest(ctx context.Context, phone string) (*models.Generation, error) {
	return nil, nil
}

func newTestServer(t *testing.T) (*Server, *memAccountStore) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	accounts := &memAccountStore{balances: make(map[string]int)}
	redemptions := &memRedemptionStore{accounts: accounts, used: make(map[string]string)}
	sessions := session.NewManager()
	ledger := service.NewLedgerService(accounts, 3)

	srv := NewServer(":0", "admin", "secret", log, sessions,
		service.NewAuthService(ledger, sessions),
		ledger,
		service.NewRedemptionService(redemptions, []string{"VIP-2026"}, 20),
		service.NewGenerationService(log, ledger, sessions, &stubBackend{}, nopHistory{}, nil, 0),
		service.NewFeedbackService(notify.Noop{}),
	)
	return srv, accounts
}

func doJSON(t *testing.T, srv *Server, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func loginAs(t *testing.T, srv *Server, phone string) string {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/login", "", map[string]string{"phone": phone})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestServer_LoginAndAccount(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/login", "", map[string]string{"phone": "13800000000"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token   string `json:"token"`
		Phone   string `json:"phone"`
		Credits int    `json:"credits"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "13800000000", resp.Phone)
	assert.Equal(t, 3, resp.Credits)

	rec = doJSON(t, srv, http.MethodGet, "/api/account", resp.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_LoginRejectsBadPhone(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/login", "", map[string]string{"phone": "12345"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_GenerateRequiresSession(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/generate", "", map[string]any{"shopName": "X"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func generatePayload() map[string]any {
	return map[string]any{
		"shopName":      "BEI JI BIAO",
		"placeType":     "coffee shop",
		"designStyle":   "minimalist modern",
		"colorScheme":   "wood warm light",
		"boardMaterial": "solid oak",
		"textMaterial":  "brass letters",
		"widthMeters":   4.5,
		"heightMeters":  1.2,
	}
}

func TestServer_GenerateHappyPath(t *testing.T) {
	srv, accounts := newTestServer(t)
	token := loginAs(t, srv, "13800000000")

	rec := doJSON(t, srv, http.MethodPost, "/api/generate", token, generatePayload())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		ImageURL   string `json:"imageUrl"`
		ImageShape string `json:"imageShape"`
		Credits    int    `json:"credits"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://cdn.example.com/out.png", resp.ImageURL)
	assert.Equal(t, "landscape_21_9", resp.ImageShape)
	assert.Equal(t, 2, resp.Credits)
	assert.Equal(t, 2, accounts.balances["13800000000"])
}

func TestServer_GenerateWithoutBalance(t *testing.T) {
	srv, accounts := newTestServer(t)
	token := loginAs(t, srv, "13800000000")
	accounts.balances["13800000000"] = 0

	rec := doJSON(t, srv, http.MethodPost, "/api/generate", token, generatePayload())
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, 0, accounts.balances["13800000000"])
}

func TestServer_RedeemFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	token := loginAs(t, srv, "13800000000")

	rec := doJSON(t, srv, http.MethodPost, "/api/redeem", token, map[string]string{"code": "VIP-2026"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Credits int `json:"credits"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 23, resp.Credits)

	// Replay from another identity is a conflict.
	other := loginAs(t, srv, "13900000000")
	rec = doJSON(t, srv, http.MethodPost, "/api/redeem", other, map[string]string{"code": "VIP-2026"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Unknown code is not found.
	rec = doJSON(t, srv, http.MethodPost, "/api/redeem", token, map[string]string{"code": "NOPE"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_LogoutEndsSession(t *testing.T) {
	srv, _ := newTestServer(t)
	token := loginAs(t, srv, "13800000000")

	rec := doJSON(t, srv, http.MethodPost, "/api/logout", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/account", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_AdminAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/accounts", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/accounts", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_AdminGrantCredits(t *testing.T) {
	srv, accounts := newTestServer(t)

	raw, _ := json.Marshal(map[string]int{"amount": 10})
	req := httptest.NewRequest(http.MethodPost, "/admin/accounts/13800000000/credits", bytes.NewReader(raw))
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 13, accounts.balances["13800000000"], "initial grant plus manual top-up")
}

func TestServer_Feedback(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/feedback", "", map[string]string{
		"contact": "13800000000",
		"message": "love the renders",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/feedback", "", map[string]string{"contact": "", "message": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ResultEmptyWhenNoneGenerated(t *testing.T) {
	srv, _ := newTestServer(t)
	token := loginAs(t, srv, "13800000000")

	rec := doJSON(t, srv, http.MethodGet, "/api/result", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestServer_Healthz(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
