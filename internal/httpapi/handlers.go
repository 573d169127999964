package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/beijibiao/signstudio/internal/service"
	"github.com/beijibiao/signstudio/internal/signage"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Phone string `json:"phone"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	result, err := s.auth.Login(r.Context(), req.Phone)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPhone) {
			writeError(w, http.StatusBadRequest, "invalid phone number")
			return
		}
		s.log.Error("login failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":   result.Token,
		"phone":   result.Phone,
		"credits": result.Credits,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Logout(bearerToken(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	phone := identityFrom(r)
	credits, err := s.ledger.Balance(r.Context(), phone)
	if err != nil {
		s.log.Error("balance lookup failed", "phone", phone, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"phone":   phone,
		"credits": credits,
	})
}

type redeemRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	phone := identityFrom(r)
	credits, err := s.redemptions.Redeem(r.Context(), phone, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCodeInvalid):
			writeError(w, http.StatusNotFound, "redemption code invalid")
		case errors.Is(err, service.ErrCodeAlreadyUsed):
			writeError(w, http.StatusConflict, "redemption code already used")
		default:
			s.log.Error("redeem failed", "phone", phone, "err", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"credits": credits})
}

type generateRequest struct {
	ShopName      string  `json:"shopName"`
	PlaceType     string  `json:"placeType"`
	DesignStyle   string  `json:"designStyle"`
	ColorScheme   string  `json:"colorScheme"`
	BoardMaterial string  `json:"boardMaterial"`
	TextMaterial  string  `json:"textMaterial"`
	WidthMeters   float64 `json:"widthMeters"`
	HeightMeters  float64 `json:"heightMeters"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	phone := identityFrom(r)
	result, err := s.generator.Generate(r.Context(), phone, signage.BoardConfig{
		ShopName:      req.ShopName,
		PlaceType:     req.PlaceType,
		DesignStyle:   req.DesignStyle,
		ColorScheme:   req.ColorScheme,
		BoardMaterial: req.BoardMaterial,
		TextMaterial:  req.TextMaterial,
		WidthMeters:   req.WidthMeters,
		HeightMeters:  req.HeightMeters,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrInsufficientCredits):
			writeError(w, http.StatusPaymentRequired, "insufficient credits, please top up")
		case errors.Is(err, service.ErrGenerationInFlight):
			writeError(w, http.StatusConflict, "a generation is already in progress")
		case errors.Is(err, service.ErrGenerationFailed):
			writeError(w, http.StatusBadGateway, "generation failed, please retry")
		default:
			s.log.Error("generate failed", "phone", phone, "err", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"imageUrl":   result.ImageURL,
		"imageShape": result.ImageShape,
		"prompt":     result.Prompt,
		"credits":    result.Credits,
	})
}

func (s *Server) handleLastResult(w http.ResponseWriter, r *http.Request) {
	phone := identityFrom(r)
	result, err := s.generator.LastResult(r.Context(), phone)
	if err != nil {
		s.log.Error("last result lookup failed", "phone", phone, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if result == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"imageUrl":   result.ImageURL,
		"imageShape": result.ImageShape,
		"prompt":     result.Prompt,
	})
}

type feedbackRequest struct {
	Contact string `json:"contact"`
	Message string `json:"message"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := s.feedback.Submit(r.Context(), req.Contact, req.Message); err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "contact and message are required")
			return
		}
		s.log.Error("feedback relay failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.Accounts(r.Context())
	if err != nil {
		s.log.Error("list accounts failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	type accountView struct {
		Phone   string `json:"phone"`
		Credits int    `json:"credits"`
	}
	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, accountView{Phone: a.Phone, Credits: a.Credits})
	}
	writeJSON(w, http.StatusOK, views)
}

type grantRequest struct {
	Amount int `json:"amount"`
}

func (s *Server) handleGrantCredits(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	phone := chi.URLParam(r, "phone")
	if !signage.ValidPhone(phone) {
		writeError(w, http.StatusBadRequest, "invalid phone number")
		return
	}

	// Grant creates the account if the identity has never logged in.
	if _, err := s.ledger.Initialize(r.Context(), phone); err != nil {
		s.log.Error("grant initialize failed", "phone", phone, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	credits, err := s.ledger.Credit(r.Context(), phone, req.Amount)
	if err != nil {
		s.log.Error("grant failed", "phone", phone, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"phone": phone, "credits": credits})
}

func (s *Server) handleListRedemptions(w http.ResponseWriter, r *http.Request) {
	redemptions, err := s.redemptions.Redemptions(r.Context())
	if err != nil {
		s.log.Error("list redemptions failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	type redemptionView struct {
		Code       string `json:"code"`
		Phone      string `json:"phone"`
		RedeemedAt string `json:"redeemedAt"`
	}
	views := make([]redemptionView, 0, len(redemptions))
	for _, red := range redemptions {
		views = append(views, redemptionView{
			Code:       red.Code,
			Phone:      red.Phone,
			RedeemedAt: red.RedeemedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	writeJSON(w, http.StatusOK, views)
}
