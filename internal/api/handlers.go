package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"nfc-wallet-go/internal/models"
	"nfc-wallet-go/internal/settlement"
	"nfc-wallet-go/internal/store"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (s *Service) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", s.Health)

	r.Group(func(r chi.Router) {
		r.Use(requireUser)
		r.Post("/api/sessions", s.CreateSession)
		r.Get("/api/sessions/{sessionId}", s.GetSessionStatus)
		r.Post("/api/redeem", s.Redeem)
		r.Get("/api/wallet/balance", s.GetBalance)
		r.Post("/api/wallet/topup", s.TopUp)
		r.Get("/api/transactions", s.GetHistory)
		r.Get("/api/transactions/{transactionId}", s.GetTransaction)
	})
}

// requireUser extracts the caller identity set by the upstream auth layer.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-User-Id") == "" {
			writeError(w, http.StatusUnauthorized, "missing caller identity")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func callerId(r *http.Request) string {
	return r.Header.Get("X-User-Id")
}

func (s *Service) Health(w http.ResponseWriter, r *http.Request) {
	if err := s.HealthCheck(r.Context()); err != nil {
		zap.L().Error("Health check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "unhealthy")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	defer r.Body.Close()

	amount, err := models.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	wallet, err := s.db.GetWalletByOwner(r.Context(), callerId(r))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	session, err := s.sessions.Create(callerId(r), wallet.Id, amount, req.Description)
	if err != nil {
		zap.L().Error("Failed to create session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, models.CreateSessionResponse{
		SessionId:        session.Id,
		Amount:           models.FormatAmount(session.Amount),
		Status:           session.Status,
		ReceiverWalletId: session.ReceiverWalletId,
		CreatedAt:        session.CreatedAt,
		ExpiresAt:        session.ExpiresAt,
	})
}

func (s *Service) GetSessionStatus(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessions.Get(chi.URLParam(r, "sessionId"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, models.SessionStatusResponse{
		SessionId: session.Id,
		Amount:    models.FormatAmount(session.Amount),
		Status:    session.Status,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
}

func (s *Service) Redeem(w http.ResponseWriter, r *http.Request) {
	var req models.RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	defer r.Body.Close()

	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	amount, err := models.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	transaction, err := s.engine.Redeem(r.Context(), settlement.RedeemParams{
		MerchantUserId:   callerId(r),
		TokenString:      req.Token,
		DeclaredAmount:   amount,
		MerchantWalletId: req.MerchantWalletId,
		IdempotencyKey:   req.IdempotencyKey,
		SessionId:        req.SessionId,
		Metadata:         req.Metadata,
	})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	merchantWallet, werr := s.db.GetWalletByOwner(r.Context(), callerId(r))
	direction := ""
	if werr == nil {
		direction = directionFor(transaction, merchantWallet.Id)
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(transaction, direction))
}

func (s *Service) GetBalance(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.db.GetWalletByOwner(r.Context(), callerId(r))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.BalanceResponse{
		WalletId: wallet.Id,
		Balance:  models.FormatAmount(wallet.Balance),
		Currency: wallet.Currency,
		Status:   wallet.Status,
	})
}

func (s *Service) TopUp(w http.ResponseWriter, r *http.Request) {
	var req models.TopUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	defer r.Body.Close()

	amount, err := models.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	wallet, err := s.db.GetWalletByOwner(r.Context(), callerId(r))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	transaction, err := s.db.TopUp(r.Context(), store.TopUpParams{
		WalletId:  wallet.Id,
		Amount:    amount,
		Reference: req.Reference,
	})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionResponse(transaction, ""))
}

func (s *Service) GetHistory(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.db.GetWalletByOwner(r.Context(), callerId(r))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "pageSize", defaultPageSize)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	offset := (page - 1) * pageSize

	transactions, total, err := s.db.GetTransactionHistory(r.Context(), wallet.Id, pageSize, offset)
	if err != nil {
		zap.L().Error("Failed to get transaction history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]models.TransactionResponse, 0, len(transactions))
	for i := range transactions {
		t := &transactions[i]
		items = append(items, toTransactionResponse(t, directionFor(t, wallet.Id)))
	}

	totalPages := (total + pageSize - 1) / pageSize
	writeJSON(w, http.StatusOK, models.HistoryResponse{
		Transactions: items,
		Pagination: models.Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasMore:    offset+len(items) < total,
		},
	})
}

func (s *Service) GetTransaction(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.db.GetWalletByOwner(r.Context(), callerId(r))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	transaction, err := s.db.GetTransaction(r.Context(), chi.URLParam(r, "transactionId"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	// Participants only; outsiders get the same 404 as a missing row.
	if transaction.PayerWalletId != wallet.Id && transaction.MerchantWalletId != wallet.Id {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}

	writeJSON(w, http.StatusOK, toTransactionResponse(transaction, directionFor(transaction, wallet.Id)))
}

func directionFor(t *models.Transaction, walletId string) string {
	if t.PayerWalletId == walletId && t.Type != models.TypeTopUp {
		return "outgoing"
	}
	return "incoming"
}

func toTransactionResponse(t *models.Transaction, direction string) models.TransactionResponse {
	return models.TransactionResponse{
		Id:               t.Id,
		PayerWalletId:    t.PayerWalletId,
		MerchantWalletId: t.MerchantWalletId,
		Amount:           models.FormatAmount(t.Amount),
		Currency:         t.Currency,
		Type:             t.Type,
		Status:           t.Status,
		Direction:        direction,
		CreatedAt:        t.CreatedAt,
		CompletedAt:      t.CompletedAt,
	}
}

// writeStoreError maps settlement and storage errors onto HTTP statuses.
// All authenticity failures map to the same 400.
func (s *Service) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidToken),
		errors.Is(err, store.ErrTokenExpired),
		errors.Is(err, store.ErrFutureTimestamp),
		errors.Is(err, store.ErrAmountMismatch),
		errors.Is(err, store.ErrMerchantMismatch),
		errors.Is(err, store.ErrCurrencyMismatch):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrReplay):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrWalletNotFound),
		errors.Is(err, store.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrWalletSuspended):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, store.ErrIntegrity):
		zap.L().Error("Integrity fault surfaced to API", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "settlement integrity fault, contact support")
	default:
		zap.L().Error("Unexpected error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("Failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}
