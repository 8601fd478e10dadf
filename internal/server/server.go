// Package server is the thin command surface: it decodes JSON
// requests, invokes the settlement engine, and maps domain errors to
// HTTP statuses. It holds no settlement logic of its own.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/lincot/solana-ido/internal/domain"
	"github.com/lincot/solana-ido/internal/engine"
	"github.com/lincot/solana-ido/internal/infra"
	"github.com/lincot/solana-ido/internal/infra/storage"
	"github.com/lincot/solana-ido/internal/ledger"
)

// Server exposes the settlement operations over HTTP plus the
// websocket event feed.
type Server struct {
	cfg   *infra.Config
	eng   *engine.Settlement
	store *storage.Storage
	hub   *Hub
	httpd *http.Server
}

// New wires the handlers. store may be nil (no event history endpoint).
func New(cfg *infra.Config, eng *engine.Settlement, store *storage.Storage, hub *Hub) *Server {
	s := &Server{cfg: cfg, eng: eng, store: store, hub: hub}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/initialize", s.handleInitialize)
	mux.HandleFunc("POST /v1/members", s.handleRegisterMember)
	mux.HandleFunc("POST /v1/rounds/sale", s.handleStartSaleRound)
	mux.HandleFunc("POST /v1/rounds/trade", s.handleStartTradeRound)
	mux.HandleFunc("POST /v1/buy", s.handleBuyAcdm)
	mux.HandleFunc("POST /v1/orders", s.handleAddOrder)
	mux.HandleFunc("POST /v1/orders/redeem", s.handleRedeemOrder)
	mux.HandleFunc("POST /v1/orders/remove", s.handleRemoveOrder)
	mux.HandleFunc("POST /v1/withdraw", s.handleWithdraw)
	mux.HandleFunc("POST /v1/end", s.handleEndIdo)
	mux.HandleFunc("GET /v1/ido", s.handleGetIdo)
	mux.HandleFunc("GET /v1/members/{authority}", s.handleGetMember)
	mux.HandleFunc("GET /v1/orders/{id}", s.handleGetOrder)
	mux.HandleFunc("GET /v1/events", s.handleGetEvents)
	mux.HandleFunc("GET /v1/metrics", s.handleMetrics)
	mux.HandleFunc("GET /ws", hub.ServeWS)
	if cfg.Ido.Devnet {
		mux.HandleFunc("POST /v1/dev/accounts", s.handleDevCreateAccount)
		mux.HandleFunc("POST /v1/dev/airdrop", s.handleDevAirdrop)
	}

	s.httpd = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving HTTP until Shutdown.
func (s *Server) ListenAndServe() error {
	slog.Info("http server listening", slog.String("addr", s.httpd.Addr))
	err := s.httpd.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server and disconnects feed subscribers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpd.Shutdown(ctx)
}

// ======================================================================================
// Request/response plumbing
// ======================================================================================

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	infra.GlobalMetrics.RecordError()
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusOf maps domain and ledger errors to HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrNotInitialized),
		errors.Is(err, domain.ErrMemberMissing),
		errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, ledger.ErrMintNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyInitialized),
		errors.Is(err, domain.ErrMemberExists),
		errors.Is(err, domain.ErrRoundAlreadyStarted),
		errors.Is(err, domain.ErrNotSaleRound),
		errors.Is(err, domain.ErrNotTradeRound),
		errors.Is(err, domain.ErrCannotEndRound),
		errors.Is(err, domain.ErrIdoOver),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrAccountExists):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// ======================================================================================
// Operation handlers
// ======================================================================================

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Authority    domain.Address `json:"authority"`
		AcdmMint     domain.Address `json:"acdm_mint"`
		UsdcMint     domain.Address `json:"usdc_mint"`
		RoundTimeSec int64          `json:"round_time_sec"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.eng.Initialize(req.Authority, req.AcdmMint, req.UsdcMint, req.RoundTimeSec); err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "initialized"})
}

func (s *Server) handleRegisterMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Authority domain.Address   `json:"authority"`
		Referer   *domain.Address  `json:"referer,omitempty"`
		Accounts  []domain.Address `json:"accounts,omitempty"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.eng.RegisterMember(req.Authority, req.Referer, req.Accounts); err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"record": domain.MemberAddress(req.Authority).String(),
	})
}

func (s *Server) handleStartSaleRound(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.eng.StartSaleRound)
}

func (s *Server) handleStartTradeRound(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.eng.StartTradeRound)
}

func (s *Server) handleEndIdo(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.eng.EndIdo)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request, op func(domain.Address) error) {
	var req struct {
		Authority domain.Address `json:"authority"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := op(req.Authority); err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	s.handleGetIdo(w, r)
}

func (s *Server) handleBuyAcdm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Buyer    domain.Address   `json:"buyer"`
		Amount   uint64           `json:"amount"`
		Accounts []domain.Address `json:"accounts,omitempty"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.eng.BuyAcdm(req.Buyer, req.Amount, req.Accounts); err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "bought"})
}

func (s *Server) handleAddOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seller domain.Address `json:"seller"`
		Amount uint64         `json:"amount"`
		Price  uint64         `json:"price"`
	}
	if !decode(w, r, &req) {
		return
	}
	id, err := s.eng.AddOrder(req.Seller, req.Amount, req.Price)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"id": id})
}

func (s *Server) handleRedeemOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Buyer    domain.Address   `json:"buyer"`
		ID       uint64           `json:"id"`
		Amount   uint64           `json:"amount"`
		Accounts []domain.Address `json:"accounts,omitempty"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.eng.RedeemOrder(req.Buyer, req.ID, req.Amount, req.Accounts); err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "redeemed"})
}

func (s *Server) handleRemoveOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller domain.Address `json:"caller"`
		ID     uint64         `json:"id"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.eng.RemoveOrder(req.Caller, req.ID); err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Authority domain.Address `json:"authority"`
		To        domain.Address `json:"to"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.eng.WithdrawIdoUsdc(req.Authority, req.To); err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "withdrawn"})
}

// ======================================================================================
// Read handlers
// ======================================================================================

func (s *Server) handleGetIdo(w http.ResponseWriter, _ *http.Request) {
	ido, ok := s.eng.Ido()
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrNotInitialized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authority":           ido.Authority,
		"state":               ido.State.String(),
		"acdm_mint":           ido.AcdmMint,
		"usdc_mint":           ido.UsdcMint,
		"acdm_price":          ido.AcdmPrice,
		"acdm_price_display":  displayAmount(ido.AcdmPrice, s.cfg.Display.UsdcDecimals),
		"usdc_traded":         ido.UsdcTraded,
		"usdc_traded_display": displayAmount(ido.UsdcTraded, s.cfg.Display.UsdcDecimals),
		"orders":              ido.Orders,
		"round_time_sec":      ido.RoundTime,
		"round_started_at":    ido.CurrentStateStartTS,
		"sale_rounds_started": ido.SaleRoundsStarted,
	})
}

func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	authority, err := domain.ParseAddress(r.PathValue("authority"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	m, ok := s.eng.MemberOf(authority)
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrMemberMissing)
		return
	}
	resp := map[string]any{
		"authority": m.Authority,
		"record":    m.RecordAddress(),
	}
	if m.Referer != nil {
		resp["referer"] = *m.Referer
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	order, ok := s.eng.Order(id)
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrOrderNotFound)
		return
	}
	remaining, _ := s.eng.EscrowBalance(id)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":                order.ID,
		"seller":            order.Authority,
		"price":             order.Price,
		"price_display":     displayAmount(order.Price, s.cfg.Display.UsdcDecimals),
		"remaining":         remaining,
		"remaining_display": displayAmount(remaining, s.cfg.Display.AcdmDecimals),
	})
}

func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, errors.New("event log not available"))
		return
	}
	var from uint64
	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		from = parsed
	}
	events, err := s.store.Events(from, 1000)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, infra.GlobalMetrics.Snapshot())
}

// ======================================================================================
// Devnet handlers
// ======================================================================================

func (s *Server) handleDevCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner domain.Address `json:"owner"`
		Mint  domain.Address `json:"mint"`
	}
	if !decode(w, r, &req) {
		return
	}
	addr, err := s.eng.CreateTokenAccount(req.Owner, req.Mint)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"address": addr.String()})
}

func (s *Server) handleDevAirdrop(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner  domain.Address `json:"owner"`
		Mint   domain.Address `json:"mint"`
		Amount uint64         `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.eng.Airdrop(s.cfg.Authority(), req.Owner, req.Mint, req.Amount); err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "funded"})
}
