// Package transporthttp is the thin HTTP layer over the node. It delegates to
// the core without embedding business logic; its one real job besides routing
// is translating domain error codes into HTTP status codes.
package transporthttp

import (
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"metrina/internal/node"
	"metrina/internal/platform/middleware"
	dErrors "metrina/pkg/domain-errors"
)

// registrationValidity is how long a record registered through the API lasts.
// The original deployment registered users with an effectively unbounded
// expiry; a century is the same statement in time.Time terms.
const registrationValidity = 100 * 365 * 24 * time.Hour

// Handler exposes the pass-through API surface.
type Handler struct {
	logger    *slog.Logger
	node      *node.Node
	server    common.Address // operator account used as registrar and sender
	chainID   *big.Int
	validator middleware.JWTValidator
}

func NewHandler(logger *slog.Logger, n *node.Node, server common.Address, chainID *big.Int, validator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:    logger,
		node:      n,
		server:    server,
		chainID:   chainID,
		validator: validator,
	}
}

// Router wires all public endpoints.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.Logger(h.logger))

	r.Get("/token/list", h.handleTokenList)
	r.Get("/token/info/{address}", h.handleTokenInfo)
	r.Get("/user/valid/{address}", h.handleUserValid)
	r.Get("/user/balance/{address}", h.handleUserBalance)
	r.Get("/transaction/{id}", h.handleTransaction)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Post("/user/register", h.handleUserRegister)
		r.Post("/user/transfer", h.handleUserTransfer)
	})
	return r
}

func (h *Handler) handleTokenList(w http.ResponseWriter, r *http.Request) {
	c := h.node.Components()
	writeJSON(w, http.StatusOK, tokenListResponse{
		Token:         []string{c.Token.Address().Hex()},
		StableCoin:    c.Stable.Symbol(),
		ServerAddress: h.server.Hex(),
		Network: networkInfo{
			ChainID: h.chainID.Int64(),
			Symbol:  c.Token.Symbol(),
		},
	})
}

func (h *Handler) handleTokenInfo(w http.ResponseWriter, r *http.Request) {
	c := h.node.Components()
	addr := common.HexToAddress(chi.URLParam(r, "address"))
	if addr != c.Token.Address() {
		writeError(w, dErrors.New(dErrors.CodeInvalidArgument, "unknown token address"))
		return
	}
	writeJSON(w, http.StatusOK, tokenInfoResponse{
		Name:        c.Token.Name(),
		Symbol:      c.Token.Symbol(),
		Decimals:    c.Token.Decimals(),
		TotalSupply: c.Token.TotalSupply().String(),
	})
}

func (h *Handler) handleUserValid(w http.ResponseWriter, r *http.Request) {
	subject := common.HexToAddress(chi.URLParam(r, "address"))
	valid := h.node.IsAddressValid(r.Context(), []common.Address{h.server}, subject)
	writeJSON(w, http.StatusOK, valid)
}

func (h *Handler) handleUserBalance(w http.ResponseWriter, r *http.Request) {
	c := h.node.Components()
	addr := common.HexToAddress(chi.URLParam(r, "address"))
	writeJSON(w, http.StatusOK, c.Token.BalanceOf(addr).String())
}

func (h *Handler) handleTransaction(w http.ResponseWriter, r *http.Request) {
	record, ok := h.node.Tx(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "transaction not found"})
		return
	}
	writeJSON(w, http.StatusOK, transactionResponse{
		ID:        record.ID,
		Operation: record.Operation,
		Status:    string(record.Status),
		ErrorCode: record.ErrorCode,
	})
}

func (h *Handler) handleUserRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Address == "" {
		writeError(w, dErrors.New(dErrors.CodeInvalidArgument, "address is required"))
		return
	}

	subject := common.HexToAddress(req.Address)
	expiry := time.Now().Add(registrationValidity)
	txID, err := h.node.RegisterUsers(r.Context(), h.server,
		[]common.Address{subject}, []uint8{0}, []time.Time{expiry})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txResponse{TxID: txID})
}

func (h *Handler) handleUserTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.To == "" {
		writeError(w, dErrors.New(dErrors.CodeInvalidArgument, "to and amount are required"))
		return
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		writeError(w, dErrors.New(dErrors.CodeInvalidArgument, "amount must be a base-10 integer"))
		return
	}

	txID, err := h.node.Transfer(r.Context(), h.server, common.HexToAddress(req.To), amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txResponse{TxID: txID})
}
