package transporthttp

import (
	"encoding/json"
	"net/http"

	dErrors "metrina/pkg/domain-errors"
)

type networkInfo struct {
	ChainID int64  `json:"chainId"`
	Symbol  string `json:"symbol"`
}

type tokenListResponse struct {
	Token         []string    `json:"token"`
	StableCoin    string      `json:"stableCoin"`
	ServerAddress string      `json:"serverAddress"`
	Network       networkInfo `json:"network"`
}

type tokenInfoResponse struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    uint8  `json:"decimals"`
	TotalSupply string `json:"totalSupply"`
}

type transactionResponse struct {
	ID        string `json:"id"`
	Operation string `json:"operation"`
	Status    string `json:"status"`
	ErrorCode string `json:"errorCode,omitempty"`
}

type registerRequest struct {
	Address string `json:"address"`
}

type transferRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type txResponse struct {
	TxID string `json:"txId"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps domain error codes onto HTTP statuses. The core only
// distinguishes kinds; prose and status codes live here.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	writeJSON(w, statusFor(code), errorResponse{Error: err.Error(), Code: string(code)})
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidArgument, dErrors.CodeAmountTooSmall:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized, dErrors.CodeExpired:
		return http.StatusUnauthorized
	case dErrors.CodeNotCompliant:
		return http.StatusForbidden
	case dErrors.CodeTooEarly, dErrors.CodePriceUnavailable, dErrors.CodeInvalidPriceScale,
		dErrors.CodeInsufficientFunds, dErrors.CodeOutOfSchedule:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
