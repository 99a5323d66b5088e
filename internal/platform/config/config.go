package config

import (
	"math/big"
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration so main stays lean.
type Server struct {
	Addr          string
	JWTSigningKey string
	ChainID       *big.Int
	OwnerAddress  string
	// RedemptionDelay is how far in the future redemption becomes eligible
	// when the process boots a fresh ledger.
	RedemptionDelay time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("METRINA_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default; override in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	chainID := big.NewInt(31337)
	if raw := os.Getenv("METRINA_CHAIN_ID"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			chainID = big.NewInt(parsed)
		}
	}

	delay := 365 * 24 * time.Hour
	if raw := os.Getenv("METRINA_REDEMPTION_DELAY"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			delay = parsed
		}
	}

	return Server{
		Addr:            addr,
		JWTSigningKey:   jwtSigningKey,
		ChainID:         chainID,
		OwnerAddress:    os.Getenv("METRINA_OWNER_ADDRESS"),
		RedemptionDelay: delay,
	}
}
