// main wires the core contracts the way a deployment script would: registry,
// oracle, rule engine, token, stable coin and sale, then exposes the HTTP
// surface. Business logic lives in the internal packages.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"metrina/internal/audit"
	"metrina/internal/jwttoken"
	"metrina/internal/node"
	"metrina/internal/oracle"
	"metrina/internal/platform/config"
	"metrina/internal/platform/httpserver"
	"metrina/internal/platform/logger"
	"metrina/internal/platform/metrics"
	"metrina/internal/registry"
	"metrina/internal/rules"
	"metrina/internal/sale"
	"metrina/internal/token"
	transporthttp "metrina/internal/transport/http"
)

// defaultOwner is the well-known first dev-chain account, used when no owner
// address is configured.
const defaultOwner = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ownerHex := cfg.OwnerAddress
	if ownerHex == "" {
		ownerHex = defaultOwner
	}
	owner := common.HexToAddress(ownerHex)

	reg := registry.New()
	priceOracle := oracle.New(owner)
	engine := rules.NewEngine()
	engine.SetRules([]rules.Rule{
		rules.NewUserValidRule(reg, []common.Address{owner}),
	})

	stable := token.NewStableCoin("DAI", 6)
	ledger := token.New(token.Config{
		Owner:             owner,
		Address:           contractAddress("token"),
		Name:              "Metrina Project 1",
		Symbol:            "MTR-1",
		Decimals:          0,
		ChainID:           cfg.ChainID,
		TrustedRegistrars: []common.Address{owner},
		RedemptionTime:    time.Now().Add(cfg.RedemptionDelay),
		Settlement:        stable,
		FundingAccount:    owner,
		Engine:            engine,
		Categories:        reg,
	})

	ctx := context.Background()
	if err := ledger.SetPriceOracle(ctx, owner, priceOracle); err != nil {
		log.Error("wiring price oracle failed", "error", err)
		os.Exit(1)
	}
	if err := ledger.AddSupplier(ctx, owner, owner); err != nil {
		log.Error("adding supplier failed", "error", err)
		os.Exit(1)
	}
	if err := ledger.SetRules(ctx, owner, []uint8{0}, []int{0}); err != nil {
		log.Error("mapping rules failed", "error", err)
		os.Exit(1)
	}

	tokenSale := sale.New(sale.Config{
		Owner:          owner,
		Address:        contractAddress("sale"),
		Token:          ledger,
		Settlement:     stable,
		Treasury:       owner,
		StableReceiver: owner,
		RefCurrency:    "TMN",
		RefDecimals:    1,
		Oracle:         priceOracle,
	})

	auditInbox := make(chan audit.Event, 256)
	auditStore := audit.NewInMemoryStore()
	worker := audit.NewWorker(auditStore, auditInbox)

	n := node.New(log, metrics.New(), node.Components{
		Registry: reg,
		Engine:   engine,
		Oracle:   priceOracle,
		Token:    ledger,
		Stable:   stable,
		Sale:     tokenSale,
	}, auditInbox)

	jwtService := jwttoken.New(cfg.JWTSigningKey, "metrina")
	handler := transporthttp.NewHandler(log, n, owner, cfg.ChainID, jwtService)
	srv := httpserver.New(cfg.Addr, handler.Router())

	workerCtx, stopWorker := context.WithCancel(context.Background())
	go func() {
		if err := worker.Run(workerCtx); err != nil && workerCtx.Err() == nil {
			log.Error("audit worker stopped", "error", err)
		}
	}()

	log.Info("starting metrina node", "addr", cfg.Addr, "token", ledger.Address().Hex())

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	stopWorker()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// contractAddress derives a stable process-local identity for a component.
// These stand in for deployed contract addresses: they only need to be
// distinct and reproducible.
func contractAddress(name string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte("metrina/" + name))[12:])
}
