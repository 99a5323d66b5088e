package transporthttp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metrina/internal/jwttoken"
	"metrina/internal/node"
	"metrina/internal/oracle"
	"metrina/internal/platform/metrics"
	"metrina/internal/registry"
	"metrina/internal/rules"
	"metrina/internal/sale"
	"metrina/internal/token"
)

var (
	serverAddr = common.HexToAddress("0x0A")
	tokenAddr  = common.HexToAddress("0x0F")
	saleAddr   = common.HexToAddress("0x0E")
	userAddr   = common.HexToAddress("0x01")
)

type apiFixture struct {
	node   *node.Node
	jwt    *jwttoken.Service
	router http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	reg := registry.New()
	engine := rules.NewEngine()
	engine.SetRules([]rules.Rule{
		rules.NewUserValidRule(reg, []common.Address{serverAddr}),
	})
	orc := oracle.New(serverAddr)
	stable := token.NewStableCoin("DAI", 6)
	tok := token.New(token.Config{
		Owner:             serverAddr,
		Address:           tokenAddr,
		Name:              "Metrina Test Project 1",
		Symbol:            "MTR-TST1",
		Decimals:          0,
		ChainID:           big.NewInt(31337),
		TrustedRegistrars: []common.Address{serverAddr},
		RedemptionTime:    time.Now().Add(365 * 24 * time.Hour),
		Settlement:        stable,
		FundingAccount:    serverAddr,
		Engine:            engine,
		Categories:        reg,
	})
	ctx := context.Background()
	require.NoError(t, tok.SetPriceOracle(ctx, serverAddr, orc))
	require.NoError(t, tok.AddSupplier(ctx, serverAddr, serverAddr))

	saleContract := sale.New(sale.Config{
		Owner:          serverAddr,
		Address:        saleAddr,
		Token:          tok,
		Settlement:     stable,
		Treasury:       serverAddr,
		StableReceiver: serverAddr,
		RefCurrency:    "TMN",
		RefDecimals:    1,
		Oracle:         orc,
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	n := node.New(logger, metrics.NewWith(prometheus.NewRegistry()), node.Components{
		Registry: reg,
		Engine:   engine,
		Oracle:   orc,
		Token:    tok,
		Stable:   stable,
		Sale:     saleContract,
	}, nil)

	jwtService := jwttoken.New("test-signing-key", "metrina")
	handler := NewHandler(logger, n, serverAddr, big.NewInt(31337), jwtService)
	return &apiFixture{node: n, jwt: jwtService, router: handler.Router()}
}

func (f *apiFixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (f *apiFixture) post(t *testing.T, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) accessToken(t *testing.T) string {
	t.Helper()
	token, err := f.jwt.GenerateAccessToken(userAddr.Hex(), time.Hour)
	require.NoError(t, err)
	return token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestTokenList(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.get(t, "/token/list")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[tokenListResponse](t, rec)
	assert.Equal(t, []string{tokenAddr.Hex()}, body.Token)
	assert.Equal(t, "DAI", body.StableCoin)
	assert.Equal(t, serverAddr.Hex(), body.ServerAddress)
	assert.Equal(t, int64(31337), body.Network.ChainID)
	assert.Equal(t, "MTR-TST1", body.Network.Symbol)
}

func TestTokenInfo(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.get(t, "/token/info/"+tokenAddr.Hex())
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[tokenInfoResponse](t, rec)
	assert.Equal(t, "MTR-TST1", body.Symbol)
	assert.Equal(t, uint8(0), body.Decimals)
	assert.Equal(t, "0", body.TotalSupply)

	rec = f.get(t, "/token/info/"+userAddr.Hex())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteEndpointsRequireAuth(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.post(t, "/user/register", registerRequest{Address: userAddr.Hex()}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.post(t, "/user/register", registerRequest{Address: userAddr.Hex()}, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterThenValid(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.get(t, "/user/valid/"+userAddr.Hex())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[bool](t, rec))

	rec = f.post(t, "/user/register", registerRequest{Address: userAddr.Hex()}, f.accessToken(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[txResponse](t, rec).TxID)

	rec = f.get(t, "/user/valid/"+userAddr.Hex())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[bool](t, rec))
}

func TestTransferAndBalance(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()
	auth := f.accessToken(t)

	// The operator and the recipient both need registrations before units move.
	for _, addr := range []common.Address{serverAddr, userAddr} {
		rec := f.post(t, "/user/register", registerRequest{Address: addr.Hex()}, auth)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	_, err := f.node.Mint(ctx, serverAddr, serverAddr, big.NewInt(100))
	require.NoError(t, err)

	rec := f.post(t, "/user/transfer", transferRequest{To: userAddr.Hex(), Amount: "40"}, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	txID := decode[txResponse](t, rec).TxID

	rec = f.get(t, "/user/balance/"+userAddr.Hex())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "40", decode[string](t, rec))

	rec = f.get(t, "/transaction/"+txID)
	require.Equal(t, http.StatusOK, rec.Code)
	tx := decode[transactionResponse](t, rec)
	assert.Equal(t, "transfer", tx.Operation)
	assert.Equal(t, "succeeded", tx.Status)
}

func TestTransferErrorMapping(t *testing.T) {
	f := newAPIFixture(t)
	auth := f.accessToken(t)

	rec := f.post(t, "/user/transfer", transferRequest{To: userAddr.Hex(), Amount: "40"}, auth)
	require.Equal(t, http.StatusForbidden, rec.Code, "unregistered endpoints fail compliance")
	body := decode[errorResponse](t, rec)
	assert.Equal(t, "not_compliant", body.Code)

	rec = f.post(t, "/user/transfer", transferRequest{To: userAddr.Hex(), Amount: "not-a-number"}, auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransactionNotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.get(t, "/transaction/ffffffff-0000-0000-0000-000000000000")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}
