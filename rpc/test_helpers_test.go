package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"nftstake/core"
	"nftstake/core/genesis"
	"nftstake/core/types"
	"nftstake/crypto"
	"nftstake/native/staking"
	"nftstake/storage"
)

const (
	testChainID   = 7077
	testAuthToken = "rpc-test-token"
)

type rpcHarness struct {
	node    *core.Node
	server  *Server
	handler http.Handler
	key     *crypto.PrivateKey
	nonce   uint64
	now     int64
}

func newHarness(t *testing.T, cfg ServerConfig) *rpcHarness {
	t.Helper()
	return newHarnessWithSink(t, cfg, nil)
}

func newHarnessWithSink(t *testing.T, cfg ServerConfig, sink core.ReceiptSink) *rpcHarness {
	t.Helper()
	node, err := core.NewNode(storage.NewMemDB(), core.Options{
		ChainID:       testChainID,
		ProgramLabel:  "nft-staking",
		RecordDeposit: staking.DefaultRecordDeposit,
		Receipts:      sink,
	})
	require.NoError(t, err)
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	spec, err := genesis.ParseGenesisSpec([]byte(fmt.Sprintf(`genesisTime: "2026-01-01T00:00:00Z"
chainId: %d
programLabel: nft-staking
deposits:
  %s: 50000
`, testChainID, key.PubKey().Address().String())))
	require.NoError(t, err)
	require.NoError(t, node.ApplyGenesis(spec))

	if cfg.AuthToken == "" {
		cfg.AuthToken = testAuthToken
	}
	if cfg.RateLimitPerSec == 0 {
		cfg.RateLimitPerSec = 1000
		cfg.RateLimitBurst = 1000
	}
	h := &rpcHarness{node: node, key: key, now: 1000}
	node.SetNowFunc(func() int64 { return h.now })
	h.server = NewServer(node, nil, cfg)
	h.handler = h.server.Handler()
	return h
}

func (h *rpcHarness) holder() string { return h.key.PubKey().Address().String() }

type rawResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	} `json:"error"`
}

func (h *rpcHarness) call(t *testing.T, method string, token string, params ...interface{}) (*httptest.ResponseRecorder, rawResponse) {
	t.Helper()
	encoded := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		raw, err := json.Marshal(p)
		require.NoError(t, err)
		encoded = append(encoded, raw)
	}
	body, err := json.Marshal(RPCRequest{JSONRPC: jsonRPCVersion, Method: method, Params: encoded, ID: 1})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.RemoteAddr = "10.0.0.5:1234"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	var resp rawResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

// submit signs payload at the harness nonce and sends it. The nonce only
// advances when the ledger accepted the transaction.
func (h *rpcHarness) submit(t *testing.T, txType types.TxType, payload interface{}) (*httptest.ResponseRecorder, rawResponse) {
	t.Helper()
	tx := &types.Transaction{ChainID: testChainID, Type: txType, Nonce: h.nonce}
	require.NoError(t, tx.SetPayload(payload))
	require.NoError(t, tx.Sign(h.key.PrivateKey))
	rec, resp := h.call(t, "stake_sendTransaction", testAuthToken, tx)
	if resp.Error == nil {
		h.nonce++
	}
	return rec, resp
}

func (h *rpcHarness) mustSubmit(t *testing.T, txType types.TxType, payload interface{}) ReceiptResult {
	t.Helper()
	rec, resp := h.submit(t, txType, payload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Nil(t, resp.Error)
	var receipt ReceiptResult
	require.NoError(t, json.Unmarshal(resp.Result, &receipt))
	require.Equal(t, string(types.ReceiptSuccess), receipt.Status)
	return receipt
}

func addrString(b byte) string {
	var raw [20]byte
	raw[0] = b
	raw[19] = b
	return crypto.Render(raw)
}
