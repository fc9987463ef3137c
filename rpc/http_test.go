package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nftstake/core/types"
)

func TestHealthz(t *testing.T) {
	h := newHarness(t, ServerConfig{})
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
	require.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newHarness(t, ServerConfig{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	require.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, ServerConfig{})
	h.call(t, "stake_getAuthorities", "")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "nftstake_rpc_requests_total")
}

func TestUnknownMethod(t *testing.T) {
	h := newHarness(t, ServerConfig{})
	rec, resp := h.call(t, "eth_blockNumber", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestMalformedBody(t *testing.T) {
	h := newHarness(t, ServerConfig{})
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp rawResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, codeParseError, resp.Error.Code)

	oversized := bytes.Repeat([]byte("a"), maxRequestBytes+1)
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(oversized)))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestSendTransactionRequiresAuth(t *testing.T) {
	h := newHarness(t, ServerConfig{})
	tx := &types.Transaction{ChainID: testChainID, Type: types.TxTypeDelegateAsset}

	rec, resp := h.call(t, "stake_sendTransaction", "", tx)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	rec, _ = h.call(t, "stake_sendTransaction", "wrong", tx)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSendTransactionRateLimited(t *testing.T) {
	h := newHarness(t, ServerConfig{RateLimitPerSec: 0.001, RateLimitBurst: 1})
	fixed := time.Unix(1_700_000_000, 0)
	h.server.nowFn = func() time.Time { return fixed }

	h.mustSubmit(t, types.TxTypeCreateAsset, types.CreateAssetPayload{Mint: addrString(0xA1), Name: "A", Symbol: "A"})
	rec, resp := h.submit(t, types.TxTypeCreateAsset, types.CreateAssetPayload{Mint: addrString(0xA2), Name: "B", Symbol: "B"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, codeRateLimited, resp.Error.Code)
}

func TestAllowSourceDropsIdleBuckets(t *testing.T) {
	s := NewServer(nil, nil, ServerConfig{RateLimitPerSec: 0.001, RateLimitBurst: 1})
	start := time.Unix(1_700_000_000, 0)
	require.True(t, s.allowSource("a", start))
	require.False(t, s.allowSource("a", start))
	require.True(t, s.allowSource("b", start))
	require.True(t, s.allowSource("a", start.Add(limiterIdleTTL+time.Second)))
}

func TestClientSourceIgnoresForwardedForWhenNotTrusted(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.5:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	require.Equal(t, "10.0.0.5", clientSource(req, false))
	require.Equal(t, "203.0.113.9", clientSource(req, true))
}

func TestServeAndShutdown(t *testing.T) {
	h := newHarness(t, ServerConfig{})
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	serveErr := make(chan error, 1)
	go func() { serveErr <- h.server.Serve(listener) }()

	url := "http://" + listener.Addr().String() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, h.server.Shutdown(context.Background()))
	require.NoError(t, <-serveErr)
}
