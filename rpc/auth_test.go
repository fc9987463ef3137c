package rpc

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"nftstake/core/types"
)

const testJWTSecret = "jwt-test-secret"

func signJWT(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func authRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestRequireAuthStaticToken(t *testing.T) {
	s := NewServer(nil, nil, ServerConfig{AuthToken: "static"})
	require.Nil(t, s.requireAuth(authRequest("static")))
	require.NotNil(t, s.requireAuth(authRequest("other")))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	authErr := s.requireAuth(req)
	require.NotNil(t, authErr)
	require.Contains(t, authErr.Message, "Bearer scheme")
}

func TestRequireAuthUnconfigured(t *testing.T) {
	s := NewServer(nil, nil, ServerConfig{})
	authErr := s.requireAuth(authRequest("anything"))
	require.NotNil(t, authErr)
	require.Contains(t, authErr.Message, "not configured")
}

func TestRequireAuthJWT(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := NewServer(nil, nil, ServerConfig{JWTSecret: testJWTSecret, JWTIssuer: "nftstake-ops", JWTClockSkew: time.Second})
	s.nowFn = func() time.Time { return now }

	valid := signJWT(t, jwt.SigningMethodHS256, []byte(testJWTSecret), jwt.MapClaims{
		"iss": "nftstake-ops",
		"exp": now.Add(time.Minute).Unix(),
	})
	require.Nil(t, s.requireAuth(authRequest(valid)))

	expired := signJWT(t, jwt.SigningMethodHS256, []byte(testJWTSecret), jwt.MapClaims{
		"iss": "nftstake-ops",
		"exp": now.Add(-time.Minute).Unix(),
	})
	require.NotNil(t, s.requireAuth(authRequest(expired)))

	noExpiry := signJWT(t, jwt.SigningMethodHS256, []byte(testJWTSecret), jwt.MapClaims{"iss": "nftstake-ops"})
	require.NotNil(t, s.requireAuth(authRequest(noExpiry)))

	wrongIssuer := signJWT(t, jwt.SigningMethodHS256, []byte(testJWTSecret), jwt.MapClaims{
		"iss": "someone-else",
		"exp": now.Add(time.Minute).Unix(),
	})
	require.NotNil(t, s.requireAuth(authRequest(wrongIssuer)))

	wrongSecret := signJWT(t, jwt.SigningMethodHS256, []byte("not-the-secret"), jwt.MapClaims{
		"iss": "nftstake-ops",
		"exp": now.Add(time.Minute).Unix(),
	})
	require.NotNil(t, s.requireAuth(authRequest(wrongSecret)))

	unsigned := signJWT(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{
		"iss": "nftstake-ops",
		"exp": now.Add(time.Minute).Unix(),
	})
	require.NotNil(t, s.requireAuth(authRequest(unsigned)))
}

func TestSendTransactionAcceptsJWT(t *testing.T) {
	h := newHarness(t, ServerConfig{JWTSecret: testJWTSecret})
	token := signJWT(t, jwt.SigningMethodHS256, []byte(testJWTSecret), jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	rec, resp := h.call(t, "stake_getNonce", token, AddressParams{Address: h.holder()})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, resp.Error)

	tx := &types.Transaction{ChainID: testChainID, Type: types.TxTypeDelegateAsset}
	require.NoError(t, tx.SetPayload(types.AssetPayload{Asset: addrString(0xA1)}))
	require.NoError(t, tx.Sign(h.key.PrivateKey))
	rec, resp = h.call(t, "stake_sendTransaction", token, tx)
	require.NotEqual(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
	require.NotNil(t, resp.Error)
	require.Equal(t, codeTxRejected, resp.Error.Code)
}
