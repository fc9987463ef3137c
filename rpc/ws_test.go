package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"nftstake/core/types"
	"nftstake/native/staking"
)

func readEventUpdate(t *testing.T, ctx context.Context, conn *websocket.Conn) EventUpdateResult {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var update EventUpdateResult
	require.NoError(t, json.Unmarshal(data, &update))
	return update
}

func TestEventsWebSocketStreamsAndResumes(t *testing.T) {
	h := newHarness(t, ServerConfig{})
	asset := addrString(0xA1)
	h.mustSubmit(t, types.TxTypeCreateAsset, types.CreateAssetPayload{Mint: asset, Name: "Test NFT", Symbol: "TNFT"})

	srv := httptest.NewServer(h.handler)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "test complete")

	created := readEventUpdate(t, ctx, conn)
	require.Equal(t, staking.EventTypeAssetCreated, created.Type)
	require.Equal(t, "1", created.Cursor)
	require.Equal(t, asset, created.Attributes["asset"])

	receipt := h.mustSubmit(t, types.TxTypeDelegateAsset, types.AssetPayload{Asset: asset})
	delegated := readEventUpdate(t, ctx, conn)
	require.Equal(t, staking.EventTypeAssetDelegated, delegated.Type)
	require.Equal(t, receipt.TxHash, delegated.TxHash)
	require.Equal(t, int64(1000), delegated.Timestamp)

	resumed, _, err := websocket.Dial(ctx, wsURL+"?cursor="+created.Cursor, nil)
	require.NoError(t, err)
	defer resumed.Close(websocket.StatusNormalClosure, "test complete")
	replayed := readEventUpdate(t, ctx, resumed)
	require.Equal(t, delegated.Sequence, replayed.Sequence)
}

func TestEventsWebSocketRejectsBadCursor(t *testing.T) {
	h := newHarness(t, ServerConfig{})
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/events?cursor=latest", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
