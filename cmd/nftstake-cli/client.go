package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nftstake/core/types"
	"nftstake/crypto"
	"nftstake/rpc"
)

// client speaks JSON-RPC to a running nftstaked.
type client struct {
	endpoint  string
	authToken string
	chainID   uint64
	http      *http.Client
}

func newClient(endpoint, authToken string, chainID uint64) *client {
	return &client{
		endpoint:  strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		authToken: strings.TrimSpace(authToken),
		chainID:   chainID,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *rpc.RPCError   `json:"error"`
}

// call invokes method and decodes the result into out when non-nil.
func (c *client) call(ctx context.Context, method string, param interface{}, out interface{}) error {
	req := rpc.RPCRequest{JSONRPC: "2.0", Method: method, ID: 1}
	if param != nil {
		raw, err := json.Marshal(param)
		if err != nil {
			return err
		}
		req.Params = []json.RawMessage{raw}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("rpc request to %s failed: %w", c.endpoint, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var envelope rpcEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return fmt.Errorf("unexpected response (%s): %s", resp.Status, strings.TrimSpace(string(payload)))
	}
	if envelope.Error != nil {
		return describeError(envelope.Error)
	}
	if out != nil {
		return json.Unmarshal(envelope.Result, out)
	}
	return nil
}

func describeError(rpcErr *rpc.RPCError) error {
	raw, err := json.Marshal(rpcErr.Data)
	if err == nil {
		var data rpc.ErrorData
		if json.Unmarshal(raw, &data) == nil && data.Kind != "" {
			return fmt.Errorf("%s (%s)", rpcErr.Message, data.Kind)
		}
	}
	return fmt.Errorf("%s (code %d)", rpcErr.Message, rpcErr.Code)
}

// submit signs a transaction of txType at the signer's current nonce and
// sends it.
func (c *client) submit(ctx context.Context, key *crypto.PrivateKey, txType types.TxType, payload interface{}) (*rpc.ReceiptResult, error) {
	var nonce uint64
	if err := c.call(ctx, "stake_getNonce", rpc.AddressParams{Address: key.PubKey().Address().String()}, &nonce); err != nil {
		return nil, fmt.Errorf("fetch nonce: %w", err)
	}
	tx := &types.Transaction{ChainID: c.chainID, Type: txType, Nonce: nonce}
	if err := tx.SetPayload(payload); err != nil {
		return nil, err
	}
	if err := tx.Sign(key.PrivateKey); err != nil {
		return nil, err
	}
	var receipt rpc.ReceiptResult
	if err := c.call(ctx, "stake_sendTransaction", tx, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}
