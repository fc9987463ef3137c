package rpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"nftstake/core"
	"nftstake/core/types"
	"nftstake/crypto"
	"nftstake/native/staking"
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// ErrorData accompanies every ledger failure so clients can branch on the
// failure kind without parsing messages.
type ErrorData struct {
	Kind    string         `json:"kind"`
	Receipt *ReceiptResult `json:"receipt,omitempty"`
}

// HolderAssetParams addresses a (holder, asset) pair.
type HolderAssetParams struct {
	Holder string `json:"holder"`
	Asset  string `json:"asset"`
}

// TokenAccountParams addresses owner's associated account for mint.
type TokenAccountParams struct {
	Owner string `json:"owner"`
	Mint  string `json:"mint"`
}

// RewardBalanceParams addresses a holder's reward token account.
type RewardBalanceParams struct {
	Holder     string `json:"holder"`
	RewardMint string `json:"rewardMint"`
}

// AddressParams carries a single bech32 identity.
type AddressParams struct {
	Address string `json:"address"`
}

// ReceiptResult is the RPC rendering of a transaction receipt.
type ReceiptResult struct {
	TxHash    string        `json:"txHash"`
	Type      string        `json:"type"`
	Status    string        `json:"status"`
	Events    []types.Event `json:"events,omitempty"`
	Error     string        `json:"error,omitempty"`
	ErrorKind string        `json:"errorKind,omitempty"`
	Timestamp int64         `json:"timestamp"`
}

// RecordResult is the RPC rendering of a stake record.
type RecordResult struct {
	Address  string `json:"address"`
	Holder   string `json:"holder"`
	Asset    string `json:"asset"`
	StakedAt int64  `json:"stakedAt"`
}

type StatusResult struct {
	Holder string `json:"holder"`
	Asset  string `json:"asset"`
	Status string `json:"status"`
}

type PreviewResult struct {
	Holder string `json:"holder"`
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount"`
}

type TokenAccountResult struct {
	Address         string `json:"address"`
	Mint            string `json:"mint"`
	Owner           string `json:"owner"`
	Amount          string `json:"amount"`
	Delegate        string `json:"delegate,omitempty"`
	DelegatedAmount uint64 `json:"delegatedAmount"`
	Frozen          bool   `json:"frozen"`
}

type MintResult struct {
	Address         string `json:"address"`
	Decimals        uint8  `json:"decimals"`
	Supply          string `json:"supply"`
	MintAuthority   string `json:"mintAuthority,omitempty"`
	FreezeAuthority string `json:"freezeAuthority,omitempty"`
}

type BalanceResult struct {
	Holder     string `json:"holder"`
	RewardMint string `json:"rewardMint"`
	Balance    string `json:"balance"`
}

type AccountResult struct {
	Address  string `json:"address"`
	Nonce    uint64 `json:"nonce"`
	Deposits uint64 `json:"deposits"`
}

type AuthoritiesResult struct {
	Program          string `json:"program"`
	StakingAuthority string `json:"stakingAuthority"`
	MintAuthority    string `json:"mintAuthority"`
}

type StakedAssetsResult struct {
	Holder string   `json:"holder"`
	Assets []string `json:"assets"`
}

func formatReceipt(receipt *types.Receipt) *ReceiptResult {
	if receipt == nil {
		return nil
	}
	return &ReceiptResult{
		TxHash:    "0x" + hex.EncodeToString(receipt.TxHash),
		Type:      receipt.Type.String(),
		Status:    string(receipt.Status),
		Events:    receipt.Events,
		Error:     receipt.Error,
		ErrorKind: receipt.ErrorKind,
		Timestamp: receipt.Timestamp,
	}
}

func formatRecord(record *staking.StakeRecord) RecordResult {
	return RecordResult{
		Address:  crypto.Render(record.Address),
		Holder:   crypto.Render(record.Holder),
		Asset:    crypto.Render(record.Asset),
		StakedAt: record.StakedAt,
	}
}

func formatTokenAccount(account *types.TokenAccount) TokenAccountResult {
	result := TokenAccountResult{
		Address:         crypto.Render(account.Address),
		Mint:            crypto.Render(account.Mint),
		Owner:           crypto.Render(account.Owner),
		Amount:          "0",
		DelegatedAmount: account.DelegatedAmount,
		Frozen:          account.Frozen,
	}
	if account.Amount != nil {
		result.Amount = account.Amount.Dec()
	}
	if account.HasDelegate() {
		result.Delegate = crypto.Render(account.Delegate)
	}
	return result
}

func formatMint(mint *types.Mint) MintResult {
	result := MintResult{
		Address:  crypto.Render(mint.Address),
		Decimals: mint.Decimals,
		Supply:   "0",
	}
	if mint.Supply != nil {
		result.Supply = mint.Supply.Dec()
	}
	if !types.IsZeroAddress(mint.MintAuthority) {
		result.MintAuthority = crypto.Render(mint.MintAuthority)
	}
	if !types.IsZeroAddress(mint.FreezeAuthority) {
		result.FreezeAuthority = crypto.Render(mint.FreezeAuthority)
	}
	return result
}

func formatAuthorities(auth core.Authorities) AuthoritiesResult {
	return AuthoritiesResult{
		Program:          crypto.FromArray(crypto.ProgramPrefix, auth.Program).String(),
		StakingAuthority: crypto.Render(auth.StakingAuthority),
		MintAuthority:    crypto.Render(auth.MintAuthority),
	}
}

// parseAddress decodes a bech32 identity carrying the ledger prefix.
func parseAddress(field, raw string) ([20]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return [20]byte{}, fmt.Errorf("%s is required", field)
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return [20]byte{}, fmt.Errorf("invalid %s: %w", field, err)
	}
	if addr.Prefix() != crypto.NFTPrefix {
		return [20]byte{}, fmt.Errorf("%s must use the %s prefix", field, crypto.NFTPrefix)
	}
	return addr.Array(), nil
}
