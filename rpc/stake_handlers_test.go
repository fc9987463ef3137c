package rpc

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"nftstake/core/types"
	"nftstake/native/staking"
)

func decodeResult(t *testing.T, resp rawResponse, out interface{}) {
	t.Helper()
	require.Nil(t, resp.Error)
	require.NoError(t, json.Unmarshal(resp.Result, out))
}

func errorKind(t *testing.T, resp rawResponse) string {
	t.Helper()
	require.NotNil(t, resp.Error)
	var data ErrorData
	require.NoError(t, json.Unmarshal(resp.Error.Data, &data))
	return data.Kind
}

func TestStakingFlowOverRPC(t *testing.T) {
	h := newHarness(t, ServerConfig{})
	asset := addrString(0xA1)
	reward := addrString(0xB2)
	pair := HolderAssetParams{Holder: h.holder(), Asset: asset}

	h.mustSubmit(t, types.TxTypeCreateAsset, types.CreateAssetPayload{Mint: asset, Name: "Test NFT", Symbol: "TNFT"})
	h.mustSubmit(t, types.TxTypeInitRewardMint, types.InitRewardMintPayload{Mint: reward})
	h.mustSubmit(t, types.TxTypeDelegateAsset, types.AssetPayload{Asset: asset})

	var account TokenAccountResult
	_, resp := h.call(t, "stake_getTokenAccount", "", TokenAccountParams{Owner: h.holder(), Mint: asset})
	decodeResult(t, resp, &account)
	require.Equal(t, "1", account.Amount)
	require.Equal(t, uint64(1), account.DelegatedAmount)
	require.False(t, account.Frozen)

	var auth AuthoritiesResult
	_, resp = h.call(t, "stake_getAuthorities", "")
	decodeResult(t, resp, &auth)
	require.Equal(t, auth.StakingAuthority, account.Delegate)

	receipt := h.mustSubmit(t, types.TxTypeStakeAsset, types.AssetPayload{Asset: asset})
	require.Equal(t, "StakeAsset", receipt.Type)
	require.Len(t, receipt.Events, 1)
	require.Equal(t, staking.EventTypeAssetStaked, receipt.Events[0].Type)

	var status StatusResult
	_, resp = h.call(t, "stake_getStatus", "", pair)
	decodeResult(t, resp, &status)
	require.Equal(t, string(staking.StatusStaked), status.Status)

	var record RecordResult
	_, resp = h.call(t, "stake_getRecord", "", pair)
	decodeResult(t, resp, &record)
	require.Equal(t, int64(1000), record.StakedAt)
	require.Equal(t, asset, record.Asset)

	var staked StakedAssetsResult
	_, resp = h.call(t, "stake_getStakedAssets", "", AddressParams{Address: h.holder()})
	decodeResult(t, resp, &staked)
	require.Equal(t, []string{asset}, staked.Assets)

	h.now = 1250
	var preview PreviewResult
	_, resp = h.call(t, "stake_previewRewards", "", pair)
	decodeResult(t, resp, &preview)
	require.Equal(t, uint64(250), preview.Amount)

	h.mustSubmit(t, types.TxTypeSendRewards, types.SendRewardsPayload{Asset: asset, RewardMint: reward})
	var balance BalanceResult
	_, resp = h.call(t, "stake_getRewardBalance", "", RewardBalanceParams{Holder: h.holder(), RewardMint: reward})
	decodeResult(t, resp, &balance)
	require.Equal(t, "250", balance.Balance)

	var mint MintResult
	_, resp = h.call(t, "stake_getMint", "", AddressParams{Address: reward})
	decodeResult(t, resp, &mint)
	require.Equal(t, "250", mint.Supply)
	require.Equal(t, auth.MintAuthority, mint.MintAuthority)
	require.Empty(t, mint.FreezeAuthority)

	h.mustSubmit(t, types.TxTypeUnstakeAsset, types.AssetPayload{Asset: asset})
	h.mustSubmit(t, types.TxTypeCloseRecord, types.AssetPayload{Asset: asset})

	var native AccountResult
	_, resp = h.call(t, "stake_getAccount", "", AddressParams{Address: h.holder()})
	decodeResult(t, resp, &native)
	require.Equal(t, uint64(50000), native.Deposits)

	var nonce uint64
	_, resp = h.call(t, "stake_getNonce", "", AddressParams{Address: h.holder()})
	decodeResult(t, resp, &nonce)
	require.Equal(t, uint64(7), nonce)
}

func TestRejectedTransactionCarriesKind(t *testing.T) {
	h := newHarness(t, ServerConfig{})
	asset := addrString(0xA1)
	h.mustSubmit(t, types.TxTypeCreateAsset, types.CreateAssetPayload{Mint: asset, Name: "Test NFT", Symbol: "TNFT"})

	rec, resp := h.submit(t, types.TxTypeStakeAsset, types.AssetPayload{Asset: asset})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, codeTxRejected, resp.Error.Code)
	var data ErrorData
	require.NoError(t, json.Unmarshal(resp.Error.Data, &data))
	require.Equal(t, string(staking.KindUnauthorizedSigner), data.Kind)
	require.NotNil(t, data.Receipt)
	require.Equal(t, string(types.ReceiptFailed), data.Receipt.Status)
	require.Empty(t, data.Receipt.Events)

	var nonce uint64
	_, resp = h.call(t, "stake_getNonce", "", AddressParams{Address: h.holder()})
	decodeResult(t, resp, &nonce)
	require.Equal(t, uint64(1), nonce)
}

func TestEnvelopeRejectionHasNoReceipt(t *testing.T) {
	h := newHarness(t, ServerConfig{})
	tx := &types.Transaction{ChainID: testChainID + 1, Type: types.TxTypeCreateAsset}
	require.NoError(t, tx.SetPayload(types.CreateAssetPayload{Mint: addrString(0xA1)}))
	require.NoError(t, tx.Sign(h.key.PrivateKey))

	rec, resp := h.call(t, "stake_sendTransaction", testAuthToken, tx)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var data ErrorData
	require.NoError(t, json.Unmarshal(resp.Error.Data, &data))
	require.Equal(t, "InvalidChainID", data.Kind)
	require.Nil(t, data.Receipt)
}

func TestQueryErrors(t *testing.T) {
	h := newHarness(t, ServerConfig{})
	pair := HolderAssetParams{Holder: h.holder(), Asset: addrString(0xA1)}

	rec, resp := h.call(t, "stake_getRecord", "", pair)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, codeNotFound, resp.Error.Code)
	require.Equal(t, string(staking.KindRecordNotFound), errorKind(t, resp))

	rec, resp = h.call(t, "stake_previewRewards", "", pair)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, string(staking.KindRecordNotFound), errorKind(t, resp))

	var status StatusResult
	_, resp = h.call(t, "stake_getStatus", "", pair)
	decodeResult(t, resp, &status)
	require.Equal(t, string(staking.StatusUnstaked), status.Status)

	rec, _ = h.call(t, "stake_getTokenAccount", "", TokenAccountParams{Owner: h.holder(), Mint: addrString(0xA1)})
	require.Equal(t, http.StatusNotFound, rec.Code)

	var balance BalanceResult
	_, resp = h.call(t, "stake_getRewardBalance", "", RewardBalanceParams{Holder: h.holder(), RewardMint: addrString(0xB2)})
	decodeResult(t, resp, &balance)
	require.Equal(t, "0", balance.Balance)
}

func TestInvalidParams(t *testing.T) {
	h := newHarness(t, ServerConfig{})

	rec, resp := h.call(t, "stake_getRecord", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	rec, resp = h.call(t, "stake_getRecord", "", HolderAssetParams{Holder: "not-an-address", Asset: addrString(1)})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, resp.Error.Message, "holder")

	rec, _ = h.call(t, "stake_getNonce", "", AddressParams{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
