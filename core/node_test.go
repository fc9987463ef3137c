package core

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"nftstake/core/events"
	"nftstake/core/genesis"
	"nftstake/core/types"
	"nftstake/crypto"
	"nftstake/native/staking"
	"nftstake/storage"
)

const testChainID = 7077

type testLedger struct {
	node   *Node
	now    int64
	holder *crypto.PrivateKey
	nonce  uint64
}

func newTestLedger(t *testing.T) *testLedger {
	t.Helper()
	node, err := NewNode(storage.NewMemDB(), Options{
		ChainID:       testChainID,
		ProgramLabel:  "nft-staking",
		RecordDeposit: staking.DefaultRecordDeposit,
	})
	require.NoError(t, err)
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	l := &testLedger{node: node, now: 1000, holder: key}
	node.SetNowFunc(func() int64 { return l.now })

	spec, err := genesis.ParseGenesisSpec([]byte(fmt.Sprintf(`genesisTime: "2026-01-01T00:00:00Z"
chainId: %d
programLabel: nft-staking
deposits:
  %s: 50000
`, testChainID, key.PubKey().Address().String())))
	require.NoError(t, err)
	require.NoError(t, node.ApplyGenesis(spec))
	return l
}

func (l *testLedger) holderAddr() [20]byte { return l.holder.PubKey().Address().Array() }

func signed(t *testing.T, key *crypto.PrivateKey, nonce uint64, txType types.TxType, payload interface{}) *types.Transaction {
	t.Helper()
	tx := &types.Transaction{ChainID: testChainID, Type: txType, Nonce: nonce}
	require.NoError(t, tx.SetPayload(payload))
	require.NoError(t, tx.Sign(key.PrivateKey))
	return tx
}

// send signs payload with the holder key at the next nonce and applies it. The
// local nonce only advances on success.
func (l *testLedger) send(t *testing.T, txType types.TxType, payload interface{}) (*types.Receipt, error) {
	t.Helper()
	receipt, err := l.node.ApplyTransaction(context.Background(), signed(t, l.holder, l.nonce, txType, payload))
	if err == nil {
		l.nonce++
	}
	return receipt, err
}

func (l *testLedger) mustSend(t *testing.T, txType types.TxType, payload interface{}) *types.Receipt {
	t.Helper()
	receipt, err := l.send(t, txType, payload)
	require.NoError(t, err)
	require.Equal(t, types.ReceiptSuccess, receipt.Status)
	return receipt
}

func addrString(b byte) (string, [20]byte) {
	var raw [20]byte
	raw[0] = b
	raw[19] = b
	return crypto.Render(raw), raw
}

func TestFullStakingFlow(t *testing.T) {
	l := newTestLedger(t)
	holder := l.holderAddr()
	assetStr, asset := addrString(0xA1)
	rewardStr, reward := addrString(0xB2)

	l.mustSend(t, types.TxTypeCreateAsset, types.CreateAssetPayload{Mint: assetStr, Name: "Test NFT", Symbol: "TNFT", URI: "https://example.invalid/1.json"})
	l.mustSend(t, types.TxTypeInitRewardMint, types.InitRewardMintPayload{Mint: rewardStr})
	l.mustSend(t, types.TxTypeDelegateAsset, types.AssetPayload{Asset: assetStr})

	receipt := l.mustSend(t, types.TxTypeStakeAsset, types.AssetPayload{Asset: assetStr})
	require.Len(t, receipt.Events, 1)
	require.Equal(t, staking.EventTypeAssetStaked, receipt.Events[0].Type)

	record, err := l.node.StakeRecord(holder, asset)
	require.NoError(t, err)
	require.Equal(t, int64(1000), record.StakedAt)
	status, err := l.node.Status(holder, asset)
	require.NoError(t, err)
	require.Equal(t, staking.StatusStaked, status)
	staked, err := l.node.StakedAssets(holder)
	require.NoError(t, err)
	require.Equal(t, [][20]byte{asset}, staked)

	l.now = 1100
	preview, err := l.node.PreviewRewards(holder, asset)
	require.NoError(t, err)
	require.Equal(t, uint64(100), preview)
	l.mustSend(t, types.TxTypeSendRewards, types.SendRewardsPayload{Asset: assetStr, RewardMint: rewardStr})
	l.now = 1200
	l.mustSend(t, types.TxTypeSendRewards, types.SendRewardsPayload{Asset: assetStr, RewardMint: rewardStr})

	balance, err := l.node.RewardBalance(holder, reward)
	require.NoError(t, err)
	require.True(t, balance.Eq(uint256.NewInt(300)), "balance %s", balance)

	l.mustSend(t, types.TxTypeUnstakeAsset, types.AssetPayload{Asset: assetStr})
	account, err := l.node.TokenAccount(holder, asset)
	require.NoError(t, err)
	require.False(t, account.Frozen)
	require.True(t, account.Amount.Eq(uint256.NewInt(1)))
	status, err = l.node.Status(holder, asset)
	require.NoError(t, err)
	require.Equal(t, staking.StatusReleased, status)

	native, err := l.node.Account(holder)
	require.NoError(t, err)
	require.Equal(t, uint64(50000-staking.DefaultRecordDeposit), native.Deposits)

	l.mustSend(t, types.TxTypeCloseRecord, types.AssetPayload{Asset: assetStr})
	status, err = l.node.Status(holder, asset)
	require.NoError(t, err)
	require.Equal(t, staking.StatusUnstaked, status)
	native, err = l.node.Account(holder)
	require.NoError(t, err)
	require.Equal(t, uint64(50000), native.Deposits)
	require.Equal(t, uint64(8), native.Nonce)
	staked, err = l.node.StakedAssets(holder)
	require.NoError(t, err)
	require.Empty(t, staked)
}

func TestFailedTransactionLeavesNoTrace(t *testing.T) {
	l := newTestLedger(t)
	holder := l.holderAddr()
	assetStr, asset := addrString(0xA1)
	l.mustSend(t, types.TxTypeCreateAsset, types.CreateAssetPayload{Mint: assetStr, Name: "Test NFT", Symbol: "TNFT"})

	receipt, err := l.send(t, types.TxTypeStakeAsset, types.AssetPayload{Asset: assetStr})
	require.Error(t, err)
	require.Equal(t, "UnauthorizedSigner", ErrorKind(err))
	require.Equal(t, types.ReceiptFailed, receipt.Status)
	require.Empty(t, receipt.Events)

	_, err = l.node.StakeRecord(holder, asset)
	require.True(t, errors.Is(err, staking.ErrRecordNotFound))
	account, err := l.node.TokenAccount(holder, asset)
	require.NoError(t, err)
	require.False(t, account.Frozen)
	native, err := l.node.Account(holder)
	require.NoError(t, err)
	require.Equal(t, uint64(50000), native.Deposits)
	require.Equal(t, uint64(1), native.Nonce)

	l.mustSend(t, types.TxTypeDelegateAsset, types.AssetPayload{Asset: assetStr})
	l.mustSend(t, types.TxTypeStakeAsset, types.AssetPayload{Asset: assetStr})
	_, err = l.send(t, types.TxTypeStakeAsset, types.AssetPayload{Asset: assetStr})
	require.True(t, errors.Is(err, staking.ErrRecordAlreadyExists))
	nonce, err := l.node.Nonce(holder)
	require.NoError(t, err)
	require.Equal(t, uint64(3), nonce)
}

func TestRewardsBeforeStakeTimeFail(t *testing.T) {
	l := newTestLedger(t)
	assetStr, _ := addrString(0xA1)
	rewardStr, reward := addrString(0xB2)
	l.mustSend(t, types.TxTypeCreateAsset, types.CreateAssetPayload{Mint: assetStr, Name: "Test NFT", Symbol: "TNFT"})
	l.mustSend(t, types.TxTypeInitRewardMint, types.InitRewardMintPayload{Mint: rewardStr})
	l.mustSend(t, types.TxTypeDelegateAsset, types.AssetPayload{Asset: assetStr})
	l.mustSend(t, types.TxTypeStakeAsset, types.AssetPayload{Asset: assetStr})

	l.now = 999
	_, err := l.send(t, types.TxTypeSendRewards, types.SendRewardsPayload{Asset: assetStr, RewardMint: rewardStr})
	require.True(t, errors.Is(err, staking.ErrArithmeticFault))
	balance, err := l.node.RewardBalance(l.holderAddr(), reward)
	require.NoError(t, err)
	require.True(t, balance.IsZero())
}

func TestForeignHolderRejected(t *testing.T) {
	l := newTestLedger(t)
	assetStr, _ := addrString(0xA1)
	l.mustSend(t, types.TxTypeCreateAsset, types.CreateAssetPayload{Mint: assetStr, Name: "Test NFT", Symbol: "TNFT"})
	l.mustSend(t, types.TxTypeDelegateAsset, types.AssetPayload{Asset: assetStr})

	intruder, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	tx := signed(t, intruder, 0, types.TxTypeStakeAsset, types.AssetPayload{
		Holder: l.holder.PubKey().Address().String(),
		Asset:  assetStr,
	})
	_, err = l.node.ApplyTransaction(context.Background(), tx)
	require.True(t, errors.Is(err, staking.ErrUnauthorizedSigner))
}

func TestTransactionEnvelopeChecks(t *testing.T) {
	l := newTestLedger(t)
	assetStr, _ := addrString(0xA1)
	payload := types.AssetPayload{Asset: assetStr}

	wrongChain := signed(t, l.holder, 0, types.TxTypeDelegateAsset, payload)
	wrongChain.ChainID = testChainID + 1
	_, err := l.node.ApplyTransaction(context.Background(), wrongChain)
	require.True(t, errors.Is(err, ErrInvalidChainID))

	_, err = l.node.ApplyTransaction(context.Background(), signed(t, l.holder, 5, types.TxTypeDelegateAsset, payload))
	require.True(t, errors.Is(err, ErrNonceMismatch))

	unsigned := &types.Transaction{ChainID: testChainID, Type: types.TxTypeDelegateAsset}
	require.NoError(t, unsigned.SetPayload(payload))
	_, err = l.node.ApplyTransaction(context.Background(), unsigned)
	require.True(t, errors.Is(err, ErrInvalidSignature))

	_, err = l.node.ApplyTransaction(context.Background(), signed(t, l.holder, 0, types.TxType(0x7f), payload))
	require.True(t, errors.Is(err, ErrUnknownTxType))

	_, err = l.send(t, types.TxTypeDelegateAsset, types.AssetPayload{Asset: "not-an-address"})
	require.True(t, errors.Is(err, ErrInvalidPayload))
	require.Equal(t, "InvalidPayload", ErrorKind(err))

	_, err = l.node.ApplyTransaction(context.Background(), nil)
	require.True(t, errors.Is(err, ErrNilTransaction))
}

func TestEventsReachEmitterOnlyOnCommit(t *testing.T) {
	l := newTestLedger(t)
	sink := &events.Recorder{}
	l.node.SetEmitter(sink)
	assetStr, _ := addrString(0xA1)

	_, err := l.send(t, types.TxTypeStakeAsset, types.AssetPayload{Asset: assetStr})
	require.Error(t, err)
	require.Empty(t, sink.Events())

	l.mustSend(t, types.TxTypeCreateAsset, types.CreateAssetPayload{Mint: assetStr, Name: "Test NFT", Symbol: "TNFT"})
	payloads := sink.Payloads()
	require.Len(t, payloads, 1)
	require.Equal(t, staking.EventTypeAssetCreated, payloads[0].Type)
}

func TestApplyGenesisIsIdempotent(t *testing.T) {
	l := newTestLedger(t)
	spec, err := genesis.ParseGenesisSpec([]byte(fmt.Sprintf("genesisTime: \"2026-01-01T00:00:00Z\"\nchainId: %d\nprogramLabel: nft-staking\n", testChainID)))
	require.NoError(t, err)
	require.NoError(t, l.node.ApplyGenesis(spec))

	other, err := genesis.ParseGenesisSpec([]byte("genesisTime: \"2026-01-01T00:00:00Z\"\nchainId: 1\nprogramLabel: nft-staking\n"))
	require.NoError(t, err)
	require.ErrorContains(t, l.node.ApplyGenesis(other), "genesis targets chain 1")

	relabeled, err := genesis.ParseGenesisSpec([]byte(fmt.Sprintf("genesisTime: \"2026-01-01T00:00:00Z\"\nchainId: %d\nprogramLabel: other-program\n", testChainID)))
	require.NoError(t, err)
	require.Error(t, l.node.ApplyGenesis(relabeled))

	authorities := l.node.Authorities()
	require.Equal(t, staking.StakingAuthorityAddress(l.node.Program()), authorities.StakingAuthority)
	require.NotEqual(t, authorities.StakingAuthority, authorities.MintAuthority)
}

func TestSecondStakeOfSamePairFails(t *testing.T) {
	l := newTestLedger(t)
	holder := l.holderAddr()
	assetStr, asset := addrString(0xA1)
	l.mustSend(t, types.TxTypeCreateAsset, types.CreateAssetPayload{Mint: assetStr, Name: "Test NFT", Symbol: "TNFT"})
	l.mustSend(t, types.TxTypeDelegateAsset, types.AssetPayload{Asset: assetStr})
	l.mustSend(t, types.TxTypeStakeAsset, types.AssetPayload{Asset: assetStr})
	first, err := l.node.StakeRecord(holder, asset)
	require.NoError(t, err)

	l.now = 1500
	receipt, err := l.send(t, types.TxTypeStakeAsset, types.AssetPayload{Asset: assetStr})
	require.Error(t, err)
	require.Equal(t, "RecordAlreadyExists", ErrorKind(err))
	require.Equal(t, types.ReceiptFailed, receipt.Status)

	record, err := l.node.StakeRecord(holder, asset)
	require.NoError(t, err)
	require.Equal(t, first.StakedAt, record.StakedAt)
	nonce, err := l.node.Nonce(holder)
	require.NoError(t, err)
	require.Equal(t, uint64(3), nonce)
}

func TestShiftedRecoveryIDRejected(t *testing.T) {
	l := newTestLedger(t)
	assetStr, _ := addrString(0xA1)
	tx := signed(t, l.holder, 0, types.TxTypeCreateAsset, types.CreateAssetPayload{Mint: assetStr, Name: "Test NFT", Symbol: "TNFT"})
	forged := &types.Transaction{ChainID: tx.ChainID, Type: tx.Type, Nonce: tx.Nonce, Payload: tx.Payload, R: tx.R, S: tx.S,
		V: new(big.Int).Add(tx.V, big.NewInt(256))}

	_, err := l.node.ApplyTransaction(context.Background(), forged)
	require.Error(t, err)
	require.Equal(t, "InvalidSignature", ErrorKind(err))
	nonce, err := l.node.Nonce(l.holderAddr())
	require.NoError(t, err)
	require.Zero(t, nonce)

	l.mustSend(t, types.TxTypeCreateAsset, types.CreateAssetPayload{Mint: assetStr, Name: "Test NFT", Symbol: "TNFT"})
}
