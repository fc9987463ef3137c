package core

import (
	"fmt"
	"strings"

	"nftstake/core/types"
	"nftstake/crypto"
	"nftstake/native/staking"
)

type txEffect struct {
	recordOpened bool
	recordClosed bool
	rewards      uint64
}

func (n *Node) dispatch(engine *staking.Engine, signer [20]byte, tx *types.Transaction) (txEffect, error) {
	switch tx.Type {
	case types.TxTypeCreateAsset:
		return txEffect{}, n.applyCreateAsset(engine, signer, tx)
	case types.TxTypeInitRewardMint:
		return txEffect{}, n.applyInitRewardMint(engine, signer, tx)
	case types.TxTypeDelegateAsset:
		holder, asset, err := decodeAssetPayload(signer, tx)
		if err != nil {
			return txEffect{}, err
		}
		return txEffect{}, engine.GrantDelegation(signer, holder, asset)
	case types.TxTypeUndelegateAsset:
		holder, asset, err := decodeAssetPayload(signer, tx)
		if err != nil {
			return txEffect{}, err
		}
		return txEffect{}, engine.RevokeDelegation(signer, holder, asset)
	case types.TxTypeStakeAsset:
		holder, asset, err := decodeAssetPayload(signer, tx)
		if err != nil {
			return txEffect{}, err
		}
		if _, err := engine.EnterStake(signer, holder, asset); err != nil {
			return txEffect{}, err
		}
		return txEffect{recordOpened: true}, nil
	case types.TxTypeUnstakeAsset:
		holder, asset, err := decodeAssetPayload(signer, tx)
		if err != nil {
			return txEffect{}, err
		}
		_, err = engine.ExitStake(signer, holder, asset)
		return txEffect{}, err
	case types.TxTypeSendRewards:
		return n.applySendRewards(engine, signer, tx)
	case types.TxTypeCloseRecord:
		holder, asset, err := decodeAssetPayload(signer, tx)
		if err != nil {
			return txEffect{}, err
		}
		if _, err := engine.CloseRecord(signer, holder, asset); err != nil {
			return txEffect{}, err
		}
		return txEffect{recordClosed: true}, nil
	}
	return txEffect{}, fmt.Errorf("%w: %s", ErrUnknownTxType, tx.Type)
}

func (n *Node) applyCreateAsset(engine *staking.Engine, signer [20]byte, tx *types.Transaction) error {
	var payload types.CreateAssetPayload
	if err := tx.DecodePayload(&payload); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	mint, err := parseAddress("mint", payload.Mint)
	if err != nil {
		return err
	}
	_, err = engine.CreateAsset(signer, mint, payload.Name, payload.Symbol, payload.URI)
	return err
}

func (n *Node) applyInitRewardMint(engine *staking.Engine, signer [20]byte, tx *types.Transaction) error {
	var payload types.InitRewardMintPayload
	if err := tx.DecodePayload(&payload); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	mint, err := parseAddress("mint", payload.Mint)
	if err != nil {
		return err
	}
	_, err = engine.InitializeRewardMint(signer, mint)
	return err
}

func (n *Node) applySendRewards(engine *staking.Engine, signer [20]byte, tx *types.Transaction) (txEffect, error) {
	var payload types.SendRewardsPayload
	if err := tx.DecodePayload(&payload); err != nil {
		return txEffect{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	holder, err := holderOrSigner(signer, payload.Holder)
	if err != nil {
		return txEffect{}, err
	}
	asset, err := parseAddress("asset", payload.Asset)
	if err != nil {
		return txEffect{}, err
	}
	rewardMint, err := parseAddress("rewardMint", payload.RewardMint)
	if err != nil {
		return txEffect{}, err
	}
	issue, err := engine.IssueRewards(signer, holder, asset, rewardMint)
	if err != nil {
		return txEffect{}, err
	}
	return txEffect{rewards: issue.Amount}, nil
}

func decodeAssetPayload(signer [20]byte, tx *types.Transaction) ([20]byte, [20]byte, error) {
	var payload types.AssetPayload
	if err := tx.DecodePayload(&payload); err != nil {
		return [20]byte{}, [20]byte{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	holder, err := holderOrSigner(signer, payload.Holder)
	if err != nil {
		return [20]byte{}, [20]byte{}, err
	}
	asset, err := parseAddress("asset", payload.Asset)
	if err != nil {
		return [20]byte{}, [20]byte{}, err
	}
	return holder, asset, nil
}

func holderOrSigner(signer [20]byte, raw string) ([20]byte, error) {
	if strings.TrimSpace(raw) == "" {
		return signer, nil
	}
	return parseAddress("holder", raw)
}

func parseAddress(field, raw string) ([20]byte, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(raw))
	if err != nil {
		return [20]byte{}, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, field, err)
	}
	if addr.Prefix() != crypto.NFTPrefix {
		return [20]byte{}, fmt.Errorf("%w: %s: unexpected prefix %q", ErrInvalidPayload, field, addr.Prefix())
	}
	return addr.Array(), nil
}
