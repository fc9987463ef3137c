package staking

import (
	"github.com/holiman/uint256"

	"nftstake/core/types"
	"nftstake/native/token"
)

var one = uint256.NewInt(1)

// holderAccount loads the holder's associated account for asset. A missing
// account reads as an empty one.
func (e *Engine) holderAccount(holder, asset [20]byte) (*types.TokenAccount, bool, error) {
	account, ok, err := e.state.TokenAccount(token.AssociatedAddress(holder, asset))
	if err != nil {
		return nil, false, err
	}
	if !ok || account == nil || account.Mint != asset || account.Owner != holder {
		return nil, false, nil
	}
	return account, true, nil
}

func holdsExactlyOne(account *types.TokenAccount) bool {
	return account != nil && account.Amount != nil && account.Amount.Eq(one)
}

func (e *Engine) requireZeroDecimals(asset [20]byte) error {
	mint, ok, err := e.state.Mint(asset)
	if err != nil {
		return err
	}
	if !ok || mint == nil || mint.Decimals != 0 {
		return ErrTokenNotNFT
	}
	return nil
}

// GrantDelegation approves the staking authority to act on one unit of the
// holder's asset account. Re-granting replaces the approval with an identical
// one.
func (e *Engine) GrantDelegation(signer, holder, asset [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if signer != holder {
		return ErrUnauthorizedSigner
	}
	if err := e.requireZeroDecimals(asset); err != nil {
		return err
	}
	account, ok, err := e.holderAccount(holder, asset)
	if err != nil {
		return err
	}
	if !ok || !holdsExactlyOne(account) {
		return ErrInsufficientBalance
	}
	delegate := e.StakingAuthority().Address()
	if err := e.registry.Approve(account.Address, holder, delegate, 1); err != nil {
		return err
	}
	e.emit(DelegationEvent(EventTypeAssetDelegated, holder, asset, delegate))
	return nil
}

// RevokeDelegation clears any approval on the holder's asset account. Revoking
// when nothing is approved succeeds and changes nothing.
func (e *Engine) RevokeDelegation(signer, holder, asset [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if signer != holder {
		return ErrUnauthorizedSigner
	}
	if err := e.requireZeroDecimals(asset); err != nil {
		return err
	}
	account, ok, err := e.holderAccount(holder, asset)
	if err != nil {
		return err
	}
	if !ok || !holdsExactlyOne(account) {
		return ErrTokenAccountEmpty
	}
	if !account.HasDelegate() {
		return nil
	}
	if err := e.registry.Revoke(account.Address, holder); err != nil {
		return err
	}
	e.emit(DelegationEvent(EventTypeAssetUndelegated, holder, asset, [20]byte{}))
	return nil
}
