package core

import (
	"errors"

	"github.com/holiman/uint256"

	nftstate "nftstake/core/state"
	"nftstake/core/types"
	"nftstake/native/staking"
	"nftstake/native/token"
)

// Authorities lists the program-derived identities of the ledger.
type Authorities struct {
	Program          [20]byte `json:"program"`
	StakingAuthority [20]byte `json:"stakingAuthority"`
	MintAuthority    [20]byte `json:"mintAuthority"`
}

// read runs fn against a throwaway journal over committed state.
func (n *Node) read(fn func(*nftstate.Journal, *staking.Engine) error) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	journal := n.state.Begin()
	defer journal.Discard()
	return fn(journal, n.newEngine(journal, nil))
}

// Authorities returns the derived staking and mint authorities.
func (n *Node) Authorities() Authorities {
	return Authorities{
		Program:          n.program,
		StakingAuthority: staking.StakingAuthorityAddress(n.program),
		MintAuthority:    staking.MintAuthorityAddress(n.program),
	}
}

// StakeRecord returns the live record for (holder, asset).
func (n *Node) StakeRecord(holder, asset [20]byte) (*staking.StakeRecord, error) {
	var record *staking.StakeRecord
	err := n.read(func(_ *nftstate.Journal, engine *staking.Engine) error {
		var err error
		record, err = engine.Record(holder, asset)
		return err
	})
	return record, err
}

// Status reports the lifecycle position of (holder, asset).
func (n *Node) Status(holder, asset [20]byte) (staking.Status, error) {
	var status staking.Status
	err := n.read(func(_ *nftstate.Journal, engine *staking.Engine) error {
		var err error
		status, err = engine.Status(holder, asset)
		return err
	})
	return status, err
}

// PreviewRewards returns what a claim would mint at the current ledger time.
func (n *Node) PreviewRewards(holder, asset [20]byte) (uint64, error) {
	var amount uint64
	err := n.read(func(_ *nftstate.Journal, engine *staking.Engine) error {
		var err error
		amount, err = engine.PreviewRewards(holder, asset)
		return err
	})
	return amount, err
}

// TokenAccount returns owner's associated account for mint.
func (n *Node) TokenAccount(owner, mint [20]byte) (*types.TokenAccount, error) {
	var account *types.TokenAccount
	err := n.read(func(journal *nftstate.Journal, _ *staking.Engine) error {
		var err error
		account, err = token.NewRegistry(journal).Account(token.AssociatedAddress(owner, mint))
		return err
	})
	return account, err
}

// Mint returns the token definition at addr.
func (n *Node) Mint(addr [20]byte) (*types.Mint, error) {
	var mint *types.Mint
	err := n.read(func(journal *nftstate.Journal, _ *staking.Engine) error {
		var err error
		mint, err = token.NewRegistry(journal).Mint(addr)
		return err
	})
	return mint, err
}

// RewardBalance returns the holder's reward token balance, zero when the
// reward account does not exist yet.
func (n *Node) RewardBalance(holder, rewardMint [20]byte) (*uint256.Int, error) {
	account, err := n.TokenAccount(holder, rewardMint)
	if errors.Is(err, token.ErrAccountNotFound) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(account.Amount), nil
}

// Account returns the native account of addr.
func (n *Node) Account(addr [20]byte) (*types.Account, error) {
	var account *types.Account
	err := n.read(func(journal *nftstate.Journal, _ *staking.Engine) error {
		var err error
		account, err = journal.Account(addr)
		return err
	})
	return account, err
}

// Nonce returns the next nonce addr must sign with.
func (n *Node) Nonce(addr [20]byte) (uint64, error) {
	account, err := n.Account(addr)
	if err != nil {
		return 0, err
	}
	return account.Nonce, nil
}

// StakedAssets lists assets for which holder has an open record.
func (n *Node) StakedAssets(holder [20]byte) ([][20]byte, error) {
	var assets [][20]byte
	err := n.read(func(journal *nftstate.Journal, _ *staking.Engine) error {
		var err error
		assets, err = journal.StakedAssetsByHolder(holder)
		return err
	})
	return assets, err
}
