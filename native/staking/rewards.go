package staking

import (
	"math"

	"nftstake/native/token"
)

// RewardIssue summarises a reward mint.
type RewardIssue struct {
	Holder        [20]byte `json:"holder"`
	Asset         [20]byte `json:"asset"`
	RewardMint    [20]byte `json:"rewardMint"`
	RewardAccount [20]byte `json:"rewardAccount"`
	Amount        uint64   `json:"amount"`
	StakedAt      int64    `json:"stakedAt"`
	IssuedAt      int64    `json:"issuedAt"`
}

// computeReward returns now - stakedAt. A negative or overflowing duration is
// an error; the result is never clamped.
func computeReward(now, stakedAt int64) (uint64, error) {
	if stakedAt < 0 && now > math.MaxInt64+stakedAt {
		return 0, ErrArithmeticFault
	}
	if stakedAt > 0 && now < math.MinInt64+stakedAt {
		return 0, ErrArithmeticFault
	}
	elapsed := now - stakedAt
	if elapsed < 0 {
		return 0, ErrArithmeticFault
	}
	return uint64(elapsed), nil
}

// PreviewRewards returns what IssueRewards would mint right now without
// changing state.
func (e *Engine) PreviewRewards(holder, asset [20]byte) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	record, ok, err := e.loadRecord(holder, asset)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrRecordNotFound
	}
	return computeReward(e.now(), record.StakedAt)
}

// IssueRewards mints now - staked_at reward units to the holder's reward
// account. The record's staked_at is left untouched, so every call pays the
// full duration since the stake began.
func (e *Engine) IssueRewards(signer, holder, asset, rewardMint [20]byte) (*RewardIssue, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if signer != holder {
		return nil, ErrUnauthorizedSigner
	}
	if _, err := e.RewardMint(rewardMint); err != nil {
		return nil, err
	}
	if err := e.requireZeroDecimals(asset); err != nil {
		return nil, err
	}
	record, ok, err := e.loadRecord(holder, asset)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRecordNotFound
	}
	now := e.now()
	amount, err := computeReward(now, record.StakedAt)
	if err != nil {
		return nil, err
	}
	account, err := e.registry.CreateAccount(holder, rewardMint)
	if err != nil {
		return nil, err
	}
	if err := e.MintAuthority().MintTo(e.registry, rewardMint, account.Address, amount); err != nil {
		return nil, err
	}
	issue := &RewardIssue{
		Holder:        holder,
		Asset:         asset,
		RewardMint:    rewardMint,
		RewardAccount: token.AssociatedAddress(holder, rewardMint),
		Amount:        amount,
		StakedAt:      record.StakedAt,
		IssuedAt:      now,
	}
	e.emit(RewardsIssuedEvent(issue))
	return issue, nil
}
