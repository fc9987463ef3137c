package staking

import (
	"strconv"

	"nftstake/core/events"
	"nftstake/core/types"
	"nftstake/crypto"
)

const (
	// EventTypeAssetCreated is emitted when a single-edition asset is minted.
	EventTypeAssetCreated = "staking.asset.created"
	// EventTypeRewardMintInitialized is emitted when the reward token is defined.
	EventTypeRewardMintInitialized = "staking.rewardMint.initialized"
	// EventTypeAssetDelegated is emitted when a holder approves the staking authority.
	EventTypeAssetDelegated = "staking.asset.delegated"
	// EventTypeAssetUndelegated is emitted when a holder revokes the approval.
	EventTypeAssetUndelegated = "staking.asset.undelegated"
	// EventTypeAssetStaked is emitted when a record is created and the account frozen.
	EventTypeAssetStaked = "staking.asset.staked"
	// EventTypeAssetUnstaked is emitted when the account is thawed.
	EventTypeAssetUnstaked = "staking.asset.unstaked"
	// EventTypeRewardsIssued is emitted when rewards are minted to a holder.
	EventTypeRewardsIssued = "staking.rewards.issued"
	// EventTypeRecordClosed is emitted when a holder reclaims a record.
	EventTypeRecordClosed = "staking.record.closed"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

func newEvent(kind string, holder, asset [20]byte) *types.Event {
	return &types.Event{
		Type: kind,
		Attributes: map[string]string{
			"holder": crypto.Render(holder),
			"asset":  crypto.Render(asset),
		},
	}
}

// AssetCreatedEvent describes a freshly minted asset.
func AssetCreatedEvent(holder, asset [20]byte, name, symbol, uri string) *types.Event {
	evt := newEvent(EventTypeAssetCreated, holder, asset)
	evt.Attributes["name"] = name
	evt.Attributes["symbol"] = symbol
	evt.Attributes["uri"] = uri
	return evt
}

// RewardMintInitializedEvent describes the reward token definition.
func RewardMintInitializedEvent(mint, authority [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeRewardMintInitialized,
		Attributes: map[string]string{
			"mint":          crypto.Render(mint),
			"mintAuthority": crypto.FromArray(crypto.ProgramPrefix, authority).String(),
		},
	}
}

// DelegationEvent describes an approval grant or revocation.
func DelegationEvent(kind string, holder, asset, delegate [20]byte) *types.Event {
	evt := newEvent(kind, holder, asset)
	if !types.IsZeroAddress(delegate) {
		evt.Attributes["delegate"] = crypto.FromArray(crypto.ProgramPrefix, delegate).String()
	}
	return evt
}

// StakeEvent describes a stake entry or exit.
func StakeEvent(kind string, record *StakeRecord) *types.Event {
	evt := newEvent(kind, record.Holder, record.Asset)
	evt.Attributes["record"] = crypto.FromArray(crypto.ProgramPrefix, record.Address).String()
	evt.Attributes["stakedAt"] = strconv.FormatInt(record.StakedAt, 10)
	return evt
}

// RewardsIssuedEvent describes a reward mint.
func RewardsIssuedEvent(issue *RewardIssue) *types.Event {
	evt := newEvent(EventTypeRewardsIssued, issue.Holder, issue.Asset)
	evt.Attributes["rewardMint"] = crypto.Render(issue.RewardMint)
	evt.Attributes["amount"] = strconv.FormatUint(issue.Amount, 10)
	evt.Attributes["stakedAt"] = strconv.FormatInt(issue.StakedAt, 10)
	evt.Attributes["issuedAt"] = strconv.FormatInt(issue.IssuedAt, 10)
	return evt
}

// RecordClosedEvent describes a reclaimed record.
func RecordClosedEvent(record *StakeRecord, refund uint64) *types.Event {
	evt := StakeEvent(EventTypeRecordClosed, record)
	evt.Attributes["refund"] = strconv.FormatUint(refund, 10)
	return evt
}
