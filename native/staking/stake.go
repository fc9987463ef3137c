package staking

import "math"

// Status is the lifecycle position of a (holder, asset) pair.
type Status string

const (
	// StatusUnstaked means no record exists.
	StatusUnstaked Status = "unstaked"
	// StatusStaked means a record exists and the holder account is frozen.
	StatusStaked Status = "staked"
	// StatusReleased means the account was thawed but the record has not been
	// closed yet.
	StatusReleased Status = "released"
)

// requireSingleEdition fails with ErrTokenNotNFT unless asset is a
// zero-decimal mint whose master edition forbids further prints.
func (e *Engine) requireSingleEdition(asset [20]byte) error {
	if err := e.requireZeroDecimals(asset); err != nil {
		return err
	}
	edition, ok, err := e.state.MasterEdition(asset)
	if err != nil {
		return err
	}
	if !ok || !edition.SingleEdition() {
		return ErrTokenNotNFT
	}
	return nil
}

func (e *Engine) loadRecord(holder, asset [20]byte) (*StakeRecord, bool, error) {
	addr := StakeRecordAddress(e.program, holder, asset)
	raw, ok, err := e.state.StakeRecordRaw(addr)
	if err != nil || !ok {
		return nil, false, err
	}
	stakedAt, err := DecodeRecord(raw)
	if err != nil {
		return nil, false, err
	}
	return &StakeRecord{Address: addr, Holder: holder, Asset: asset, StakedAt: stakedAt}, true, nil
}

// Record returns the stake record for (holder, asset).
func (e *Engine) Record(holder, asset [20]byte) (*StakeRecord, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	record, ok, err := e.loadRecord(holder, asset)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRecordNotFound
	}
	return record, nil
}

// Status reports where (holder, asset) sits in the staking lifecycle.
func (e *Engine) Status(holder, asset [20]byte) (Status, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	_, ok, err := e.loadRecord(holder, asset)
	if err != nil {
		return "", err
	}
	if !ok {
		return StatusUnstaked, nil
	}
	account, found, err := e.holderAccount(holder, asset)
	if err != nil {
		return "", err
	}
	if found && account.Frozen {
		return StatusStaked, nil
	}
	return StatusReleased, nil
}

// EnterStake freezes the holder's asset account under the staking authority
// and opens a record stamped with the current time. Every precondition is
// checked before anything is written.
func (e *Engine) EnterStake(signer, holder, asset [20]byte) (*StakeRecord, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if signer != holder {
		return nil, ErrUnauthorizedSigner
	}
	if err := e.requireSingleEdition(asset); err != nil {
		return nil, err
	}
	account, ok, err := e.holderAccount(holder, asset)
	if err != nil {
		return nil, err
	}
	if !ok || !holdsExactlyOne(account) {
		return nil, ErrTokenAccountEmpty
	}
	if _, exists, err := e.loadRecord(holder, asset); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrRecordAlreadyExists
	}
	payer, err := e.state.Account(holder)
	if err != nil {
		return nil, err
	}
	if payer.Deposits < e.recordDeposit {
		return nil, ErrInsufficientDeposit
	}

	if err := e.StakingAuthority().Lock(e.registry, account.Address); err != nil {
		return nil, err
	}
	payer.Deposits -= e.recordDeposit
	if err := e.state.PutAccount(payer); err != nil {
		return nil, err
	}
	record := &StakeRecord{
		Address:  StakeRecordAddress(e.program, holder, asset),
		Holder:   holder,
		Asset:    asset,
		StakedAt: e.now(),
	}
	if err := e.state.PutStakeRecordRaw(holder, asset, record.Address, EncodeRecord(record.StakedAt)); err != nil {
		return nil, err
	}
	e.emit(StakeEvent(EventTypeAssetStaked, record))
	return record, nil
}

// ExitStake thaws the holder's asset account. The record stays in place until
// the holder closes it.
func (e *Engine) ExitStake(signer, holder, asset [20]byte) (*StakeRecord, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if signer != holder {
		return nil, ErrUnauthorizedSigner
	}
	record, ok, err := e.loadRecord(holder, asset)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRecordNotFound
	}
	if err := e.requireSingleEdition(asset); err != nil {
		return nil, err
	}
	account, found, err := e.holderAccount(holder, asset)
	if err != nil {
		return nil, err
	}
	if !found || !holdsExactlyOne(account) {
		return nil, ErrTokenAccountEmpty
	}
	if err := e.StakingAuthority().Unlock(e.registry, account.Address); err != nil {
		return nil, err
	}
	e.emit(StakeEvent(EventTypeAssetUnstaked, record))
	return record, nil
}

// CloseRecord deletes the holder's record and refunds its storage deposit.
// Custody is not inspected.
func (e *Engine) CloseRecord(signer, holder, asset [20]byte) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if signer != holder {
		return 0, ErrUnauthorizedSigner
	}
	record, ok, err := e.loadRecord(holder, asset)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrRecordNotFound
	}
	payer, err := e.state.Account(holder)
	if err != nil {
		return 0, err
	}
	if payer.Deposits > math.MaxUint64-e.recordDeposit {
		return 0, ErrArithmeticFault
	}
	if err := e.state.DeleteStakeRecord(holder, asset, record.Address); err != nil {
		return 0, err
	}
	payer.Deposits += e.recordDeposit
	if err := e.state.PutAccount(payer); err != nil {
		return 0, err
	}
	e.emit(RecordClosedEvent(record, e.recordDeposit))
	return e.recordDeposit, nil
}
