package staking

import (
	"strings"
	"time"

	"nftstake/core/events"
	"nftstake/core/types"
	"nftstake/native/token"
)

// DefaultRecordDeposit is the storage deposit charged for each stake record
// and refunded when the record is closed.
const DefaultRecordDeposit uint64 = 1_000

const (
	rewardMintName   = "Reward Token"
	rewardMintSymbol = "RWT"
)

type engineState interface {
	Mint(addr [20]byte) (*types.Mint, bool, error)
	PutMint(mint *types.Mint) error
	TokenAccount(addr [20]byte) (*types.TokenAccount, bool, error)
	PutTokenAccount(account *types.TokenAccount) error
	Metadata(mint [20]byte) (*types.Metadata, bool, error)
	PutMetadata(meta *types.Metadata) error
	MasterEdition(mint [20]byte) (*types.MasterEdition, bool, error)
	PutMasterEdition(edition *types.MasterEdition) error
	Account(addr [20]byte) (*types.Account, error)
	PutAccount(account *types.Account) error
	StakeRecordRaw(addr [20]byte) ([]byte, bool, error)
	PutStakeRecordRaw(holder, asset, addr [20]byte, data []byte) error
	DeleteStakeRecord(holder, asset, addr [20]byte) error
}

// Engine implements delegation, custody and reward issuance for staked
// single-edition assets. All writes go through the configured state; callers
// wrap each operation in a journal so a failure leaves nothing behind.
type Engine struct {
	program       [20]byte
	state         engineState
	registry      *token.Registry
	emitter       events.Emitter
	nowFn         func() int64
	recordDeposit uint64
}

// NewEngine constructs an engine for the given program identity.
func NewEngine(program [20]byte) *Engine {
	return &Engine{
		program:       program,
		emitter:       events.NoopEmitter{},
		nowFn:         func() int64 { return time.Now().Unix() },
		recordDeposit: DefaultRecordDeposit,
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) {
	e.state = state
	if state == nil {
		e.registry = nil
		return
	}
	e.registry = token.NewRegistry(state)
}

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the clock used to stamp records and price rewards.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetRecordDeposit configures the deposit charged per stake record.
func (e *Engine) SetRecordDeposit(amount uint64) { e.recordDeposit = amount }

// Program returns the program identity the engine derives its authorities from.
func (e *Engine) Program() [20]byte { return e.program }

// StakingAuthority returns the custody capability.
func (e *Engine) StakingAuthority() Authority { return deriveAuthority(e.program, stakingAuthoritySeed) }

// MintAuthority returns the reward issuance capability.
func (e *Engine) MintAuthority() Authority { return deriveAuthority(e.program, mintAuthoritySeed) }

func (e *Engine) ready() error {
	if e == nil || e.state == nil || e.registry == nil {
		return ErrNilState
	}
	return nil
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// CreateAsset mints a single-edition asset to signer: a zero-decimal mint with
// an immutable descriptor, one unit in the signer's associated account, and a
// master edition capping supply at that unit.
func (e *Engine) CreateAsset(signer, mint [20]byte, name, symbol, uri string) (*types.MasterEdition, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if types.IsZeroAddress(signer) {
		return nil, ErrUnauthorizedSigner
	}
	if _, err := e.registry.CreateMint(mint, 0, signer, signer); err != nil {
		return nil, err
	}
	account, err := e.registry.CreateAccount(signer, mint)
	if err != nil {
		return nil, err
	}
	args := token.MetadataArgs{
		Name:     name,
		Symbol:   symbol,
		URI:      uri,
		Creators: []types.Creator{{Address: signer, Verified: true, Share: 100}},
	}
	if _, err := e.registry.CreateMetadata(mint, signer, signer, args); err != nil {
		return nil, err
	}
	if err := e.registry.MintTo(mint, account.Address, signer, 1); err != nil {
		return nil, err
	}
	var maxSupply uint64
	edition, err := e.registry.CreateMasterEdition(mint, signer, &maxSupply)
	if err != nil {
		return nil, err
	}
	e.emit(AssetCreatedEvent(signer, mint, strings.TrimSpace(name), strings.TrimSpace(symbol), strings.TrimSpace(uri)))
	return edition, nil
}

// InitializeRewardMint defines the reward token with the derived mint
// authority and no freeze authority. The payer only funds the definition.
func (e *Engine) InitializeRewardMint(payer, mint [20]byte) (*types.Mint, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if types.IsZeroAddress(payer) {
		return nil, ErrUnauthorizedSigner
	}
	authority := e.MintAuthority().Address()
	created, err := e.registry.CreateMint(mint, 0, authority, [20]byte{})
	if err != nil {
		return nil, err
	}
	args := token.MetadataArgs{Name: rewardMintName, Symbol: rewardMintSymbol, Mutable: true}
	if _, err := e.registry.CreateMetadata(mint, authority, payer, args); err != nil {
		return nil, err
	}
	e.emit(RewardMintInitializedEvent(mint, authority))
	return created, nil
}

// RewardMint returns the reward token definition at addr when it was
// initialized by this engine's program.
func (e *Engine) RewardMint(addr [20]byte) (*types.Mint, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	mint, ok, err := e.state.Mint(addr)
	if err != nil {
		return nil, err
	}
	if !ok || mint == nil || mint.MintAuthority != e.MintAuthority().Address() {
		return nil, ErrRewardMintNotFound
	}
	return mint, nil
}
