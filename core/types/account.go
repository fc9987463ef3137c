package types

import "github.com/holiman/uint256"

// Account tracks the native storage deposit held by an identity. Deposits fund
// program-owned records and are refunded when those records are closed.
type Account struct {
	Address  [20]byte `json:"address"`
	Nonce    uint64   `json:"nonce"`
	Deposits uint64   `json:"deposits"`
}

// Mint describes a token definition. Non-fungible assets are mints with zero
// decimals whose supply is capped at one by a master edition.
type Mint struct {
	Address         [20]byte     `json:"address"`
	Decimals        uint8        `json:"decimals"`
	Supply          *uint256.Int `json:"supply"`
	MintAuthority   [20]byte     `json:"mintAuthority"`
	FreezeAuthority [20]byte     `json:"freezeAuthority"`
}

// Clone returns a deep copy of the mint.
func (m *Mint) Clone() *Mint {
	if m == nil {
		return nil
	}
	clone := *m
	clone.Supply = cloneU256(m.Supply)
	return &clone
}

// TokenAccount records an owner's balance of a single mint. A frozen account
// rejects every balance-changing operation until it is thawed.
type TokenAccount struct {
	Address         [20]byte     `json:"address"`
	Mint            [20]byte     `json:"mint"`
	Owner           [20]byte     `json:"owner"`
	Amount          *uint256.Int `json:"amount"`
	Delegate        [20]byte     `json:"delegate"`
	DelegatedAmount uint64       `json:"delegatedAmount"`
	Frozen          bool         `json:"frozen"`
}

// Clone returns a deep copy of the token account.
func (a *TokenAccount) Clone() *TokenAccount {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Amount = cloneU256(a.Amount)
	return &clone
}

// HasDelegate reports whether a delegate is currently approved.
func (a *TokenAccount) HasDelegate() bool {
	return a != nil && !IsZeroAddress(a.Delegate)
}

// Creator is a verified share of an asset's attribution.
type Creator struct {
	Address  [20]byte `json:"address"`
	Verified bool     `json:"verified"`
	Share    uint8    `json:"share"`
}

// Metadata is the descriptor attached to a mint.
type Metadata struct {
	Mint            [20]byte  `json:"mint"`
	UpdateAuthority [20]byte  `json:"updateAuthority"`
	Name            string    `json:"name"`
	Symbol          string    `json:"symbol"`
	URI             string    `json:"uri"`
	SellerFeeBps    uint16    `json:"sellerFeeBps"`
	Creators        []Creator `json:"creators,omitempty"`
	Mutable         bool      `json:"mutable"`
}

// MasterEdition carries the maximum number of copies that may be printed from
// an asset. A nil MaxSupply means unlimited prints; zero means the asset is a
// single edition.
type MasterEdition struct {
	Address   [20]byte `json:"address"`
	Mint      [20]byte `json:"mint"`
	Supply    uint64   `json:"supply"`
	MaxSupply *uint64  `json:"maxSupply,omitempty"`
}

// SingleEdition reports whether no further copies can be issued.
func (e *MasterEdition) SingleEdition() bool {
	return e != nil && e.MaxSupply != nil && *e.MaxSupply == 0
}

// IsZeroAddress reports whether addr is unset.
func IsZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

func cloneU256(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
