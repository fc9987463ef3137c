package state

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"nftstake/core/types"
)

var (
	accountPrefix      = []byte("account:")
	mintPrefix         = []byte("mint:")
	tokenAccountPrefix = []byte("token-account:")
	metadataPrefix     = []byte("metadata:")
	editionPrefix      = []byte("edition:")
)

// storedMint mirrors types.Mint with RLP-friendly field types.
type storedMint struct {
	Decimals        uint8
	Supply          *big.Int
	MintAuthority   [20]byte
	FreezeAuthority [20]byte
}

type storedTokenAccount struct {
	Mint            [20]byte
	Owner           [20]byte
	Amount          *big.Int
	Delegate        [20]byte
	DelegatedAmount uint64
	Frozen          bool
}

type storedCreator struct {
	Address  [20]byte
	Verified bool
	Share    uint8
}

type storedMetadata struct {
	UpdateAuthority [20]byte
	Name            string
	Symbol          string
	URI             string
	SellerFeeBps    uint16
	Creators        []storedCreator
	Mutable         bool
}

type storedEdition struct {
	Address      [20]byte
	Supply       uint64
	HasMaxSupply bool
	MaxSupply    uint64
}

type storedAccount struct {
	Nonce    uint64
	Deposits uint64
}

func toU256(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("state: stored amount exceeds 256 bits")
	}
	return out, nil
}

func toBig(v *uint256.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v.ToBig()
}

func (j *Journal) getRLP(key []byte, out interface{}) (bool, error) {
	data, err := j.get(key)
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func (j *Journal) putRLP(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return j.put(key, encoded)
}

// Account returns the native account for addr, or a zero-valued account when
// none has been written yet.
func (j *Journal) Account(addr [20]byte) (*types.Account, error) {
	stored := new(storedAccount)
	if _, err := j.getRLP(hashedKey(accountPrefix, addr[:]), stored); err != nil {
		return nil, err
	}
	return &types.Account{Address: addr, Nonce: stored.Nonce, Deposits: stored.Deposits}, nil
}

// PutAccount persists the native account.
func (j *Journal) PutAccount(account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	return j.putRLP(hashedKey(accountPrefix, account.Address[:]), &storedAccount{
		Nonce:    account.Nonce,
		Deposits: account.Deposits,
	})
}

// Mint loads the mint stored at addr.
func (j *Journal) Mint(addr [20]byte) (*types.Mint, bool, error) {
	stored := new(storedMint)
	ok, err := j.getRLP(hashedKey(mintPrefix, addr[:]), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	supply, err := toU256(stored.Supply)
	if err != nil {
		return nil, false, err
	}
	return &types.Mint{
		Address:         addr,
		Decimals:        stored.Decimals,
		Supply:          supply,
		MintAuthority:   stored.MintAuthority,
		FreezeAuthority: stored.FreezeAuthority,
	}, true, nil
}

// PutMint persists the mint.
func (j *Journal) PutMint(mint *types.Mint) error {
	if mint == nil {
		return fmt.Errorf("state: nil mint")
	}
	return j.putRLP(hashedKey(mintPrefix, mint.Address[:]), &storedMint{
		Decimals:        mint.Decimals,
		Supply:          toBig(mint.Supply),
		MintAuthority:   mint.MintAuthority,
		FreezeAuthority: mint.FreezeAuthority,
	})
}

// TokenAccount loads the token account stored at addr.
func (j *Journal) TokenAccount(addr [20]byte) (*types.TokenAccount, bool, error) {
	stored := new(storedTokenAccount)
	ok, err := j.getRLP(hashedKey(tokenAccountPrefix, addr[:]), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	amount, err := toU256(stored.Amount)
	if err != nil {
		return nil, false, err
	}
	return &types.TokenAccount{
		Address:         addr,
		Mint:            stored.Mint,
		Owner:           stored.Owner,
		Amount:          amount,
		Delegate:        stored.Delegate,
		DelegatedAmount: stored.DelegatedAmount,
		Frozen:          stored.Frozen,
	}, true, nil
}

// PutTokenAccount persists the token account.
func (j *Journal) PutTokenAccount(account *types.TokenAccount) error {
	if account == nil {
		return fmt.Errorf("state: nil token account")
	}
	return j.putRLP(hashedKey(tokenAccountPrefix, account.Address[:]), &storedTokenAccount{
		Mint:            account.Mint,
		Owner:           account.Owner,
		Amount:          toBig(account.Amount),
		Delegate:        account.Delegate,
		DelegatedAmount: account.DelegatedAmount,
		Frozen:          account.Frozen,
	})
}

// Metadata loads the descriptor attached to mint.
func (j *Journal) Metadata(mint [20]byte) (*types.Metadata, bool, error) {
	stored := new(storedMetadata)
	ok, err := j.getRLP(hashedKey(metadataPrefix, mint[:]), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	meta := &types.Metadata{
		Mint:            mint,
		UpdateAuthority: stored.UpdateAuthority,
		Name:            stored.Name,
		Symbol:          stored.Symbol,
		URI:             stored.URI,
		SellerFeeBps:    stored.SellerFeeBps,
		Mutable:         stored.Mutable,
	}
	for _, c := range stored.Creators {
		meta.Creators = append(meta.Creators, types.Creator{Address: c.Address, Verified: c.Verified, Share: c.Share})
	}
	return meta, true, nil
}

// PutMetadata persists a mint descriptor.
func (j *Journal) PutMetadata(meta *types.Metadata) error {
	if meta == nil {
		return fmt.Errorf("state: nil metadata")
	}
	stored := &storedMetadata{
		UpdateAuthority: meta.UpdateAuthority,
		Name:            meta.Name,
		Symbol:          meta.Symbol,
		URI:             meta.URI,
		SellerFeeBps:    meta.SellerFeeBps,
		Creators:        []storedCreator{},
		Mutable:         meta.Mutable,
	}
	for _, c := range meta.Creators {
		stored.Creators = append(stored.Creators, storedCreator{Address: c.Address, Verified: c.Verified, Share: c.Share})
	}
	return j.putRLP(hashedKey(metadataPrefix, meta.Mint[:]), stored)
}

// MasterEdition loads the edition attached to mint.
func (j *Journal) MasterEdition(mint [20]byte) (*types.MasterEdition, bool, error) {
	stored := new(storedEdition)
	ok, err := j.getRLP(hashedKey(editionPrefix, mint[:]), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	edition := &types.MasterEdition{Address: stored.Address, Mint: mint, Supply: stored.Supply}
	if stored.HasMaxSupply {
		max := stored.MaxSupply
		edition.MaxSupply = &max
	}
	return edition, true, nil
}

// PutMasterEdition persists the edition attached to a mint.
func (j *Journal) PutMasterEdition(edition *types.MasterEdition) error {
	if edition == nil {
		return fmt.Errorf("state: nil edition")
	}
	stored := &storedEdition{Address: edition.Address, Supply: edition.Supply}
	if edition.MaxSupply != nil {
		stored.HasMaxSupply = true
		stored.MaxSupply = *edition.MaxSupply
	}
	return j.putRLP(hashedKey(editionPrefix, edition.Mint[:]), stored)
}
