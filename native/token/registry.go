package token

import (
	"strings"
	"unicode/utf8"

	"github.com/holiman/uint256"

	"nftstake/core/types"
	"nftstake/crypto"
)

const (
	maxNameLength   = 32
	maxSymbolLength = 10
	maxURILength    = 200
)

var (
	// ProgramID is the identity of the token program.
	ProgramID = crypto.ProgramID("token")
	// MetadataProgramID is the identity of the descriptor program that owns
	// metadata and master editions.
	MetadataProgramID = crypto.ProgramID("metadata")
)

type registryState interface {
	Mint(addr [20]byte) (*types.Mint, bool, error)
	PutMint(mint *types.Mint) error
	TokenAccount(addr [20]byte) (*types.TokenAccount, bool, error)
	PutTokenAccount(account *types.TokenAccount) error
	Metadata(mint [20]byte) (*types.Metadata, bool, error)
	PutMetadata(meta *types.Metadata) error
	MasterEdition(mint [20]byte) (*types.MasterEdition, bool, error)
	PutMasterEdition(edition *types.MasterEdition) error
}

// Registry applies token and descriptor operations against ledger state. Every
// operation checks the authority it is invoked with; callers cannot bypass it.
type Registry struct {
	state registryState
}

// NewRegistry constructs a registry over state.
func NewRegistry(state registryState) *Registry {
	return &Registry{state: state}
}

// AssociatedAddress returns the canonical token account address for an
// owner's balance of mint.
func AssociatedAddress(owner, mint [20]byte) [20]byte {
	return crypto.DeriveProgramAddress(ProgramID, owner[:], mint[:])
}

// EditionAddress returns the master edition address for mint.
func EditionAddress(mint [20]byte) [20]byte {
	return crypto.DeriveProgramAddress(MetadataProgramID, []byte("metadata"), mint[:], []byte("edition"))
}

func (r *Registry) ready() error {
	if r == nil || r.state == nil {
		return ErrNilState
	}
	return nil
}

func (r *Registry) loadMint(addr [20]byte) (*types.Mint, error) {
	mint, ok, err := r.state.Mint(addr)
	if err != nil {
		return nil, err
	}
	if !ok || mint == nil {
		return nil, ErrMintNotFound
	}
	return mint, nil
}

func (r *Registry) loadAccount(addr [20]byte) (*types.TokenAccount, error) {
	account, ok, err := r.state.TokenAccount(addr)
	if err != nil {
		return nil, err
	}
	if !ok || account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// Mint returns the mint at addr.
func (r *Registry) Mint(addr [20]byte) (*types.Mint, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	return r.loadMint(addr)
}

// Account returns the token account at addr.
func (r *Registry) Account(addr [20]byte) (*types.TokenAccount, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	return r.loadAccount(addr)
}

// MasterEdition returns the edition attached to mint, if any.
func (r *Registry) MasterEdition(mint [20]byte) (*types.MasterEdition, bool, error) {
	if err := r.ready(); err != nil {
		return nil, false, err
	}
	return r.state.MasterEdition(mint)
}

// CreateMint defines a new token. A zero freeze authority leaves the mint
// without one.
func (r *Registry) CreateMint(addr [20]byte, decimals uint8, mintAuthority, freezeAuthority [20]byte) (*types.Mint, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	if _, ok, err := r.state.Mint(addr); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrMintExists
	}
	mint := &types.Mint{
		Address:         addr,
		Decimals:        decimals,
		Supply:          new(uint256.Int),
		MintAuthority:   mintAuthority,
		FreezeAuthority: freezeAuthority,
	}
	if err := r.state.PutMint(mint); err != nil {
		return nil, err
	}
	return mint, nil
}

// CreateAccount returns the owner's associated account for mint, creating an
// empty one when it does not exist yet.
func (r *Registry) CreateAccount(owner, mint [20]byte) (*types.TokenAccount, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	if _, err := r.loadMint(mint); err != nil {
		return nil, err
	}
	addr := AssociatedAddress(owner, mint)
	if existing, ok, err := r.state.TokenAccount(addr); err != nil {
		return nil, err
	} else if ok && existing != nil {
		return existing, nil
	}
	account := &types.TokenAccount{Address: addr, Mint: mint, Owner: owner, Amount: new(uint256.Int)}
	if err := r.state.PutTokenAccount(account); err != nil {
		return nil, err
	}
	return account, nil
}

// MintTo issues amount new units of mint into the destination account. A zero
// amount is accepted and changes nothing.
func (r *Registry) MintTo(mintAddr, dest, authority [20]byte, amount uint64) error {
	if err := r.ready(); err != nil {
		return err
	}
	mint, err := r.loadMint(mintAddr)
	if err != nil {
		return err
	}
	if types.IsZeroAddress(mint.MintAuthority) || mint.MintAuthority != authority {
		return ErrUnauthorized
	}
	account, err := r.loadAccount(dest)
	if err != nil {
		return err
	}
	if account.Mint != mintAddr {
		return ErrMintMismatch
	}
	if account.Frozen {
		return ErrAccountFrozen
	}
	delta := uint256.NewInt(amount)
	supply, overflow := new(uint256.Int).AddOverflow(mint.Supply, delta)
	if overflow {
		return ErrOverflow
	}
	balance, overflow := new(uint256.Int).AddOverflow(account.Amount, delta)
	if overflow {
		return ErrOverflow
	}
	mint.Supply = supply
	account.Amount = balance
	if err := r.state.PutMint(mint); err != nil {
		return err
	}
	return r.state.PutTokenAccount(account)
}

// Approve lets delegate move up to amount units out of the account.
// Re-approving replaces the previous delegate.
func (r *Registry) Approve(accountAddr, owner, delegate [20]byte, amount uint64) error {
	if err := r.ready(); err != nil {
		return err
	}
	account, err := r.loadAccount(accountAddr)
	if err != nil {
		return err
	}
	if account.Owner != owner {
		return ErrUnauthorized
	}
	if account.Frozen {
		return ErrAccountFrozen
	}
	account.Delegate = delegate
	account.DelegatedAmount = amount
	return r.state.PutTokenAccount(account)
}

// Revoke clears any delegate on the account. Revoking an account without a
// delegate succeeds without changing it.
func (r *Registry) Revoke(accountAddr, owner [20]byte) error {
	if err := r.ready(); err != nil {
		return err
	}
	account, err := r.loadAccount(accountAddr)
	if err != nil {
		return err
	}
	if account.Owner != owner {
		return ErrUnauthorized
	}
	if account.Frozen {
		return ErrAccountFrozen
	}
	if !account.HasDelegate() {
		return nil
	}
	account.Delegate = [20]byte{}
	account.DelegatedAmount = 0
	return r.state.PutTokenAccount(account)
}

// checkDelegatedCustody validates that delegate may freeze or thaw the
// account through the asset's master edition.
func (r *Registry) checkDelegatedCustody(account *types.TokenAccount, delegate [20]byte) error {
	if !account.HasDelegate() || account.Delegate != delegate {
		return ErrNotDelegate
	}
	edition, ok, err := r.state.MasterEdition(account.Mint)
	if err != nil {
		return err
	}
	if !ok || edition == nil {
		return ErrEditionNotFound
	}
	mint, err := r.loadMint(account.Mint)
	if err != nil {
		return err
	}
	if mint.FreezeAuthority != edition.Address {
		return ErrFreezeAuthority
	}
	return nil
}

// FreezeDelegated freezes the account on behalf of its approved delegate.
func (r *Registry) FreezeDelegated(accountAddr, delegate [20]byte) error {
	if err := r.ready(); err != nil {
		return err
	}
	account, err := r.loadAccount(accountAddr)
	if err != nil {
		return err
	}
	if err := r.checkDelegatedCustody(account, delegate); err != nil {
		return err
	}
	if account.Frozen {
		return ErrAccountFrozen
	}
	account.Frozen = true
	return r.state.PutTokenAccount(account)
}

// ThawDelegated thaws an account previously frozen by its delegate.
func (r *Registry) ThawDelegated(accountAddr, delegate [20]byte) error {
	if err := r.ready(); err != nil {
		return err
	}
	account, err := r.loadAccount(accountAddr)
	if err != nil {
		return err
	}
	if err := r.checkDelegatedCustody(account, delegate); err != nil {
		return err
	}
	if !account.Frozen {
		return ErrAccountNotFrozen
	}
	account.Frozen = false
	return r.state.PutTokenAccount(account)
}

// MetadataArgs is the descriptor attached by CreateMetadata.
type MetadataArgs struct {
	Name         string
	Symbol       string
	URI          string
	SellerFeeBps uint16
	Creators     []types.Creator
	Mutable      bool
}

func (a MetadataArgs) validate() error {
	if !utf8.ValidString(a.Name) || len(a.Name) > maxNameLength {
		return ErrInvalidMetadataData
	}
	if !utf8.ValidString(a.Symbol) || len(a.Symbol) > maxSymbolLength {
		return ErrInvalidMetadataData
	}
	if len(a.URI) > maxURILength {
		return ErrInvalidMetadataData
	}
	if a.SellerFeeBps > 10_000 {
		return ErrInvalidMetadataData
	}
	if len(a.Creators) > 0 {
		total := 0
		for _, c := range a.Creators {
			total += int(c.Share)
		}
		if total != 100 {
			return ErrInvalidMetadataData
		}
	}
	return nil
}

// CreateMetadata attaches a descriptor to mint. The caller must be the
// mint's current mint authority.
func (r *Registry) CreateMetadata(mintAddr, mintAuthority, updateAuthority [20]byte, args MetadataArgs) (*types.Metadata, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	args.Name = strings.TrimSpace(args.Name)
	args.Symbol = strings.TrimSpace(args.Symbol)
	args.URI = strings.TrimSpace(args.URI)
	if err := args.validate(); err != nil {
		return nil, err
	}
	mint, err := r.loadMint(mintAddr)
	if err != nil {
		return nil, err
	}
	if mint.MintAuthority != mintAuthority {
		return nil, ErrUnauthorized
	}
	if _, ok, err := r.state.Metadata(mintAddr); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrMetadataExists
	}
	meta := &types.Metadata{
		Mint:            mintAddr,
		UpdateAuthority: updateAuthority,
		Name:            args.Name,
		Symbol:          args.Symbol,
		URI:             args.URI,
		SellerFeeBps:    args.SellerFeeBps,
		Creators:        append([]types.Creator(nil), args.Creators...),
		Mutable:         args.Mutable,
	}
	if err := r.state.PutMetadata(meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// CreateMasterEdition caps the number of prints of an asset and hands the
// mint and freeze authorities to the edition. After this no further units can
// be minted and only an approved delegate can freeze holder accounts.
func (r *Registry) CreateMasterEdition(mintAddr, authority [20]byte, maxSupply *uint64) (*types.MasterEdition, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	mint, err := r.loadMint(mintAddr)
	if err != nil {
		return nil, err
	}
	if mint.MintAuthority != authority {
		return nil, ErrUnauthorized
	}
	if _, ok, err := r.state.Metadata(mintAddr); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrMetadataNotFound
	}
	if _, ok, err := r.state.MasterEdition(mintAddr); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrEditionExists
	}
	if mint.Decimals != 0 || !mint.Supply.Eq(uint256.NewInt(1)) {
		return nil, ErrInvalidEditionMint
	}
	edition := &types.MasterEdition{Address: EditionAddress(mintAddr), Mint: mintAddr, Supply: 0}
	if maxSupply != nil {
		max := *maxSupply
		edition.MaxSupply = &max
	}
	mint.MintAuthority = edition.Address
	mint.FreezeAuthority = edition.Address
	if err := r.state.PutMint(mint); err != nil {
		return nil, err
	}
	if err := r.state.PutMasterEdition(edition); err != nil {
		return nil, err
	}
	return edition, nil
}
