package staking

import (
	"nftstake/crypto"
	"nftstake/native/token"
)

const (
	stakingAuthoritySeed = "staking_Authority"
	mintAuthoritySeed    = "mint-authority"
	stakeRecordSeed      = "nft_record"
)

// StakingAuthorityAddress is the custody delegate holders approve before
// staking.
func StakingAuthorityAddress(program [20]byte) [20]byte {
	return crypto.DeriveProgramAddress(program, []byte(stakingAuthoritySeed))
}

// MintAuthorityAddress is the identity allowed to mint reward tokens.
func MintAuthorityAddress(program [20]byte) [20]byte {
	return crypto.DeriveProgramAddress(program, []byte(mintAuthoritySeed))
}

// StakeRecordAddress locates the record for a (holder, asset) pair.
func StakeRecordAddress(program, holder, asset [20]byte) [20]byte {
	return crypto.DeriveProgramAddress(program, []byte(stakeRecordSeed), holder[:], asset[:])
}

// Authority is the signing capability of a program-derived identity. It can
// only be obtained from the engine, which derives it from the program ID on
// every use; no key material exists to persist or leak.
type Authority struct {
	address [20]byte
}

func deriveAuthority(program [20]byte, seed string) Authority {
	return Authority{address: crypto.DeriveProgramAddress(program, []byte(seed))}
}

// Address returns the derived identity.
func (a Authority) Address() [20]byte { return a.address }

// Lock freezes account through the registry as this authority.
func (a Authority) Lock(registry *token.Registry, account [20]byte) error {
	return registry.FreezeDelegated(account, a.address)
}

// Unlock thaws account through the registry as this authority.
func (a Authority) Unlock(registry *token.Registry, account [20]byte) error {
	return registry.ThawDelegated(account, a.address)
}

// MintTo issues amount units of mint to dest as this authority.
func (a Authority) MintTo(registry *token.Registry, mint, dest [20]byte, amount uint64) error {
	return registry.MintTo(mint, dest, a.address, amount)
}
