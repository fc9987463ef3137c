package genesis

import (
	"errors"
	"fmt"

	"nftstake/core/state"
	"nftstake/crypto"
	"nftstake/native/staking"
)

var genesisMarkerKey = []byte("genesis/applied")

// ErrAlreadyApplied is returned when the ledger was already seeded.
var ErrAlreadyApplied = errors.New("genesis: already applied")

type marker struct {
	ChainID      uint64
	ProgramLabel string
	Timestamp    uint64
}

// Applied reports the chain id and program label recorded at genesis.
func Applied(manager *state.Manager) (chainID uint64, programLabel string, ok bool, err error) {
	journal := manager.Begin()
	defer journal.Discard()
	var m marker
	found, err := journal.KVGet(genesisMarkerKey, &m)
	if err != nil || !found {
		return 0, "", false, err
	}
	return m.ChainID, m.ProgramLabel, true, nil
}

// BuildGenesisFromSpec seeds deposits and the optional reward mint in a single
// journal. Running it twice against the same database fails with
// ErrAlreadyApplied.
func BuildGenesisFromSpec(spec *GenesisSpec, manager *state.Manager) error {
	if spec == nil {
		return fmt.Errorf("genesis spec must not be nil")
	}
	if manager == nil {
		return fmt.Errorf("state manager must not be nil")
	}
	journal := manager.Begin()
	committed := false
	defer func() {
		if !committed {
			journal.Discard()
		}
	}()

	var existing marker
	if found, err := journal.KVGet(genesisMarkerKey, &existing); err != nil {
		return err
	} else if found {
		return ErrAlreadyApplied
	}

	for _, alloc := range spec.Allocations() {
		account, err := journal.Account(alloc.Address)
		if err != nil {
			return err
		}
		account.Deposits = alloc.Amount
		if err := journal.PutAccount(account); err != nil {
			return fmt.Errorf("deposit %s: %w", crypto.Render(alloc.Address), err)
		}
	}

	if spec.RewardMint != nil {
		engine := staking.NewEngine(crypto.ProgramID(spec.ProgramLabel))
		engine.SetState(journal)
		mint, payer := spec.RewardMint.RewardMintAddresses()
		if _, err := engine.InitializeRewardMint(payer, mint); err != nil {
			return fmt.Errorf("reward mint: %w", err)
		}
	}

	if err := journal.KVPut(genesisMarkerKey, marker{
		ChainID:      spec.ChainID,
		ProgramLabel: spec.ProgramLabel,
		Timestamp:    uint64(spec.GenesisTimestamp().Unix()),
	}); err != nil {
		return err
	}
	if err := journal.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
