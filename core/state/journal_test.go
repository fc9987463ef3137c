package state

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"nftstake/core/types"
	"nftstake/storage"
)

func addr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

func TestJournalDiscardLeavesNoTrace(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)

	j := mgr.Begin()
	require.NoError(t, j.PutMint(&types.Mint{Address: addr(1), Supply: uint256.NewInt(1)}))
	_, ok, err := j.Mint(addr(1))
	require.NoError(t, err)
	require.True(t, ok, "journal must observe its own writes")
	j.Discard()

	require.Equal(t, 0, db.Len())
	_, ok, err = mgr.Begin().Mint(addr(1))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestJournalCommitIsVisible(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())

	j := mgr.Begin()
	acct := &types.TokenAccount{
		Address:  addr(2),
		Mint:     addr(1),
		Owner:    addr(3),
		Amount:   uint256.NewInt(1),
		Delegate: addr(9),
		Frozen:   true,
	}
	require.NoError(t, j.PutTokenAccount(acct))
	require.NoError(t, j.Commit())
	require.Error(t, j.Commit(), "journal cannot be committed twice")

	loaded, ok, err := mgr.Begin().TokenAccount(addr(2))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, acct.Owner, loaded.Owner)
	require.Equal(t, acct.Delegate, loaded.Delegate)
	require.True(t, loaded.Frozen)
	require.Equal(t, uint64(1), loaded.Amount.Uint64())
}

func TestMasterEditionMaxSupplyRoundTrip(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	j := mgr.Begin()

	zero := uint64(0)
	require.NoError(t, j.PutMasterEdition(&types.MasterEdition{Address: addr(5), Mint: addr(1), Supply: 1, MaxSupply: &zero}))
	require.NoError(t, j.PutMasterEdition(&types.MasterEdition{Address: addr(6), Mint: addr(2)}))

	single, ok, err := j.MasterEdition(addr(1))
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, single.SingleEdition())

	unlimited, ok, err := j.MasterEdition(addr(2))
	require.NoError(t, err)
	require.True(t, ok)
	require.Nil(t, unlimited.MaxSupply)
	require.False(t, unlimited.SingleEdition())
}

func TestStakeRecordIndex(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	j := mgr.Begin()
	holder := addr(7)

	require.NoError(t, j.PutStakeRecordRaw(holder, addr(1), addr(11), []byte{1, 2}))
	require.NoError(t, j.PutStakeRecordRaw(holder, addr(2), addr(12), []byte{3, 4}))
	require.NoError(t, j.Commit())

	view := mgr.Begin()
	assets, err := view.StakedAssetsByHolder(holder)
	require.NoError(t, err)
	require.Equal(t, [][20]byte{addr(1), addr(2)}, assets)

	tx := mgr.Begin()
	require.NoError(t, tx.DeleteStakeRecord(holder, addr(1), addr(11)))
	_, ok, err := tx.StakeRecordRaw(addr(11))
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, tx.Commit())

	assets, err = mgr.Begin().StakedAssetsByHolder(holder)
	require.NoError(t, err)
	require.Equal(t, [][20]byte{addr(2)}, assets)
}

func TestAccountDefaultsToZero(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	acct, err := mgr.Begin().Account(addr(4))
	require.NoError(t, err)
	require.Equal(t, addr(4), acct.Address)
	require.Zero(t, acct.Nonce)
	require.Zero(t, acct.Deposits)
}

func TestEnsureSchemaVersion(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)
	_, ok, err := mgr.StoredSchemaVersion()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, mgr.EnsureSchemaVersion(false))
	version, ok, err := mgr.StoredSchemaVersion()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, SchemaVersion, version)
	require.NoError(t, mgr.EnsureSchemaVersion(false))

	j := mgr.Begin()
	require.NoError(t, j.KVPut(schemaVersionKey, uint64(SchemaVersion+1)))
	require.NoError(t, j.Commit())
	require.ErrorIs(t, mgr.EnsureSchemaVersion(false), ErrSchemaVersionMismatch)
	require.NoError(t, mgr.EnsureSchemaVersion(true))
}
