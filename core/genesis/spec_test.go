package genesis

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"nftstake/core/state"
	"nftstake/crypto"
	"nftstake/native/staking"
	"nftstake/storage"
)

func testSpecYAML(holder, mint string) string {
	return fmt.Sprintf(`genesisTime: "2026-01-01T00:00:00Z"
chainId: 7077
programLabel: nft-staking
deposits:
  %s: 50000
rewardMint:
  address: %s
  payer: %s
`, holder, mint, holder)
}

func TestLoadGenesisSpecAndBuild(t *testing.T) {
	holder := crypto.MustNewAddress(crypto.NFTPrefix, bytes.Repeat([]byte{0x01}, 20))
	mint := crypto.MustNewAddress(crypto.NFTPrefix, bytes.Repeat([]byte{0x07}, 20))
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSpecYAML(holder.String(), mint.String())), 0o600))

	spec, err := LoadGenesisSpec(path)
	require.NoError(t, err)
	require.Equal(t, uint64(7077), spec.ChainID)
	require.Equal(t, int64(1767225600), spec.GenesisTimestamp().Unix())
	require.Len(t, spec.Allocations(), 1)

	manager := state.NewManager(storage.NewMemDB())
	require.NoError(t, BuildGenesisFromSpec(spec, manager))

	journal := manager.Begin()
	defer journal.Discard()
	account, err := journal.Account(holder.Array())
	require.NoError(t, err)
	require.Equal(t, uint64(50000), account.Deposits)

	rewardMint, ok, err := journal.Mint(mint.Array())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, staking.MintAuthorityAddress(crypto.ProgramID("nft-staking")), rewardMint.MintAuthority)

	chainID, label, applied, err := Applied(manager)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, uint64(7077), chainID)
	require.Equal(t, "nft-staking", label)

	err = BuildGenesisFromSpec(spec, manager)
	require.True(t, errors.Is(err, ErrAlreadyApplied))
}

func TestParseGenesisSpecRejectsInvalid(t *testing.T) {
	holder := crypto.MustNewAddress(crypto.NFTPrefix, bytes.Repeat([]byte{0x01}, 20)).String()
	program := crypto.FromArray(crypto.ProgramPrefix, [20]byte{1}).String()
	cases := map[string]string{
		"missing time":    "chainId: 1\nprogramLabel: x\n",
		"zero chain":      "genesisTime: \"2026-01-01T00:00:00Z\"\nprogramLabel: x\n",
		"missing label":   "genesisTime: \"2026-01-01T00:00:00Z\"\nchainId: 1\n",
		"unknown field":   "genesisTime: \"2026-01-01T00:00:00Z\"\nchainId: 1\nprogramLabel: x\nextra: 1\n",
		"bad deposit hrp": fmt.Sprintf("genesisTime: \"2026-01-01T00:00:00Z\"\nchainId: 1\nprogramLabel: x\ndeposits:\n  %s: 5\n", program),
		"bad reward payer": fmt.Sprintf("genesisTime: \"2026-01-01T00:00:00Z\"\nchainId: 1\nprogramLabel: x\nrewardMint:\n  address: %s\n  payer: nope\n", holder),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseGenesisSpec([]byte(raw))
			require.Error(t, err)
		})
	}
}

func TestAppliedOnEmptyLedger(t *testing.T) {
	_, _, ok, err := Applied(state.NewManager(storage.NewMemDB()))
	require.NoError(t, err)
	require.False(t, ok)
}
