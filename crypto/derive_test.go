package crypto

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveProgramAddressDeterministic(t *testing.T) {
	program := ProgramID("nft-staking")
	first := DeriveProgramAddress(program, []byte("staking_Authority"))
	second := DeriveProgramAddress(program, []byte("staking_Authority"))
	require.Equal(t, first, second)

	other := DeriveProgramAddress(program, []byte("mint-authority"))
	require.NotEqual(t, first, other)

	otherProgram := DeriveProgramAddress(ProgramID("another"), []byte("staking_Authority"))
	require.NotEqual(t, first, otherProgram)
}

func TestDeriveProgramAddressSeedBoundaries(t *testing.T) {
	program := ProgramID("nft-staking")
	a := DeriveProgramAddress(program, []byte("ab"), []byte("c"))
	b := DeriveProgramAddress(program, []byte("a"), []byte("bc"))
	require.NotEqual(t, a, b)
}

func TestAddressRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	addr := key.PubKey().Address()

	decoded, err := DecodeAddress(addr.String())
	require.NoError(t, err)
	require.Equal(t, addr.Array(), decoded.Array())
	require.Equal(t, NFTPrefix, decoded.Prefix())
}

func TestDecodeAddressRejectsShortPayload(t *testing.T) {
	_, err := DecodeAddress("not-an-address")
	require.Error(t, err)
}

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "holder.keystore")

	require.NoError(t, SaveToKeystore(path, key, "correct horse"))
	loaded, err := LoadFromKeystore(path, "correct horse")
	require.NoError(t, err)
	require.Equal(t, key.Bytes(), loaded.Bytes())

	_, err = LoadFromKeystore(path, "wrong")
	require.Error(t, err)
}
