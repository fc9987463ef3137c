package crypto

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// programDerivedMarker is mixed into every derivation so a derived identity can
// never collide with a contract address created from real init code.
var programDerivedMarker = crypto.Keccak256([]byte("ProgramDerivedAddress"))

// DeriveProgramAddress returns the identity controlled by program for the
// given seeds. The result has no private key; it is recomputed on demand and
// is identical for identical inputs. Seeds are length-prefixed so that
// ("ab","c") and ("a","bc") derive different identities.
func DeriveProgramAddress(program [AddressLength]byte, seeds ...[]byte) [AddressLength]byte {
	buf := make([]byte, 0, 64)
	var lenBuf [4]byte
	for _, seed := range seeds {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(seed)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, seed...)
	}
	salt := crypto.Keccak256Hash(buf)
	derived := crypto.CreateAddress2(common.Address(program), salt, programDerivedMarker)
	return [AddressLength]byte(derived)
}

// ProgramID derives a program's own identity from its namespace label.
func ProgramID(label string) [AddressLength]byte {
	var root [AddressLength]byte
	return DeriveProgramAddress(root, []byte("program"), []byte(label))
}
