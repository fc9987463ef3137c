package staking

import (
	"bytes"
	"encoding/binary"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// RecordSize is the persisted size of a stake record: an 8-byte type
// discriminator followed by the 8-byte little-endian staked_at timestamp.
const RecordSize = 16

var recordDiscriminator = ethcrypto.Keccak256([]byte("account:StakeRecord"))[:8]

// StakeRecord marks an asset as staked by a holder. StakedAt is written once
// when the record is created and never changes afterwards.
type StakeRecord struct {
	Address  [20]byte `json:"address"`
	Holder   [20]byte `json:"holder"`
	Asset    [20]byte `json:"asset"`
	StakedAt int64    `json:"stakedAt"`
}

// EncodeRecord renders the fixed-size persisted form.
func EncodeRecord(stakedAt int64) []byte {
	out := make([]byte, RecordSize)
	copy(out[:8], recordDiscriminator)
	binary.LittleEndian.PutUint64(out[8:], uint64(stakedAt))
	return out
}

// DecodeRecord parses the persisted form and returns staked_at.
func DecodeRecord(data []byte) (int64, error) {
	if len(data) != RecordSize {
		return 0, fmt.Errorf("staking: record must be %d bytes, got %d", RecordSize, len(data))
	}
	if !bytes.Equal(data[:8], recordDiscriminator) {
		return 0, fmt.Errorf("staking: record discriminator mismatch")
	}
	return int64(binary.LittleEndian.Uint64(data[8:])), nil
}
