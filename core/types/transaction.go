package types

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// TxType defines the purpose of a transaction.
type TxType byte

const (
	TxTypeCreateAsset     TxType = 0x01 // Mint a single-edition asset with its descriptor
	TxTypeInitRewardMint  TxType = 0x02 // Define the fungible reward token
	TxTypeDelegateAsset   TxType = 0x03 // Approve the staking authority on a holder account
	TxTypeUndelegateAsset TxType = 0x04 // Revoke the approval
	TxTypeStakeAsset      TxType = 0x05 // Create the stake record and freeze
	TxTypeUnstakeAsset    TxType = 0x06 // Thaw the holder account
	TxTypeSendRewards     TxType = 0x07 // Mint accrued rewards to the holder
	TxTypeCloseRecord     TxType = 0x08 // Destroy the stake record and refund its deposit
)

var txTypeNames = map[TxType]string{
	TxTypeCreateAsset:     "CreateAsset",
	TxTypeInitRewardMint:  "InitRewardMint",
	TxTypeDelegateAsset:   "DelegateAsset",
	TxTypeUndelegateAsset: "UndelegateAsset",
	TxTypeStakeAsset:      "StakeAsset",
	TxTypeUnstakeAsset:    "UnstakeAsset",
	TxTypeSendRewards:     "SendRewards",
	TxTypeCloseRecord:     "CloseRecord",
}

func (t TxType) String() string {
	if name, ok := txTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TxType(0x%02x)", byte(t))
}

// Valid reports whether t is a known transaction type.
func (t TxType) Valid() bool {
	_, ok := txTypeNames[t]
	return ok
}

// ParseTxType resolves a transaction type from its name.
func ParseTxType(name string) (TxType, error) {
	for t, n := range txTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown transaction type %q", name)
}

var errMissingSignature = errors.New("transaction is not signed")

// Transaction is a signed request against the ledger. The signer is the holder
// on whose behalf the operation runs; program authorities never sign.
type Transaction struct {
	ChainID uint64 `json:"chainId"`
	Type    TxType `json:"type"`
	Nonce   uint64 `json:"nonce"`
	Payload []byte `json:"payload"`

	R *big.Int `json:"r"`
	S *big.Int `json:"s"`
	V *big.Int `json:"v"`

	from []byte
}

type signingPayload struct {
	ChainID uint64
	Type    uint8
	Nonce   uint64
	Payload []byte
}

// Hash returns the Keccak-256 digest of the RLP-encoded signing payload.
func (tx *Transaction) Hash() ([]byte, error) {
	encoded, err := rlp.EncodeToBytes(signingPayload{
		ChainID: tx.ChainID,
		Type:    uint8(tx.Type),
		Nonce:   tx.Nonce,
		Payload: tx.Payload,
	})
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256(encoded), nil
}

func (tx *Transaction) Sign(privKey *ecdsa.PrivateKey) error {
	hash, err := tx.Hash()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash, privKey)
	if err != nil {
		return err
	}
	tx.R = new(big.Int).SetBytes(sig[:32])
	tx.S = new(big.Int).SetBytes(sig[32:64])
	tx.V = new(big.Int).SetBytes([]byte{sig[64] + 27})
	tx.from = nil
	return nil
}

// From recovers the signer's address.
func (tx *Transaction) From() ([]byte, error) {
	if tx.from != nil {
		return tx.from, nil
	}
	if tx.R == nil || tx.S == nil || tx.V == nil {
		return nil, errMissingSignature
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	rBytes, sBytes := tx.R.Bytes(), tx.S.Bytes()
	if len(rBytes) > 32 || len(sBytes) > 32 || !tx.V.IsUint64() || (tx.V.Uint64() != 27 && tx.V.Uint64() != 28) {
		return nil, fmt.Errorf("malformed signature")
	}
	sig := make([]byte, 65)
	copy(sig[32-len(rBytes):32], rBytes)
	copy(sig[64-len(sBytes):64], sBytes)
	sig[64] = byte(tx.V.Uint64() - 27)
	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return nil, err
	}
	tx.from = crypto.PubkeyToAddress(*pubKey).Bytes()
	return tx.from, nil
}

// SetPayload encodes v as the transaction payload.
func (tx *Transaction) SetPayload(v interface{}) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tx.Payload = encoded
	tx.from = nil
	return nil
}

// DecodePayload decodes the transaction payload into out.
func (tx *Transaction) DecodePayload(out interface{}) error {
	if len(tx.Payload) == 0 {
		return fmt.Errorf("%s: payload required", tx.Type)
	}
	if err := json.Unmarshal(tx.Payload, out); err != nil {
		return fmt.Errorf("%s: invalid payload: %w", tx.Type, err)
	}
	return nil
}

// CreateAssetPayload carries the descriptor for a new single-edition asset.
// Mint is the bech32 address the holder picked for the asset.
type CreateAssetPayload struct {
	Mint   string `json:"mint"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	URI    string `json:"uri"`
}

// InitRewardMintPayload names the address of the reward mint to create.
type InitRewardMintPayload struct {
	Mint string `json:"mint"`
}

// AssetPayload identifies the asset a holder-scoped operation acts on. An
// empty Holder means the signer.
type AssetPayload struct {
	Holder string `json:"holder,omitempty"`
	Asset  string `json:"asset"`
}

// SendRewardsPayload identifies the staked asset and the reward mint.
type SendRewardsPayload struct {
	Holder     string `json:"holder,omitempty"`
	Asset      string `json:"asset"`
	RewardMint string `json:"rewardMint"`
}
