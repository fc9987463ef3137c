package core

import (
	"errors"

	"nftstake/native/staking"
)

var (
	ErrNilTransaction   = errors.New("core: transaction required")
	ErrInvalidChainID   = errors.New("core: transaction chain id does not match the ledger")
	ErrUnknownTxType    = errors.New("core: unknown transaction type")
	ErrInvalidSignature = errors.New("core: invalid transaction signature")
	ErrNonceMismatch    = errors.New("core: transaction nonce does not match account nonce")
	ErrInvalidPayload   = errors.New("core: invalid transaction payload")
)

// ErrorKind classifies err for receipts, metrics and RPC clients. Staking and
// registry failures keep their staking kind.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNilTransaction), errors.Is(err, ErrInvalidPayload):
		return "InvalidPayload"
	case errors.Is(err, ErrInvalidChainID):
		return "InvalidChainID"
	case errors.Is(err, ErrUnknownTxType):
		return "UnknownTxType"
	case errors.Is(err, ErrInvalidSignature):
		return "InvalidSignature"
	case errors.Is(err, ErrNonceMismatch):
		return "NonceMismatch"
	}
	return string(staking.KindOf(err))
}
