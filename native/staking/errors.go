package staking

import (
	"errors"

	"nftstake/native/token"
)

// Kind classifies a staking failure. Kinds are stable strings surfaced to RPC
// clients and receipts.
type Kind string

const (
	KindTokenAccountEmpty   Kind = "TokenAccountEmpty"
	KindTokenNotNFT         Kind = "TokenNotNFT"
	KindArithmeticFault     Kind = "ArithmeticFault"
	KindUnauthorizedSigner  Kind = "UnauthorizedSigner"
	KindRecordNotFound      Kind = "RecordNotFound"
	KindRecordAlreadyExists Kind = "RecordAlreadyExists"
	KindInsufficientBalance Kind = "InsufficientBalance"
	KindInsufficientDeposit Kind = "InsufficientDeposit"
	KindRewardMintNotFound  Kind = "RewardMintNotFound"
	KindRegistry            Kind = "RegistryError"
	KindInternal            Kind = "Internal"
)

// Error is a classified staking failure. Two errors match under errors.Is when
// their kinds are equal, so callers can compare against the sentinels below
// regardless of the message.
type Error struct {
	Kind Kind
	msg  string
}

func (e *Error) Error() string { return "staking: " + e.msg }

// Code returns the stable kind string.
func (e *Error) Code() string { return string(e.Kind) }

// Is reports whether target carries the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNilState            = &Error{Kind: KindInternal, msg: "state not configured"}
	ErrTokenAccountEmpty   = &Error{Kind: KindTokenAccountEmpty, msg: "associated token account does not hold exactly one token"}
	ErrTokenNotNFT         = &Error{Kind: KindTokenNotNFT, msg: "token supply can exceed one so it is not an NFT"}
	ErrArithmeticFault     = &Error{Kind: KindArithmeticFault, msg: "reward duration overflowed"}
	ErrUnauthorizedSigner  = &Error{Kind: KindUnauthorizedSigner, msg: "operation not signed by the holder"}
	ErrRecordNotFound      = &Error{Kind: KindRecordNotFound, msg: "stake record not found"}
	ErrRecordAlreadyExists = &Error{Kind: KindRecordAlreadyExists, msg: "stake record already exists"}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance, msg: "holder account balance must be exactly one"}
	ErrInsufficientDeposit = &Error{Kind: KindInsufficientDeposit, msg: "holder deposit cannot fund the stake record"}
	ErrRewardMintNotFound  = &Error{Kind: KindRewardMintNotFound, msg: "reward mint not initialized"}
)

// KindOf classifies err. Registry authority failures surface as
// UnauthorizedSigner and registry overflow as ArithmeticFault.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	switch {
	case errors.Is(err, token.ErrUnauthorized), errors.Is(err, token.ErrNotDelegate):
		return KindUnauthorizedSigner
	case errors.Is(err, token.ErrOverflow):
		return KindArithmeticFault
	case errors.Is(err, token.ErrAccountFrozen),
		errors.Is(err, token.ErrAccountNotFrozen),
		errors.Is(err, token.ErrMintExists),
		errors.Is(err, token.ErrMintNotFound),
		errors.Is(err, token.ErrAccountNotFound),
		errors.Is(err, token.ErrMintMismatch),
		errors.Is(err, token.ErrMetadataExists),
		errors.Is(err, token.ErrMetadataNotFound),
		errors.Is(err, token.ErrEditionExists),
		errors.Is(err, token.ErrEditionNotFound),
		errors.Is(err, token.ErrInvalidEditionMint),
		errors.Is(err, token.ErrFreezeAuthority),
		errors.Is(err, token.ErrInvalidMetadataData):
		return KindRegistry
	}
	return KindInternal
}
