package token

import "errors"

var (
	ErrNilState            = errors.New("token: state not configured")
	ErrUnauthorized        = errors.New("token: unauthorized")
	ErrMintExists          = errors.New("token: mint already exists")
	ErrMintNotFound        = errors.New("token: mint not found")
	ErrAccountNotFound     = errors.New("token: account not found")
	ErrMintMismatch        = errors.New("token: account belongs to a different mint")
	ErrAccountFrozen       = errors.New("token: account is frozen")
	ErrAccountNotFrozen    = errors.New("token: account is not frozen")
	ErrNotDelegate         = errors.New("token: signer is not the account delegate")
	ErrOverflow            = errors.New("token: amount overflow")
	ErrMetadataExists      = errors.New("token: metadata already exists")
	ErrMetadataNotFound    = errors.New("token: metadata not found")
	ErrEditionExists       = errors.New("token: master edition already exists")
	ErrEditionNotFound     = errors.New("token: master edition not found")
	ErrInvalidEditionMint  = errors.New("token: edition requires a zero-decimal mint with supply 1")
	ErrFreezeAuthority     = errors.New("token: mint freeze authority is not the edition")
	ErrInvalidMetadataData = errors.New("token: invalid metadata")
)
