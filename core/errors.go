package core

import "errors"

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionExpired   = errors.New("session has expired")
	ErrSignatureInvalid = errors.New("invalid signature")
	ErrDecode           = errors.New("malformed story encoding")
	ErrInvalidAddress   = errors.New("invalid address")
	ErrNotAuthenticated = errors.New("session is not authenticated")
	ErrGrantConsumed    = errors.New("registration grant already used")
	ErrInvalidGrant     = errors.New("invalid registration grant")
	ErrBlockNotFound    = errors.New("block not found")
)
