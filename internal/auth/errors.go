package auth

import (
	sdkerrors "cosmossdk.io/errors"
)

const codespace = "auth"

// Sentinel errors surfaced by the session manager. Both map to a 401 at
// the HTTP boundary but carry distinct user-facing messages.
var (
	ErrSessionMissing = sdkerrors.Register(codespace, 2, "session ID required")
	ErrSessionInvalid = sdkerrors.Register(codespace, 3, "invalid or expired session")
	ErrEmptyAddress   = sdkerrors.Register(codespace, 4, "wallet address required")
)
