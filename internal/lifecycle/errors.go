package lifecycle

import (
	sdkerrors "cosmossdk.io/errors"
)

const codespace = "lifecycle"

// Sentinel errors for the deployment lifecycle. Callers distinguish
// these with errors.Is; internal causes are attached by wrapping.
var (
	ErrNotFound    = sdkerrors.Register(codespace, 2, "deployment not found")
	ErrValidation  = sdkerrors.Register(codespace, 3, "invalid deployment request")
	ErrTransport   = sdkerrors.Register(codespace, 4, "marketplace unreachable")
	ErrPersistence = sdkerrors.Register(codespace, 5, "deployment store failure")
)
