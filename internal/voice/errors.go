package voice

import (
	sdkerrors "cosmossdk.io/errors"
)

const codespace = "voice"

var (
	// ErrUnavailable indicates the speech service could not be reached
	// or rejected the request.
	ErrUnavailable = sdkerrors.Register(codespace, 2, "speech service unavailable")

	// ErrEmptyTranscript indicates the speech service returned no text
	// for the submitted audio.
	ErrEmptyTranscript = sdkerrors.Register(codespace, 3, "speech service returned no text")
)
