package core

import "errors"

// Sentinel errors for every error kind named in the replica and account
// manager designs. Call sites wrap these with fmt.Errorf("%w: ...", ErrX)
// so errors.Is keeps working through the service and HTTP layers.
var (
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrValidation           = errors.New("validation error")
	ErrUnknownSectionKey    = errors.New("unknown section key")
	ErrStore                = errors.New("store error")
	ErrInvalidGenesis       = errors.New("invalid genesis")
	ErrUnsupportedEvent     = errors.New("unsupported event")
	ErrAccountExists        = errors.New("account exists")
	ErrNoSuchAccount        = errors.New("no such account")
	ErrLowBalance           = errors.New("low balance")
	ErrCachedRequestMissing = errors.New("cached request missing")
)
