package ven

import "github.com/openadr-ven/client/errors"

// Sentinel errors a Codec signals through ParseMessage, replacing the
// mixed exception/sentinel-return control flow of the reference
// implementation with one inspectable error chain.
var (
	ErrSchemaInvalid       = errors.New("ven: message failed schema validation")
	ErrSignatureInvalid    = errors.New("ven: message signature invalid")
	ErrFingerprintMismatch = errors.New("ven: certificate fingerprint mismatch")
	ErrNotRegistered       = errors.New("ven: not registered with VTN")
	ErrRegistrationFailed  = errors.New("ven: registration rejected by VTN")
)

// requestResult is the single shape every VTN round trip resolves to,
// replacing the reference implementation's inconsistent
// None/(None,)/(None,{}) returns from its request helper.
type requestResult struct {
	msgType string
	payload map[string]any
	err     error
}

func (r requestResult) ok() bool { return r.err == nil }
