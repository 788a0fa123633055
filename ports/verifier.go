package ports

// SignatureVerifier checks that signature over message was produced by address.
// It returns nil for a valid signature and an error wrapping core.ErrSignatureInvalid otherwise.
type SignatureVerifier interface {
	VerifySignature(message, signature, address string) error
}
