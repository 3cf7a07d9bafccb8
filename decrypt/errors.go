package decrypt

import "errors"

var (
	// ErrNotInitialized is returned when the decryptor has no relayer or no
	// signer.
	ErrNotInitialized = errors.New("decryption not initialized")
	// ErrTimeout is returned when the relayer did not answer in time. It is
	// the only retryable failure.
	ErrTimeout = errors.New("decryption timed out")
	// ErrUnauthorized is returned when the relayer rejects the grant.
	ErrUnauthorized = errors.New("decryption unauthorized")
	// ErrDecryptionUnavailable is returned for any other relayer failure.
	ErrDecryptionUnavailable = errors.New("decryption unavailable")
)

// Retryable reports whether a decryption attempt that failed with err can be
// retried with a fresh keypair.
func Retryable(err error) bool {
	return errors.Is(err, ErrTimeout)
}
