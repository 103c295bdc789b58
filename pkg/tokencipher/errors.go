package tokencipher

import "errors"

var (
	// ErrInvalidKey is returned when the configured key does not decode to 32 bytes.
	ErrInvalidKey = errors.New("invalid encryption key: must decode to 32 bytes")

	// ErrBadCiphertext is returned when stored ciphertext does not match the
	// expected "ivHex:cipherHex" layout.
	ErrBadCiphertext = errors.New("malformed ciphertext")

	// ErrEncryptionFailed wraps low-level cipher failures during encryption.
	ErrEncryptionFailed = errors.New("encryption failed")

	// ErrDecryptionFailed is returned when the ciphertext decodes but cannot be
	// decrypted with the configured key (wrong key, truncated data, bad padding).
	ErrDecryptionFailed = errors.New("decryption failed")
)
