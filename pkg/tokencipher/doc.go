// Package tokencipher protects OAuth access and refresh tokens at rest.
//
// A Cipher holds a single 32-byte AES-256 key supplied by configuration. The
// key string may be hex- or base64-encoded; both forms are detected at
// construction time. Encryption uses AES-256-CBC with a fresh random 16-byte
// IV per call and PKCS#7 padding.
//
// Ciphertext wire format: hex(iv) + ":" + hex(cipher bytes). Any consumer
// reading stored tokens directly must respect this exact layout.
//
// # Usage
//
//	import "github.com/dealersync/integrations/pkg/tokencipher"
//
//	c, err := tokencipher.New(os.Getenv("TOKEN_ENCRYPTION_KEY"))
//	if err != nil {
//	    log.Fatal(err) // fatal configuration error, never defaulted
//	}
//
//	ct, err := c.Encrypt("ya29.a0AfH6...")
//	plain, err := c.Decrypt(ct)
//
// All public functions return errors wrapping a package sentinel such as
// ErrInvalidKey, ErrBadCiphertext or ErrDecryptionFailed. Use errors.Is to
// match against these sentinels.
package tokencipher
