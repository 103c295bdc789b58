package tokencipher

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"strings"
)

// KeySize is the required decoded key length for AES-256.
const KeySize = 32

// Cipher encrypts and decrypts secret strings with AES-256-CBC.
// Ciphertext is self-describing: hex(iv) + ":" + hex(cipher bytes), with a
// fresh random IV generated for every Encrypt call.
type Cipher struct {
	key []byte
}

// New builds a Cipher from a key string supplied by configuration.
// The key is accepted in either hex or base64 encoding; a padding character
// signals base64, otherwise hex is tried first with base64 as a fallback.
// Both paths must yield exactly 32 bytes.
func New(rawKey string) (*Cipher, error) {
	key, err := decodeKey(rawKey)
	if err != nil {
		return nil, err
	}
	return &Cipher{key: key}, nil
}

func decodeKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidKey
	}

	if strings.Contains(raw, "=") {
		key, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, errors.Join(ErrInvalidKey, err)
		}
		return checkKeyLength(key)
	}

	if key, err := hex.DecodeString(raw); err == nil {
		return checkKeyLength(key)
	}

	// Unpadded base64 (RawStdEncoding) as the last resort.
	key, err := base64.RawStdEncoding.DecodeString(raw)
	if err != nil {
		return nil, errors.Join(ErrInvalidKey, err)
	}
	return checkKeyLength(key)
}

func checkKeyLength(key []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	return key, nil
}

// Encrypt encrypts plaintext and returns it in "ivHex:cipherHex" form.
// A fresh 16-byte IV is generated per call; reusing an IV under the same key
// would break CBC confidentiality guarantees.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ct), nil
}

// Decrypt reverses Encrypt. The input must carry the "ivHex:cipherHex" layout.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	ivHex, ctHex, ok := strings.Cut(ciphertext, ":")
	if !ok {
		return "", ErrBadCiphertext
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return "", errors.Join(ErrBadCiphertext, err)
	}
	if len(iv) != aes.BlockSize {
		return "", ErrBadCiphertext
	}

	ct, err := hex.DecodeString(ctHex)
	if err != nil {
		return "", errors.Join(ErrBadCiphertext, err)
	}
	if len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", ErrDecryptionFailed
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}

	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)

	unpadded, err := pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}

	return string(unpadded), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padLen)}, padLen)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize {
		return nil, errors.New("invalid padding byte")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, errors.New("inconsistent padding")
		}
	}
	return data[:len(data)-padLen], nil
}
