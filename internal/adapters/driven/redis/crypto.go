package redis

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

const (
	// blobVersion is the version byte for the sealed state format,
	// allowing future format changes without breaking old documents.
	blobVersion = 0x01

	// nonceSize is the AES-GCM nonce size (12 bytes is standard)
	nonceSize = 12

	// keySize is the required key size for AES-256
	keySize = 32
)

var (
	// ErrInvalidKeySize is returned when the state key is not 32 bytes.
	ErrInvalidKeySize = errors.New("state secret key must be 32 bytes")

	// ErrInvalidBlobSize is returned when the sealed blob is too small.
	ErrInvalidBlobSize = errors.New("sealed state blob is too small")

	// ErrUnsupportedVersion is returned when the blob version is not supported.
	ErrUnsupportedVersion = errors.New("unsupported state blob version")

	// ErrOpenFailed is returned when decryption fails (wrong key or corrupted data).
	ErrOpenFailed = errors.New("failed to open sealed state blob")
)

// StateCipher seals the persisted session document with AES-256-GCM.
// The document carries terminal database credentials and the bearer
// token, so it is never written in the clear when a key is configured.
// Sealed format: version(1) || nonce(12) || ciphertext(N)
type StateCipher struct {
	gcm cipher.AEAD
}

// NewStateCipher creates a cipher with the given 32-byte key.
func NewStateCipher(key []byte) (*StateCipher, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &StateCipher{gcm: gcm}, nil
}

// Seal encrypts a plaintext document into a sealed blob.
func (c *StateCipher) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := c.gcm.Seal(nil, nonce, plaintext, nil)

	blob := make([]byte, 1+nonceSize+len(ciphertext))
	blob[0] = blobVersion
	copy(blob[1:1+nonceSize], nonce)
	copy(blob[1+nonceSize:], ciphertext)
	return blob, nil
}

// Open decrypts a sealed blob back into the plaintext document.
func (c *StateCipher) Open(blob []byte) ([]byte, error) {
	if len(blob) < 1+nonceSize+c.gcm.Overhead() {
		return nil, ErrInvalidBlobSize
	}
	if blob[0] != blobVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, blob[0])
	}

	nonce := blob[1 : 1+nonceSize]
	ciphertext := blob[1+nonceSize:]

	plaintext, err := c.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrOpenFailed
	}
	return plaintext, nil
}
