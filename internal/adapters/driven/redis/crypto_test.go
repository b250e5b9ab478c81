package redis

import (
	"bytes"
	"errors"
	"testing"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0xAB}, 32)
}

func TestStateCipherRoundTrip(t *testing.T) {
	c, err := NewStateCipher(testKey())
	if err != nil {
		t.Fatalf("cipher creation failed: %v", err)
	}

	plaintext := []byte(`{"isActive":true,"token":"jwt"}`)
	blob, err := c.Seal(plaintext)
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}

	if blob[0] != blobVersion {
		t.Errorf("expected version byte %d, got %d", blobVersion, blob[0])
	}
	if bytes.Contains(blob, []byte("jwt")) {
		t.Error("expected ciphertext not to contain plaintext")
	}

	opened, err := c.Open(blob)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Errorf("expected round-trip to preserve document, got %s", opened)
	}
}

func TestStateCipherInvalidKeySize(t *testing.T) {
	_, err := NewStateCipher([]byte("short"))
	if !errors.Is(err, ErrInvalidKeySize) {
		t.Errorf("expected ErrInvalidKeySize, got %v", err)
	}
}

func TestStateCipherRejectsTamperedBlob(t *testing.T) {
	c, _ := NewStateCipher(testKey())
	blob, err := c.Seal([]byte("document"))
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}

	blob[len(blob)-1] ^= 0xFF
	_, err = c.Open(blob)
	if !errors.Is(err, ErrOpenFailed) {
		t.Errorf("expected ErrOpenFailed for tampered blob, got %v", err)
	}
}

func TestStateCipherRejectsWrongKey(t *testing.T) {
	c1, _ := NewStateCipher(testKey())
	c2, _ := NewStateCipher(bytes.Repeat([]byte{0xCD}, 32))

	blob, err := c1.Seal([]byte("document"))
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}

	_, err = c2.Open(blob)
	if !errors.Is(err, ErrOpenFailed) {
		t.Errorf("expected ErrOpenFailed for wrong key, got %v", err)
	}
}

func TestStateCipherRejectsTruncatedBlob(t *testing.T) {
	c, _ := NewStateCipher(testKey())

	_, err := c.Open([]byte{blobVersion, 1, 2, 3})
	if !errors.Is(err, ErrInvalidBlobSize) {
		t.Errorf("expected ErrInvalidBlobSize, got %v", err)
	}
}

func TestStateCipherRejectsUnknownVersion(t *testing.T) {
	c, _ := NewStateCipher(testKey())
	blob, err := c.Seal([]byte("document"))
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}

	blob[0] = 0x7F
	_, err = c.Open(blob)
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestStateCipherNoncesDiffer(t *testing.T) {
	c, _ := NewStateCipher(testKey())

	a, _ := c.Seal([]byte("same document"))
	b, _ := c.Seal([]byte("same document"))
	if bytes.Equal(a, b) {
		t.Error("expected distinct blobs for repeated seals")
	}
}
