package util

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

const (
	nonceSize = 12
	tagSize   = 16
)

// CredentialCipher encrypts third-party passwords at rest with AES-256-GCM.
// The wire layout is base64(nonce || tag || ciphertext), matching the rows
// already written by the previous backend, so the tag has to be carried
// ahead of the ciphertext rather than appended to it.
type CredentialCipher struct {
	key []byte
}

// NewCredentialCipher derives the key from the configured secret. Accepted
// encodings of the 32-byte key: 64 hex characters, 44 base64 characters, or
// 32 raw bytes. Anything else is a configuration error.
func NewCredentialCipher(secret string) (*CredentialCipher, error) {
	var key []byte
	switch len(secret) {
	case 64:
		decoded, err := hex.DecodeString(secret)
		if err != nil {
			return nil, fmt.Errorf("decode hex encryption key: %w", err)
		}
		key = decoded
	case 44:
		decoded, err := base64.StdEncoding.DecodeString(secret)
		if err != nil {
			return nil, fmt.Errorf("decode base64 encryption key: %w", err)
		}
		key = decoded
	case 32:
		key = []byte(secret)
	default:
		return nil, fmt.Errorf("encryption key must be 32 bytes (64 hex, 44 base64, or 32 raw chars), got %d chars", len(secret))
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must decode to 32 bytes, got %d", len(key))
	}
	return &CredentialCipher{key: key}, nil
}

// Encrypt returns base64(nonce || tag || ciphertext) for the given plaintext.
func (c *CredentialCipher) Encrypt(plaintext string) (string, error) {
	gcm, err := c.newGCM()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	ciphertext, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	out := make([]byte, 0, nonceSize+tagSize+len(ciphertext))
	out = append(out, nonce...)
	out = append(out, tag...)
	out = append(out, ciphertext...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. It fails if the authentication tag does not
// verify, so tampered or corrupted ciphertext never yields garbage plaintext.
func (c *CredentialCipher) Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(raw) < nonceSize+tagSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	gcm, err := c.newGCM()
	if err != nil {
		return "", err
	}

	nonce := raw[:nonceSize]
	tag := raw[nonceSize : nonceSize+tagSize]
	ciphertext := raw[nonceSize+tagSize:]

	sealed := make([]byte, 0, len(ciphertext)+tagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}

func (c *CredentialCipher) newGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return gcm, nil
}
