// Package token implements the encrypted token store: an AES-256-GCM cipher,
// a durable encrypted file backend, and an optional fast cache backend
// composed with read-through / write-through semantics.
package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

const (
	keyLen = 32

	// scrypt parameters for deriving a key from a passphrase of the wrong length
	scryptN = 32768
	scryptR = 8
	scryptP = 1
)

// keySalt keeps derivation deterministic across restarts so previously stored
// tokens remain decryptable.
var keySalt = []byte("cafe24-hub.token-store")

// DeriveKey turns the configured encryption key into a 32-byte AES key.
// A key of exactly 32 bytes is used as-is; anything else non-empty is run
// through scrypt. An empty key is an error so callers can decide between a
// development fallback and refusing to start.
func DeriveKey(key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("encryption key is empty")
	}
	if len(key) == keyLen {
		return []byte(key), nil
	}

	derived, err := scrypt.Key([]byte(key), keySalt, scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	return derived, nil
}

// NewRandomKey generates a fresh 32-byte key. Development fallback only:
// tokens stored under a generated key are unreadable after a restart.
func NewRandomKey() ([]byte, error) {
	key := make([]byte, keyLen)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	return key, nil
}

// Cipher encrypts and decrypts token material with AES-256-GCM.
// Wire format: base64([12-byte nonce][ciphertext+tag]).
type Cipher struct {
	gcm cipher.AEAD
}

// NewCipher creates a Cipher from a 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != keyLen {
		return nil, fmt.Errorf("invalid key length %d: expected %d bytes", len(key), keyLen)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	return &Cipher{gcm: gcm}, nil
}

// EncryptString encrypts a string with a random nonce and returns base64 text.
func (c *Cipher) EncryptString(plaintext string) (string, error) {
	ct, err := c.Encrypt([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

// DecryptString reverses EncryptString.
func (c *Cipher) DecryptString(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}

	plain, err := c.Decrypt(data)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Encrypt encrypts raw bytes. Format: [12-byte nonce][ciphertext+GCM tag].
func (c *Cipher) Encrypt(data []byte) ([]byte, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	ct := c.gcm.Seal(nil, nonce, data, nil)
	result := make([]byte, len(nonce)+len(ct))
	copy(result, nonce)
	copy(result[len(nonce):], ct)

	return result, nil
}

// Decrypt decrypts [12-byte nonce][ciphertext+GCM tag] payloads.
func (c *Cipher) Decrypt(data []byte) ([]byte, error) {
	nonceSize := c.gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short: %d bytes", len(data))
	}

	plain, err := c.gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}

	return plain, nil
}
