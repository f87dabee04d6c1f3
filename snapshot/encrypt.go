package snapshot

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Encryption errors.
var (
	ErrKeyTooShort       = errors.New("snapshot: encryption key too short")
	ErrPassphraseTooWeak = errors.New("snapshot: passphrase too weak (minimum 8 characters)")
)

const (
	// KeyLength is the required key length (AES-256 / ChaCha20).
	KeyLength = 32

	// SaltLength is the salt length used in passphrase derivation.
	SaltLength = 16

	// MinPassphraseLength is the minimum passphrase length.
	MinPassphraseLength = 8

	// Argon2id parameters for passphrase-derived keys.
	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
)

// CipherType identifies the cipher algorithm.
type CipherType string

const (
	CipherAESGCM   CipherType = "aes-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

// Cipher provides authenticated encryption for snapshot data blocks.
//
// The ciphertext carries its own random nonce; additionalData is
// authenticated but not encrypted (the manager binds the snapshot
// header this way).
type Cipher interface {
	Type() CipherType
	Encrypt(plaintext, additionalData []byte) ([]byte, error)
	Decrypt(ciphertext, additionalData []byte) ([]byte, error)
}

// NewCipher creates a cipher with the given 32-byte key, selecting the
// algorithm by hardware: AES-GCM where AES instructions are available,
// ChaCha20-Poly1305 otherwise.
func NewCipher(key []byte) (Cipher, error) {
	if hasAESHardware() {
		return NewAESGCM(key)
	}
	return NewChaCha20(key)
}

// NewCipherOfType creates a cipher of the specified type.
func NewCipherOfType(key []byte, cipherType CipherType) (Cipher, error) {
	switch cipherType {
	case CipherAESGCM:
		return NewAESGCM(key)
	case CipherChaCha20:
		return NewChaCha20(key)
	default:
		return nil, fmt.Errorf("snapshot: unknown cipher type %q", cipherType)
	}
}

// NewAESGCM creates an AES-256-GCM cipher. The key must be 32 bytes.
func NewAESGCM(key []byte) (Cipher, error) {
	if len(key) != KeyLength {
		return nil, ErrKeyTooShort
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &aeadCipher{aead: aead, typ: CipherAESGCM}, nil
}

// NewChaCha20 creates a ChaCha20-Poly1305 cipher. The key must be 32
// bytes.
func NewChaCha20(key []byte) (Cipher, error) {
	if len(key) != KeyLength {
		return nil, ErrKeyTooShort
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return &aeadCipher{aead: aead, typ: CipherChaCha20}, nil
}

// hasAESHardware reports whether AES hardware acceleration is likely.
// Go's crypto/aes uses AES-NI on amd64 and the ARM crypto extensions
// on arm64.
func hasAESHardware() bool {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return true
	default:
		return false
	}
}

type aeadCipher struct {
	aead cipher.AEAD
	typ  CipherType
}

func (c *aeadCipher) Type() CipherType { return c.typ }

func (c *aeadCipher) Encrypt(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	// Prepend nonce to ciphertext.
	return c.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

func (c *aeadCipher) Decrypt(ciphertext, additionalData []byte) ([]byte, error) {
	if len(ciphertext) < c.aead.NonceSize() {
		return nil, errors.New("snapshot: ciphertext too short")
	}
	nonce := ciphertext[:c.aead.NonceSize()]
	return c.aead.Open(nil, nonce, ciphertext[c.aead.NonceSize():], additionalData)
}

// GenerateKey generates a random 32-byte encryption key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("snapshot: generate key: %w", err)
	}
	return key, nil
}

// DeriveKey derives a 32-byte key from a passphrase using Argon2id.
//
// If salt is nil a new random salt is generated; the returned salt
// must be persisted by the caller, since decryption needs the same
// salt to reproduce the key.
func DeriveKey(passphrase, salt []byte) (key, usedSalt []byte, err error) {
	if len(passphrase) < MinPassphraseLength {
		return nil, nil, ErrPassphraseTooWeak
	}
	if salt == nil {
		salt = make([]byte, SaltLength)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, fmt.Errorf("snapshot: derive key: %w", err)
		}
	}

	key = argon2.IDKey(passphrase, salt, argon2Time, argon2Memory, argon2Threads, KeyLength)
	return key, salt, nil
}

// ZeroKey securely zeros a key in memory.
func ZeroKey(key []byte) {
	for i := range key {
		key[i] = 0
	}
}
